package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit bit scheduler.
 *
 * Description: A periodic timer fires once per VAN bit time.  Each
 *		tick emits exactly one bit of the frame at the transmit
 *		queue tail, after sampling the line to see what actually
 *		happened to the previous bit:
 *
 *		  set recessive, read dominant  -> somebody stronger is
 *						   talking: collision.
 *		  set dominant, read recessive  -> drive fault: bit error.
 *		  read equals set               -> bit ok.
 *
 *		Before the first bit goes out the inter-frame space rule
 *		must hold: at least 13 bit times of bus quiescence since
 *		the last media access recorded by the receiver.  On
 *		collision the frame backs off to WAITING and tries the
 *		IFS dance again, up to the retry cap.
 *
 *		While sending, the Rx edge handler is detached - the
 *		receiver must not decode our own edges - and re-attached
 *		the moment the frame (or the back-off) ends.
 *
 *---------------------------------------------------------------*/

type tx_scheduler struct {
	bit_index int
	last_set  PinLevel

	timer_live bool

	n_bus_occupied         uint32
	n_collisions           uint32
	n_bit_errors           uint32
	n_bits_ok              uint32
	n_max_collision_errors uint32
}

/*-------------------------------------------------------------------
 *
 * Name:	tx_tick
 *
 * Purpose:	Periodic timer handler: one bit per invocation.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) tx_tick() {
	t.isr_lock.Lock()
	defer t.isr_lock.Unlock()

	var s = &t.tx_sched
	var q = t.txq

	if q.n_queued.Load() == 0 {
		t.hw.StopBitTimer()
		s.timer_live = false
		return
	}

	var p = q.tail_slot()

	if p.State == TX_WAITING {
		var now = t.hw.Cycles()
		var quiet = now - t.last_media_access.Load()
		if quiet < t.tuning.IfsCycles {
			s.n_bus_occupied++
			return
		}

		// Our own edges must not reach the decoder.
		t.hw.DetachRxEdge()

		p.IfsCycles = quiet
		p.State = TX_SENDING
		s.bit_index = 0
		s.last_set = LEVEL_RECESSIVE

		t.capture_ifs_sample(quiet, p.Collisions)

		// First bit goes out on the next tick.  Sampling now would
		// just verify the idle bus against itself.
		return
	}

	var sample = t.hw.ReadTxPin()

	// Verification stops at the EOD: the ACK slot is somebody else's
	// dominant pulse and the EOF is silence, neither is a collision.
	var in_data = s.bit_index/SYMBOL_BITS <= p.EodIndex

	if in_data && s.last_set == LEVEL_RECESSIVE && sample == LEVEL_DOMINANT {
		// A stronger device holds the bus: we lost arbitration.
		p.Collisions++
		s.n_collisions++
		if p.FirstCollisionBit < 0 {
			p.FirstCollisionBit = s.bit_index
		}

		t.hw.SetTxPin(LEVEL_RECESSIVE)
		t.reattach_rx()

		if p.Collisions >= MAX_COLLISIONS {
			s.n_max_collision_errors++
			q.complete_tail(false)
		} else {
			p.State = TX_WAITING
		}
		return
	}

	if in_data {
		if s.last_set == LEVEL_DOMINANT && sample == LEVEL_RECESSIVE {
			p.BitError = true
			s.n_bit_errors++
		} else if sample == s.last_set {
			p.BitOk = true
			s.n_bits_ok++
		}
	}

	if s.bit_index >= p.total_bits() {
		// Frame complete, EOF included.
		t.hw.SetTxPin(LEVEL_RECESSIVE)
		t.reattach_rx()

		// Our own frame occupies the medium: the IFS clock restarts.
		t.last_media_access.Store(t.hw.Cycles())

		q.complete_tail(true)

		if q.n_queued.Load() == 0 {
			t.hw.StopBitTimer()
			s.timer_live = false
		}
		return
	}

	var level = PinLevel(p.symbol_bit(s.bit_index))
	t.hw.SetTxPin(level)
	s.last_set = level
	s.bit_index++
}

// reattach_rx restores the receive edge handler after a transmission
// or a back-off.  Must hold the handler lock.
func (t *Transceiver) reattach_rx() {
	t.rx_dec.prev_level = t.hw.ReadRxPin()
	t.rx_dec.prev_cycles = t.hw.Cycles()
	_ = t.hw.AttachRxEdge(t.rx_edge_isr)
}

// start_bit_timer_locked arms the periodic tick if it is not already
// running.  Must hold the handler lock.
func (t *Transceiver) start_bit_timer_locked() {
	if t.tx_sched.timer_live {
		return
	}
	if t.hw.StartBitTimer(t.tx_tick) == nil {
		t.tx_sched.timer_live = true
	}
}
