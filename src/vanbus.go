// Package vanbus is a software-defined VAN bus transceiver: it recovers
// 125 kbit/s Enhanced-Manchester frames from the edge timing of a single
// GPIO input and transmits frames onto a GPIO output with collision
// detection and inter-frame-space arbitration.
//
// No VAN or CAN peripheral is involved.  The receive path is a pin-change
// handler that converts inter-edge cycle counts into bits, tolerating the
// interrupt latency of a busy system, and a byte-level state machine that
// walks SOF, data, EOD and the ACK slot.  Completed frames land in a
// bounded lock-free ring consumed by Receive.
package vanbus

import (
	"sync"
	"sync/atomic"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Public facade: setup, receive, send, statistics.
 *
 *---------------------------------------------------------------*/

type Transceiver struct {
	hw     Hardware
	tuning *Tuning

	rxq *rx_queue
	txq *tx_queue

	rx_dec   rx_decoder
	rx_stats rx_counters
	tx_sched tx_scheduler

	crc_stats CrcStats
	capture   *debug_capture

	// Wraps every handler-entered critical region.  Matters on
	// multi-core hosts; uncontended on a single core.
	isr_lock sync.Mutex

	// Cycle stamp of the most recent bus activity, written by the
	// receive handler, read by the transmit scheduler for IFS.
	last_media_access atomic.Uint32

	was_setup atomic.Bool

	// send_lock serializes producers of the transmit queue.
	send_lock sync.Mutex
}

/*-------------------------------------------------------------------
 *
 * Name:	New
 *
 * Purpose:	Build a transceiver bound to a hardware port.
 *
 * Inputs:	hw	- Hardware implementation (GPIO or simulated).
 *		cfg	- Optional configuration; nil for defaults.
 *
 *--------------------------------------------------------------------*/

func New(hw Hardware, cfg *Config) *Transceiver {
	Assert(hw != nil, "transceiver needs a hardware port")

	var t = &Transceiver{
		hw:     hw,
		tuning: default_tuning(hw.CyclesPerSecond()),
	}

	var rx_size, tx_size = DEFAULT_RX_QUEUE_SIZE, DEFAULT_TX_QUEUE_SIZE
	if cfg != nil {
		if cfg.RxQueueSize > 0 {
			rx_size = cfg.RxQueueSize
		}
		if cfg.TxQueueSize > 0 {
			tx_size = cfg.TxQueueSize
		}
		t.tuning.StrictManchester = cfg.StrictManchester
		t.tuning.DebugCapture = cfg.DebugCapture
	}

	t.rxq = new_rx_queue(rx_size)
	t.txq = new_tx_queue(tx_size)

	if t.tuning.DebugCapture {
		t.capture = &debug_capture{}
	}

	if cfg != nil && cfg.DropThreshold > 0 {
		t.rxq.drop_threshold = cfg.DropThreshold
	}

	return t
}

/*-------------------------------------------------------------------
 *
 * Name:	Setup
 *
 * Purpose:	Attach to the hardware and start receiving.
 *
 * Returns:	false when already set up (idempotent), or when the
 *		edge handler cannot be attached.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) Setup() bool {
	if !t.was_setup.CompareAndSwap(false, true) {
		return false
	}

	t.isr_lock.Lock()
	defer t.isr_lock.Unlock()

	t.rx_dec.prev_level = t.hw.ReadRxPin()
	t.rx_dec.prev_cycles = t.hw.Cycles()
	t.last_media_access.Store(t.rx_dec.prev_cycles)

	if err := t.hw.AttachRxEdge(t.rx_edge_isr); err != nil {
		t.was_setup.Store(false)
		return false
	}
	return true
}

// Receive copies the oldest completed packet into out.  overrun may be
// nil; when supplied it reports, and clears, the sticky overrun flag.
func (t *Transceiver) Receive(out *RxPacket, overrun *bool) bool {
	return t.rxq.receive(out, overrun)
}

// Available reports whether Receive would succeed right now.
func (t *Transceiver) Available() bool {
	return t.rxq.available()
}

/*-------------------------------------------------------------------
 *
 * Name:	SendAsync
 *
 * Purpose:	Queue a frame for transmission.
 *
 * Inputs:	iden		- 12-bit identifier.
 *		flags		- RAK / R/W / RTR bits.
 *		data		- Up to 28 payload bytes.
 *		timeout_ms	- How long to wait for a free queue slot.
 *
 * Returns:	true once the frame is queued.  Transmission happens
 *		whenever the scheduler wins the bus.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) SendAsync(iden uint16, flags byte, data []byte, timeout_ms int) bool {
	var p = t.queue_frame(iden, flags, data, timeout_ms)
	return p != nil
}

/*-------------------------------------------------------------------
 *
 * Name:	SendSync
 *
 * Purpose:	Queue a frame and wait until it is on the wire.
 *
 * Returns:	false on timeout.  The frame stays queued and may still
 *		transmit afterwards.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) SendSync(iden uint16, flags byte, data []byte, timeout_ms int) bool {
	var p = t.queue_frame(iden, flags, data, timeout_ms)
	if p == nil {
		return false
	}

	for waited := 0; waited < timeout_ms; waited++ {
		t.isr_lock.Lock()
		var done = p.State == TX_DONE
		t.isr_lock.Unlock()
		if done {
			return true
		}
		SLEEP_MS(1)
	}
	return false
}

func (t *Transceiver) queue_frame(iden uint16, flags byte, data []byte, timeout_ms int) *TxPacket {
	if !t.was_setup.Load() {
		return nil
	}

	t.send_lock.Lock()
	defer t.send_lock.Unlock()

	for waited := 0; !t.txq.head_free(); waited++ {
		if waited >= timeout_ms {
			return nil
		}
		SLEEP_MS(1)
	}

	// The head slot is ours until enqueued: safe to fill outside the
	// handler lock.
	var p = &t.txq.slots[t.txq.head]
	if err := p.frame(iden, flags, data); err != nil {
		p.State = TX_DONE
		return nil
	}

	t.isr_lock.Lock()
	t.txq.enqueue_head()
	t.start_bit_timer_locked()
	t.isr_lock.Unlock()

	return p
}

/*-------------------------------------------------------------------
 *
 * Name:	SetDropPolicy
 *
 * Purpose:	Choose which packets survive a congested receive queue.
 *
 * Inputs:	threshold	- Queue depth beyond which non-essential
 *				  frames are discarded.  0 restores the
 *				  default (never drop until full).
 *
 *		is_essential	- Predicate evaluated inside the edge
 *				  handler.  It must be bounded-time and
 *				  free of synchronization; that cannot
 *				  be enforced, only demanded.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) SetDropPolicy(threshold int, is_essential func(*RxPacket) bool) {
	t.isr_lock.Lock()
	defer t.isr_lock.Unlock()

	if threshold <= 0 || threshold > len(t.rxq.slots) {
		threshold = len(t.rxq.slots)
	}
	t.rxq.drop_threshold = threshold
	t.rxq.is_essential = is_essential
}

// SetRepairWatchdog installs a watchdog kick for the long CRC repair
// search.  Optional.
func (t *Transceiver) SetRepairWatchdog(fn func()) {
	repair_watchdog_kick = fn
}

// CheckCrcAndRepair validates and, on failure, attempts to repair a
// received packet, updating the transceiver's repair statistics.
func (t *Transceiver) CheckCrcAndRepair(p *RxPacket, accept func(*RxPacket) bool) bool {
	return p.CheckCrcAndRepair(&t.crc_stats, accept)
}

func (t *Transceiver) QueueSize() int { return len(t.rxq.slots) }

func (t *Transceiver) Queued() int { return int(t.rxq.n_queued.Load()) }

func (t *Transceiver) MaxQueued() int { return int(t.rxq.max_queued.Load()) }

func (t *Transceiver) RxCount() uint32 { return t.rxq.rx_count.Load() }

func (t *Transceiver) TxCount() uint32 { return t.txq.tx_count.Load() }

func (t *Transceiver) CrcStats() CrcStats { return t.crc_stats }
