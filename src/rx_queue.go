package vanbus

import "sync/atomic"

/*------------------------------------------------------------------
 *
 * Purpose:   	Received packet queue.
 *
 * Description: A fixed ring of descriptors shared between the edge
 *		handler (producer) and whoever calls Receive (consumer).
 *
 *		The head index belongs to the producer and the tail to
 *		the consumer; neither is ever touched by the other side.
 *		Only the queued count and the overrun flag cross the
 *		boundary, and those are atomics.  No locks, no
 *		allocation: the handler must stay bounded-time.
 *
 *---------------------------------------------------------------*/

const DEFAULT_RX_QUEUE_SIZE = 15

type rx_queue struct {
	slots []RxPacket

	head int // Producer only.
	tail int // Consumer only.

	n_queued   atomic.Int32
	max_queued atomic.Int32
	overrun    atomic.Bool

	n_overruns atomic.Uint32
	rx_count   atomic.Uint32
	n_dropped  atomic.Uint32

	seq uint32 // Producer only.

	// Drop policy: once drop_threshold packets are queued, further
	// frames are discarded in place unless is_essential accepts
	// them.  The predicate runs in the handler, so it must be
	// bounded-time and synchronization-free.
	drop_threshold int
	is_essential   func(*RxPacket) bool
}

func new_rx_queue(size int) *rx_queue {
	if size <= 0 {
		size = DEFAULT_RX_QUEUE_SIZE
	}

	var q = &rx_queue{
		slots:          make([]RxPacket, size),
		drop_threshold: size,
	}
	for i := range q.slots {
		q.slots[i].reinit(i)
	}
	return q
}

func (q *rx_queue) head_slot() *RxPacket {
	return &q.slots[q.head]
}

func (q *rx_queue) note_overrun() {
	q.overrun.Store(true)
	q.n_overruns.Add(1)
}

/*-------------------------------------------------------------------
 *
 * Name:	commit_head
 *
 * Purpose:	Publish the descriptor under construction.
 *
 * Inputs:	millis	- Timestamp for the packet.
 *
 * Description:	Stamp time and sequence number and mark the slot DONE.
 *		Then either move the head to the next slot, or - when
 *		keeping it would take the queue past the drop threshold
 *		and the packet is
 *		not essential - reinitialise the slot in place so the
 *		frame is quietly discarded.
 *
 *--------------------------------------------------------------------*/

func (q *rx_queue) commit_head(millis uint32) {
	var p = &q.slots[q.head]

	q.seq++
	p.Seqno = q.seq
	p.Millis = millis
	p.State = RX_DONE

	q.rx_count.Add(1)

	var would = q.n_queued.Load() + 1
	if int(would) <= q.drop_threshold || (q.is_essential != nil && q.is_essential(p)) {
		var n = q.n_queued.Add(1)
		if n > q.max_queued.Load() {
			q.max_queued.Store(n)
		}
		q.head = (q.head + 1) % len(q.slots)
	} else {
		q.n_dropped.Add(1)
		p.reinit(q.head)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	receive
 *
 * Purpose:	Copy out the oldest completed packet, if any.
 *
 * Inputs:	out	- Destination for the copy.
 *
 *		overrun	- Optional.  When non-nil, receives the sticky
 *			  overrun flag, which is cleared by the read.
 *
 * Returns:	true when a packet was delivered.
 *
 *--------------------------------------------------------------------*/

func (q *rx_queue) receive(out *RxPacket, overrun *bool) bool {
	if overrun != nil {
		*overrun = q.overrun.Swap(false)
	}

	var p = &q.slots[q.tail]
	if p.State != RX_DONE {
		return false
	}

	*out = *p
	p.reinit(q.tail)
	q.tail = (q.tail + 1) % len(q.slots)
	q.n_queued.Add(-1)

	return true
}

func (q *rx_queue) available() bool {
	return q.slots[q.tail].State == RX_DONE
}
