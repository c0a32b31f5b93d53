package vanbus

import (
	"fmt"
	"io"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Textual rendering of counters and packets.
 *
 *---------------------------------------------------------------*/

/*-------------------------------------------------------------------
 *
 * Name:	DumpStats
 *
 * Purpose:	Render the transceiver counters.
 *
 * Inputs:	w	- Destination stream.
 *		long	- Include the per-error-class and handler-level
 *			  tallies, not just the headline numbers.
 *
 *--------------------------------------------------------------------*/

func (t *Transceiver) DumpStats(w io.Writer, long bool) {
	fmt.Fprintf(w, "received packets     %d\n", t.RxCount())
	fmt.Fprintf(w, "transmitted packets  %d\n", t.TxCount())
	fmt.Fprintf(w, "queued               %d / %d  (high water %d)\n",
		t.Queued(), t.QueueSize(), t.MaxQueued())
	fmt.Fprintf(w, "overruns             %d\n", t.rxq.n_overruns.Load())
	fmt.Fprintf(w, "dropped by policy    %d\n", t.rxq.n_dropped.Load())

	var cs = t.crc_stats
	fmt.Fprintf(w, "crc corrupt          %d\n", cs.NCorrupt)
	fmt.Fprintf(w, "crc repaired         %d\n", cs.NRepaired)

	if !long {
		return
	}

	fmt.Fprintf(w, "\nrepairs by class\n")
	fmt.Fprintf(w, "  single bit         %d\n", cs.NOneBitErrors)
	fmt.Fprintf(w, "  two consecutive    %d\n", cs.NTwoConsecutiveBitErrors)
	fmt.Fprintf(w, "  two separate       %d\n", cs.NTwoSeparateBitErrors)
	fmt.Fprintf(w, "  uncertain bit      %d\n", cs.NUncertainBitErrors)

	var rs = t.rx_stats
	fmt.Fprintf(w, "\nreceive handler\n")
	fmt.Fprintf(w, "  spurious edges     %d\n", rs.n_spurious)
	fmt.Fprintf(w, "  sof misses         %d\n", rs.n_sof_miss)
	fmt.Fprintf(w, "  late starts        %d\n", rs.n_late_starts)
	fmt.Fprintf(w, "  nbits errors       %d\n", rs.n_nbits_err)
	fmt.Fprintf(w, "  oversize frames    %d\n", rs.n_max_packet)
	fmt.Fprintf(w, "  manchester errors  %d\n", rs.n_manchester)
	fmt.Fprintf(w, "  unacknowledged     %d\n", rs.n_no_ack)

	var ts = t.tx_sched
	fmt.Fprintf(w, "\ntransmit scheduler\n")
	fmt.Fprintf(w, "  bus occupied       %d\n", ts.n_bus_occupied)
	fmt.Fprintf(w, "  collisions         %d\n", ts.n_collisions)
	fmt.Fprintf(w, "  gave up (max coll) %d\n", ts.n_max_collision_errors)
	fmt.Fprintf(w, "  bit errors         %d\n", ts.n_bit_errors)
	fmt.Fprintf(w, "  bits verified ok   %d\n", ts.n_bits_ok)
}

/*-------------------------------------------------------------------
 *
 * Name:	dump_packet
 *
 * Purpose:	One-line rendering of a received packet followed by a
 *		hex dump of the payload.
 *
 *--------------------------------------------------------------------*/

func dump_packet(w io.Writer, p *RxPacket) {
	fmt.Fprintf(w, "#%d iden=%03X com=%X len=%d %s %s crc=%s\n",
		p.Seqno, p.Iden(), p.CommandFlags(), p.DataLen(),
		p.Result, IfThenElse(p.Ack == VAN_ACK, "ACK", "NO_ACK"),
		IfThenElse(p.CheckCrc(), "ok", "BAD"))
	hex_dump(w, p.Data())
}

func hex_dump(w io.Writer, p []byte) {
	var offset = 0

	for len(p) > 0 {
		var n = min(len(p), 16)

		fmt.Fprintf(w, "  %03x: ", offset)
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, " %02x", p[i])
		}
		for i := n; i < 16; i++ {
			fmt.Fprint(w, "   ")
		}
		fmt.Fprint(w, "  ")
		for i := 0; i < n; i++ {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				fmt.Fprintf(w, "%c", p[i])
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprint(w, "\n")
		p = p[n:]
		offset += n
	}
}
