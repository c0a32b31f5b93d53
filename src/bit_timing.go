package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Convert an inter-edge interval into a bit count.
 *
 * Description: The edge handler cannot trust raw cycle counts: it may
 *		be entered late by a varying amount when other interrupt
 *		work is in flight.  Plain rounding then mis-classifies
 *		intervals in both directions and the errors compound.
 *
 *		Instead, the leftover lateness of each call is carried
 *		into the next one ("jitter"), so a stretched interval is
 *		followed by an apparently compressed one and the two
 *		cancel.
 *
 *---------------------------------------------------------------*/

/*-------------------------------------------------------------------
 *
 * Name:	bit_estimate
 *
 * Purpose:	Classify an inter-edge interval.
 *
 * Inputs:	t		- Timing constants.
 *		cycles		- Elapsed CPU cycles since the previous edge.
 *		jitter_in	- Carry from the previous call.
 *
 * Returns:	Number of whole bit times the interval represents and
 *		the lateness to carry into the next call.
 *
 * Description:	effective = cycles + jitter_in, classified against the
 *		empirical table.  Beyond the table the count comes from
 *		the linear formula.  Whatever part of the interval lies
 *		beyond the per-class floor is late arrival, not bus time,
 *		and is handed back as the new carry.
 *
 *--------------------------------------------------------------------*/

func bit_estimate(t *Tuning, cycles uint32, jitter_in uint32) (nbits int, jitter_out uint32) {
	var effective = cycles + jitter_in

	nbits = -1
	for i, limit := range t.BitClassLimit {
		if effective < limit {
			nbits = i
			break
		}
	}
	if nbits < 0 {
		nbits = int((effective + t.FormulaOffset) / t.FormulaDiv)
	}

	if nbits == 0 {
		// Sub-bit fragment.  The time still passed on the bus, so the
		// whole interval rides along to the next edge.
		return 0, effective
	}

	var floor = uint32(nbits) * t.JitterFloorPerBit
	if effective > floor {
		jitter_out = effective - floor
	}

	return nbits, jitter_out
}
