package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Empirical timing constants for the VAN bit decoder.
 *
 * Description: Every numeric threshold used by the edge handler and the
 *		bit-timing estimator lives here so it can be retuned
 *		without touching the state machine.
 *
 *		The baseline numbers were measured on an 80 MHz part where
 *		one VAN bit at 125 kbit/s is nominally 640 CPU cycles.
 *		Everything scales linearly with the actual CPU frequency.
 *
 *---------------------------------------------------------------*/

const VAN_BIT_RATE = 125000 // Bits/second.  The only rate supported.

const BASE_CPU_HZ = 80000000 // Frequency the baseline constants were measured at.

const NOMINAL_BIT_CYCLES = 640 // One VAN time-slot at 80 MHz: 8 microseconds.

// Set when the external transceiver chip inverts DATA relative to the
// GPIO pin.  Swaps dominant and recessive pin levels throughout.
const VAN_BIT_INVERTED_WIRING = false

/*
 * An edge is never observed early, only late: entry overhead stretches
 * every interval by a few percent.  The per-bit duration the handler
 * actually sees is therefore slightly above nominal.
 */
const OBSERVED_BIT_CYCLES = 667

/*
 * Upper bounds, in cycles at 80 MHz, for classifying an inter-edge
 * interval as 0, 1, 2, ... bits.  Above the table the count is computed
 * as (effective + BITS_FORMULA_OFFSET) / BITS_FORMULA_DIVISOR.
 *
 * These are not midpoints of ideal intervals.  They lean long to match
 * the observed per-bit duration.
 */
var bit_class_limit = [6]uint32{482, 1293, 1893, 2470, 3164, 3795}

const BITS_FORMULA_OFFSET = 200
const BITS_FORMULA_DIVISOR = OBSERVED_BIT_CYCLES

/*
 * Late-arrival floor per bit count.  When the effective interval for an
 * n-bit classification exceeds n * JITTER_FLOOR_PER_BIT, the excess is
 * carried into the next call as jitter so that stretched and compressed
 * intervals cancel instead of compounding.  Anchored at the observed
 * duration so a steady stream carries nothing.
 */
const JITTER_FLOOR_PER_BIT = OBSERVED_BIT_CYCLES

// Leftover jitter above this makes the final bit of a recovered block
// suspect enough to flip outright.
const FLIP_LAST_BIT_JITTER = 318

// The first two 4-bit runs of the SOF pattern arrive slightly short of
// nominal.  Added to the effective interval while still SEARCHING.
const SOF_RUN_COMPENSATION = 38

// ACK window after EOD, in cycles: a dominant pulse whose leading edge
// falls inside [lo, hi] counts as an acknowledgement.
const ACK_WINDOW_LO = 650
const ACK_WINDOW_HI = 1000

// One-shot wait for the ACK slot, in time-slots.
const ACK_TIMEOUT_SLOTS = 3

// At most five equal bits occur back to back in a valid frame (six for
// EOD).  Ten are tolerated to survive a missed edge; more is an error.
const MAX_EQUAL_BITS = 10

// EOD needs at least this many trailing dominant bits in the final run.
const MIN_EOD_RUN = 2

// Inter-frame space: required bus quiescence before transmitting.
const IFS_BITS = 13

// Collisions after which a transmission is abandoned.
const MAX_COLLISIONS = 10

/*
 * Flip masks applied when an edge reports the same pin level as the
 * previous one (the handler was so late that a transition was missed).
 * Indexed by the width of the bit block just shifted in; the middle
 * bits of the block are inverted.  Empirically derived.
 */
var missed_edge_flip_mask = [11]uint32{
	0, 0x01, 0x03, 0x02, 0x06, 0x0e, 0x1e, 0x3e, 0x7e, 0xfe, 0x1fe,
}

/*-------------------------------------------------------------------
 *
 * Name:	Tuning
 *
 * Purpose:	Per-transceiver copy of the constants above, scaled to
 *		the actual CPU frequency and carrying the few run-time
 *		switches.
 *
 *--------------------------------------------------------------------*/

type Tuning struct {
	CpuHz uint32 // CPU cycle counter frequency.

	BitCycles uint32 // One time-slot in cycles.

	BitClassLimit [6]uint32
	FormulaOffset uint32
	FormulaDiv    uint32

	JitterFloorPerBit uint32
	FlipLastBitJitter uint32
	SofRunComp        uint32

	AckWindowLo   uint32
	AckWindowHi   uint32
	AckTimeoutCyc uint32

	IfsCycles uint32

	// Strict Manchester validation at every symbol boundary.  Off by
	// default: the check costs cycles the edge handler rarely has, and
	// the CRC catches what it would.
	StrictManchester bool

	// Record per-edge and per-IFS samples for offline inspection.
	DebugCapture bool
}

func scale_cycles(base uint32, cpu_hz uint32) uint32 {
	return uint32(uint64(base) * uint64(cpu_hz) / BASE_CPU_HZ)
}

/*-------------------------------------------------------------------
 *
 * Name:	default_tuning
 *
 * Purpose:	Build the constant set for a given CPU frequency.
 *
 * Inputs:	cpu_hz	- Cycle counter frequency.  0 means 80 MHz.
 *
 *--------------------------------------------------------------------*/

func default_tuning(cpu_hz uint32) *Tuning {
	if cpu_hz == 0 {
		cpu_hz = BASE_CPU_HZ
	}

	var t = &Tuning{
		CpuHz:             cpu_hz,
		BitCycles:         scale_cycles(NOMINAL_BIT_CYCLES, cpu_hz),
		FormulaOffset:     scale_cycles(BITS_FORMULA_OFFSET, cpu_hz),
		FormulaDiv:        scale_cycles(BITS_FORMULA_DIVISOR, cpu_hz),
		JitterFloorPerBit: scale_cycles(JITTER_FLOOR_PER_BIT, cpu_hz),
		FlipLastBitJitter: scale_cycles(FLIP_LAST_BIT_JITTER, cpu_hz),
		SofRunComp:        scale_cycles(SOF_RUN_COMPENSATION, cpu_hz),
		AckWindowLo:       scale_cycles(ACK_WINDOW_LO, cpu_hz),
		AckWindowHi:       scale_cycles(ACK_WINDOW_HI, cpu_hz),
	}

	for i, v := range bit_class_limit {
		t.BitClassLimit[i] = scale_cycles(v, cpu_hz)
	}

	t.AckTimeoutCyc = ACK_TIMEOUT_SLOTS * t.BitCycles
	t.IfsCycles = IFS_BITS * t.BitCycles

	return t
}
