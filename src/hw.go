package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Hardware abstraction for the transceiver.
 *
 * Description: The decoder and scheduler only ever see logical bus
 *		levels and CPU cycle counts.  Everything platform
 *		specific - GPIO access, edge interrupts, timers, the
 *		cycle counter - sits behind this interface.
 *
 *		Implementations: hw_gpiocdev.go drives real GPIO lines
 *		through the Linux character device; hw_sim.go is the
 *		simulated bus used by the tests and by vanatest.
 *
 *---------------------------------------------------------------*/

// Logical bus levels.  Dominant wins on the wire.
type PinLevel int

const (
	LEVEL_DOMINANT  PinLevel = 0
	LEVEL_RECESSIVE PinLevel = 1
)

func (l PinLevel) String() string {
	if l == LEVEL_DOMINANT {
		return "dominant"
	}
	return "recessive"
}

// EdgeFunc receives one pin-change event: the logical level sampled at
// entry and the cycle counter at the moment of the edge.
type EdgeFunc func(level PinLevel, cycles uint32)

type Hardware interface {
	// AttachRxEdge installs fn as the pin-change handler for the Rx
	// line.  Implementations must deliver events one at a time.
	AttachRxEdge(fn EdgeFunc) error

	// DetachRxEdge removes the handler.  Used while transmitting so
	// the receiver does not decode its own frame.
	DetachRxEdge()

	// ReadRxPin samples the Rx line right now.
	ReadRxPin() PinLevel

	// SetTxPin drives the Tx line.  Implementations apply the
	// inverted-wiring translation, if configured, on both pins.
	SetTxPin(level PinLevel)

	// ReadTxPin samples the Tx line.  On a shared medium a dominant
	// read against a recessive drive means somebody else is talking.
	ReadTxPin() PinLevel

	// Cycles returns the free-running cycle counter.  Wraps.
	Cycles() uint32

	// CyclesPerSecond returns the counter frequency.
	CyclesPerSecond() uint32

	// Millis returns a millisecond timestamp for packet stamping.
	Millis() uint32

	// StartAckTimer arms a one-shot that calls fn after the given
	// number of cycles.  Re-arming replaces the previous one-shot.
	StartAckTimer(cycles uint32, fn func())

	CancelAckTimer()

	// StartBitTimer calls fn once per VAN bit time until stopped.
	// The period is derived from the platform timer resolution.
	StartBitTimer(fn func()) error

	StopBitTimer()
}
