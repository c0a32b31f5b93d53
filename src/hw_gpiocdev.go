package vanbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Real GPIO hardware through the Linux character device.
 *
 * Description: Edge events come from the kernel with their own
 *		monotonic timestamps, which is what makes this viable
 *		at all: the event handler may run late, but the
 *		timestamp was taken in the kernel at the edge.  The
 *		jitter-carry machinery in the decoder absorbs the rest.
 *
 *		The "CPU cycle counter" is synthesized at the baseline
 *		80 MHz from CLOCK_MONOTONIC, so all the empirical
 *		constants apply unscaled.
 *
 *		Timer fidelity is the weak spot of a hosted platform:
 *		an 8 us periodic tick is at the mercy of the scheduler.
 *		Transmission works on a quiet realtime-priority system
 *		and is best-effort anywhere else.
 *
 *---------------------------------------------------------------*/

type gpiocdev_hw struct {
	chip    string
	rx_line int
	tx_line int

	rx_req *gpiocdev.Line
	tx_req *gpiocdev.Line

	mu      sync.Mutex
	handler EdgeFunc

	ack_timer *time.Timer

	bit_stop chan struct{}
}

/*-------------------------------------------------------------------
 *
 * Name:	NewGpioHardware
 *
 * Purpose:	Open the GPIO lines for a transceiver.
 *
 * Inputs:	cfg	- Chip and line numbers.  The chip may be named
 *			  directly or discovered by udev label.
 *
 *--------------------------------------------------------------------*/

func NewGpioHardware(cfg *Config) (Hardware, error) {
	var chip = cfg.Chip
	if chip == "" && cfg.ChipLabel != "" {
		var found, err = find_gpiochip_by_label(cfg.ChipLabel)
		if err != nil {
			return nil, err
		}
		chip = found
	}
	if chip == "" {
		chip = "gpiochip0"
	}

	var hw = &gpiocdev_hw{
		chip:    chip,
		rx_line: cfg.RxPin,
		tx_line: cfg.TxPin,
	}

	if cfg.TxPin >= 0 {
		var req, err = gpiocdev.RequestLine(chip, cfg.TxPin,
			gpiocdev.AsOutput(physical_of(LEVEL_RECESSIVE)))
		if err != nil {
			return nil, fmt.Errorf("requesting tx line %d on %s: %w", cfg.TxPin, chip, err)
		}
		hw.tx_req = req
	}

	return hw, nil
}

// Physical pin value for a logical level, honoring inverted wiring.
func physical_of(level PinLevel) int {
	if VAN_BIT_INVERTED_WIRING {
		return 1 - int(level)
	}
	return int(level)
}

func logical_of(value int) PinLevel {
	if VAN_BIT_INVERTED_WIRING {
		value = 1 - value
	}
	return PinLevel(value)
}

func mono_ns() uint64 {
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return uint64(ts.Sec)*1000000000 + uint64(ts.Nsec)
}

// ns_to_cycles maps nanoseconds onto the synthetic 80 MHz counter.
func ns_to_cycles(ns uint64) uint32 {
	return uint32(ns / 25 * 2)
}

func (h *gpiocdev_hw) AttachRxEdge(fn EdgeFunc) error {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()

	if h.rx_req != nil {
		return nil // Line already requested; handler swapped.
	}

	var eh = func(evt gpiocdev.LineEvent) {
		var level = logical_of(IfThenElse(evt.Type == gpiocdev.LineEventRisingEdge, 1, 0))

		h.mu.Lock()
		var fn = h.handler
		h.mu.Unlock()
		if fn != nil {
			fn(level, ns_to_cycles(uint64(evt.Timestamp)))
		}
	}

	var req, err = gpiocdev.RequestLine(h.chip, h.rx_line,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(eh))
	if err != nil {
		return fmt.Errorf("requesting rx line %d on %s: %w", h.rx_line, h.chip, err)
	}
	h.rx_req = req
	return nil
}

func (h *gpiocdev_hw) DetachRxEdge() {
	// The line request is kept; only the dispatch stops.  Releasing
	// and re-requesting the line per frame would cost far more than a
	// bit time.
	h.mu.Lock()
	h.handler = nil
	h.mu.Unlock()
}

func (h *gpiocdev_hw) ReadRxPin() PinLevel {
	if h.rx_req == nil {
		return LEVEL_RECESSIVE
	}
	var v, err = h.rx_req.Value()
	if err != nil {
		return LEVEL_RECESSIVE
	}
	return logical_of(v)
}

func (h *gpiocdev_hw) SetTxPin(level PinLevel) {
	if h.tx_req != nil {
		_ = h.tx_req.SetValue(physical_of(level))
	}
}

func (h *gpiocdev_hw) ReadTxPin() PinLevel {
	if h.tx_req == nil {
		return LEVEL_RECESSIVE
	}
	var v, err = h.tx_req.Value()
	if err != nil {
		return LEVEL_RECESSIVE
	}
	return logical_of(v)
}

func (h *gpiocdev_hw) Cycles() uint32 { return ns_to_cycles(mono_ns()) }

func (h *gpiocdev_hw) CyclesPerSecond() uint32 { return BASE_CPU_HZ }

func (h *gpiocdev_hw) Millis() uint32 { return uint32(mono_ns() / 1000000) }

func (h *gpiocdev_hw) StartAckTimer(cycles uint32, fn func()) {
	h.CancelAckTimer()
	var d = time.Duration(uint64(cycles) * 25 / 2) // cycles -> ns at 80 MHz
	h.ack_timer = time.AfterFunc(d, fn)
}

func (h *gpiocdev_hw) CancelAckTimer() {
	if h.ack_timer != nil {
		h.ack_timer.Stop()
	}
}

func (h *gpiocdev_hw) StartBitTimer(fn func()) error {
	if h.tx_req == nil {
		return fmt.Errorf("no tx line configured")
	}
	if h.bit_stop != nil {
		return nil
	}

	// Period derived from the host timer resolution: one VAN bit.
	var period = time.Second / VAN_BIT_RATE

	var stop = make(chan struct{})
	h.bit_stop = stop

	go func() {
		var tick = time.NewTicker(period)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				fn()
			}
		}
	}()

	return nil
}

func (h *gpiocdev_hw) StopBitTimer() {
	if h.bit_stop != nil {
		close(h.bit_stop)
		h.bit_stop = nil
	}
}

// Close releases the GPIO lines.
func (h *gpiocdev_hw) Close() {
	h.StopBitTimer()
	h.CancelAckTimer()
	if h.rx_req != nil {
		_ = h.rx_req.Close()
	}
	if h.tx_req != nil {
		_ = h.tx_req.Close()
	}
}
