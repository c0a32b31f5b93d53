package vanbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitEstimateObservedDurations(t *testing.T) {
	var tun = default_tuning(0)

	// Edges are never observed early; the classification table is
	// anchored at the observed (latency-stretched) per-bit duration.
	var cases = []struct {
		cycles uint32
		nbits  int
	}{
		{1 * OBSERVED_BIT_CYCLES, 1},
		{2 * OBSERVED_BIT_CYCLES, 2},
		{3 * OBSERVED_BIT_CYCLES, 3},
		{4 * OBSERVED_BIT_CYCLES, 4},
		{5 * OBSERVED_BIT_CYCLES, 5},
		{6 * OBSERVED_BIT_CYCLES, 6},
		{7 * OBSERVED_BIT_CYCLES, 7},
		{10 * OBSERVED_BIT_CYCLES, 10},
	}

	for _, c := range cases {
		var nbits, jitter = bit_estimate(tun, c.cycles, 0)
		assert.Equal(t, c.nbits, nbits, "cycles=%d", c.cycles)
		assert.Zero(t, jitter, "steady stream carries nothing, cycles=%d", c.cycles)
	}
}

func TestBitEstimateClassBoundaries(t *testing.T) {
	var tun = default_tuning(0)

	// Just below and at each table limit.  The last limit hands off to
	// the linear formula instead of a fixed class, so it is excluded.
	for n, limit := range tun.BitClassLimit[:5] {
		var below, _ = bit_estimate(tun, limit-1, 0)
		assert.Equal(t, n, below, "below limit %d", limit)

		var at, _ = bit_estimate(tun, limit, 0)
		assert.Equal(t, n+1, at, "at limit %d", limit)
	}
}

func TestBitEstimateZeroCarriesWholeInterval(t *testing.T) {
	var tun = default_tuning(0)

	var nbits, jitter = bit_estimate(tun, 300, 0)
	assert.Equal(t, 0, nbits)
	assert.Equal(t, uint32(300), jitter)

	// Two sub-bit fragments accumulate into one full bit.
	nbits, jitter = bit_estimate(tun, 340, jitter)
	assert.Equal(t, 1, nbits)
	assert.Zero(t, jitter)
}

func TestBitEstimateLateArrivalCarry(t *testing.T) {
	var tun = default_tuning(0)

	// A one-bit interval observed 250 cycles late.
	var nbits, jitter = bit_estimate(tun, OBSERVED_BIT_CYCLES+250, 0)
	assert.Equal(t, 1, nbits)
	assert.Equal(t, uint32(250), jitter)

	// The following interval appears compressed by the same amount and
	// still classifies as one bit thanks to the carry.
	nbits, jitter = bit_estimate(tun, OBSERVED_BIT_CYCLES-250, jitter)
	assert.Equal(t, 1, nbits)
	assert.Zero(t, jitter)
}

func TestBitEstimateLatencySpikeCancels(t *testing.T) {
	var tun = default_tuning(0)

	// A 150-cycle spike on one edge of a run of 4 must not disturb the
	// following run of 4.
	var nbits, jitter = bit_estimate(tun, 4*OBSERVED_BIT_CYCLES+150, 0)
	assert.Equal(t, 4, nbits)

	nbits, _ = bit_estimate(tun, 4*OBSERVED_BIT_CYCLES-150, jitter)
	assert.Equal(t, 4, nbits)
}

func TestBitEstimateScalesWithCpuFrequency(t *testing.T) {
	// 160 MHz: everything doubles.
	var tun = default_tuning(160000000)

	assert.Equal(t, uint32(2*NOMINAL_BIT_CYCLES), tun.BitCycles)

	var nbits, _ = bit_estimate(tun, 2*OBSERVED_BIT_CYCLES, 0)
	assert.Equal(t, 1, nbits)

	nbits, _ = bit_estimate(tun, 2*2*OBSERVED_BIT_CYCLES, 0)
	assert.Equal(t, 2, nbits)
}
