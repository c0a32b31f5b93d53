package vanbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxEmitsExpectedBits(t *testing.T) {
	var tr, sim = sim_transceiver(t, nil)

	require.True(t, tr.SendAsync(0x8A4, 0, []byte{0x0F, 0x07, 0x00, 0x00, 0x00, 0x00, 0x70}, 10))

	sim.advance(200 * sim.bit_period)

	assert.Equal(t, uint32(1), tr.TxCount())

	var p = &tr.txq.slots[0]
	var want_bits = p.total_bits()

	// One level per tick, plus the final release to recessive.
	require.Len(t, sim.tx_trace, want_bits+1)
	for i := 0; i < want_bits; i++ {
		assert.Equal(t, PinLevel(p.symbol_bit(i)), sim.tx_trace[i], "bit %d", i)
	}
	assert.Equal(t, LEVEL_RECESSIVE, sim.tx_trace[want_bits])

	// The stream opens with the SOF pattern.
	var sof = []PinLevel{0, 0, 0, 0, 1, 1, 1, 1, 0, 1}
	assert.Equal(t, sof, sim.tx_trace[:10])
}

func TestTxHonorsIfs(t *testing.T) {
	var tr, sim = sim_transceiver(t, nil)

	// Fresh media access: the scheduler must idle 13 bit times.
	tr.last_media_access.Store(sim.cycles)

	require.True(t, tr.SendAsync(0x123, 0, nil, 10))
	sim.advance(100 * sim.bit_period)

	assert.Equal(t, uint32(1), tr.TxCount())

	var p = &tr.txq.slots[0]
	assert.GreaterOrEqual(t, p.IfsCycles, tr.tuning.IfsCycles,
		"no transmission before 13 bit times of quiet bus")
	assert.Positive(t, tr.tx_sched.n_bus_occupied,
		"the early ticks found the bus occupied")
}

func TestTxCollisionBackoffAndGiveUp(t *testing.T) {
	var tr, sim = sim_transceiver(t, nil)

	// A stronger device holds the bus dominant throughout.
	sim.peer_level = LEVEL_DOMINANT

	require.True(t, tr.SendAsync(0x123, 0, nil, 10))
	sim.advance(50 * sim.bit_period)

	assert.Zero(t, tr.TxCount())
	assert.Equal(t, uint32(1), tr.tx_sched.n_max_collision_errors)

	var p = &tr.txq.slots[0]
	assert.Equal(t, MAX_COLLISIONS, p.Collisions)
	assert.Equal(t, 0, p.FirstCollisionBit)
	assert.Equal(t, TX_DONE, p.State, "slot freed after giving up")
	assert.False(t, tr.tx_sched.timer_live)
}

func TestTxCollisionRetrySucceeds(t *testing.T) {
	var tr, sim = sim_transceiver(t, nil)

	sim.peer_level = LEVEL_DOMINANT
	require.True(t, tr.SendAsync(0x123, 0, nil, 10))

	// Three collisions - each attempt arms on one tick and detects the
	// foreign dominant level on the next - then the device goes quiet.
	sim.advance(6 * sim.bit_period)
	sim.peer_level = LEVEL_RECESSIVE
	sim.advance(100 * sim.bit_period)

	assert.Equal(t, uint32(1), tr.TxCount())

	var p = &tr.txq.slots[0]
	assert.Equal(t, 3, p.Collisions)
	assert.Equal(t, 0, p.FirstCollisionBit)
	assert.True(t, p.BitOk)
	assert.False(t, p.BitError)
}

func TestTxFifoTwoFrames(t *testing.T) {
	var tr, sim = sim_transceiver(t, nil)

	require.True(t, tr.SendAsync(0x111, 0, []byte{0x01}, 10))
	require.True(t, tr.SendAsync(0x222, 0, []byte{0x02}, 10))

	sim.advance(500 * sim.bit_period)
	assert.Equal(t, uint32(2), tr.TxCount())

	// The scheduler never interleaves: the first frame's symbols all
	// precede the second frame's SOF in the trace.
	var first, second = &tr.txq.slots[0], &tr.txq.slots[1]
	var n1, n2 = first.total_bits(), second.total_bits()
	require.Len(t, sim.tx_trace, n1+1+n2+1)
	for i := 0; i < n1; i++ {
		assert.Equal(t, PinLevel(first.symbol_bit(i)), sim.tx_trace[i], "frame 1 bit %d", i)
	}
	for i := 0; i < n2; i++ {
		assert.Equal(t, PinLevel(second.symbol_bit(i)), sim.tx_trace[n1+1+i], "frame 2 bit %d", i)
	}
	assert.False(t, tr.tx_sched.timer_live, "timer released once drained")
}

func TestTxRxRoundTripOverTrace(t *testing.T) {
	// Transmit on one simulated bus, replay the recorded pin levels
	// into a second transceiver's receiver.
	var tr, sim = sim_transceiver(t, nil)

	var data = []byte{0x0F, 0x07, 0x00, 0x00, 0x00, 0x00, 0x70}
	require.True(t, tr.SendAsync(0x8A4, 0, data, 10))
	sim.advance(200 * sim.bit_period)
	require.Equal(t, uint32(1), tr.TxCount())

	var rx, rsim = sim_transceiver(t, nil)

	var bits = make([]int, 0, len(sim.tx_trace))
	for _, l := range sim.tx_trace {
		bits = append(bits, int(l))
	}
	rsim.inject_bits(bits, rsim.obs_bit)
	rsim.advance((ACK_TIMEOUT_SLOTS + 8) * rsim.obs_bit)

	var p RxPacket
	require.True(t, rx.Receive(&p, nil))
	assert.True(t, p.CheckCrc())
	assert.Equal(t, uint16(0x8A4), p.Iden())
	assert.Equal(t, data, append([]byte{}, p.Data()...))
	assert.Equal(t, refFrameBytes, p.Bytes[:p.Length])
}
