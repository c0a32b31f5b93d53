package vanbus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketLoggerDisabled(t *testing.T) {
	assert.Nil(t, new_packet_logger(PacketLogConfig{}))
}

func TestPacketLoggerWritesCsv(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "van.log")
	var l = new_packet_logger(PacketLogConfig{Path: path})
	require.NotNil(t, l)
	defer l.close()

	var p = refPacket()
	p.Seqno = 3
	require.NoError(t, l.log_packet(p, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)))

	var raw, err = os.ReadFile(path)
	require.NoError(t, err)

	var lines = strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2, "header plus one record")
	assert.Contains(t, lines[0], "iden")
	assert.Contains(t, lines[1], "8A4")
	assert.Contains(t, lines[1], "0f070000000070")
	assert.Contains(t, lines[1], "true")
}

func TestPacketLoggerDailyNames(t *testing.T) {
	var dir = t.TempDir()
	var l = new_packet_logger(PacketLogConfig{Path: dir, Daily: true})
	defer l.close()

	var p = refPacket()
	require.NoError(t, l.log_packet(p, time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)))
	require.NoError(t, l.log_packet(p, time.Date(2026, 8, 2, 0, 1, 0, 0, time.UTC)))

	var first, err1 = os.ReadFile(filepath.Join(dir, "2026-08-01.log"))
	require.NoError(t, err1)
	var second, err2 = os.ReadFile(filepath.Join(dir, "2026-08-02.log"))
	require.NoError(t, err2)

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
}
