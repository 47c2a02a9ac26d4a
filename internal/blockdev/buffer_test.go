package blockdev

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlush_WritesDirtyBufferAndClearsFlags(t *testing.T) {
	device := NewMemDevice(16)
	data := make([]byte, 16)
	data[0] = 0xAB

	buf := NewBuffer(3, data)
	buf.MarkDirty()
	require.NoError(t, Flush(device, buf))
	require.False(t, buf.IsDirty())

	got, err := device.ReadBlock(3)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), got[0])
}

func TestFlush_SkipsCleanBuffer(t *testing.T) {
	device := NewMemDevice(16)
	buf := NewBuffer(3, make([]byte, 16))

	require.NoError(t, Flush(device, buf))
	require.False(t, device.IsValidAddress(3))
}

func TestFlush_RefusesChecksumPendingBuffer(t *testing.T) {
	device := NewMemDevice(16)
	buf := NewBuffer(3, make([]byte, 16))
	buf.MarkDirty()
	buf.SetChecksumPending()

	require.Error(t, Flush(device, buf))
	require.False(t, device.IsValidAddress(3))

	buf.ClearPending()
	buf.MarkDirty()
	require.NoError(t, Flush(device, buf))
}
