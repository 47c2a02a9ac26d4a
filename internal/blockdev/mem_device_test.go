package blockdev

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/types"
)

func TestMemDevice_WriteThenRead(t *testing.T) {
	dev := NewMemDevice(4096)
	block := make([]byte, 4096)
	block[0] = 0xAB

	require.NoError(t, dev.WriteBlock(10, block))
	got, err := dev.ReadBlock(10)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), got[0])
	require.True(t, dev.IsValidAddress(10))
	require.False(t, dev.IsValidAddress(11))
}

func TestMemDevice_ReadMissingBlockFails(t *testing.T) {
	dev := NewMemDevice(4096)
	_, err := dev.ReadBlock(5)
	require.Error(t, err)
}

func TestMemDevice_ReadBytesRespectsOffsetAndLength(t *testing.T) {
	dev := NewMemDevice(16)
	dev.SetBlock(0, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	got, err := dev.ReadBytes(0, 4, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 7}, got)

	_, err = dev.ReadBytes(0, 14, 4)
	require.Error(t, err)
}

func TestBuffer_RetainReleaseAndDirtyTracking(t *testing.T) {
	buf := NewBuffer(types.Paddr(3), []byte{1, 2, 3})
	require.False(t, buf.IsDirty())

	buf.Retain()
	require.Equal(t, 1, buf.Release())

	buf.MarkDirty()
	buf.SetChecksumPending()
	require.True(t, buf.IsDirty())
	require.True(t, buf.ChecksumPending())

	buf.ClearPending()
	require.False(t, buf.IsDirty())
	require.False(t, buf.ChecksumPending())
}
