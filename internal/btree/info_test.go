package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/types"
)

func TestInfoReader_DecodesFlagsAndCounts(t *testing.T) {
	root := newOmapRootLeaf(t)

	info, ok := root.InfoReader()
	require.True(t, ok)
	require.Equal(t, uint32(16), info.KeySize())
	require.Equal(t, uint32(16), info.ValueSize())
	require.False(t, info.IsHashed())
	require.False(t, info.HasUint64Keys())
}

func TestInfoReader_FalseForNonRootNode(t *testing.T) {
	root := newOmapRootLeaf(t)
	root.phys.BtnFlags &^= types.BtnodeRoot

	_, ok := root.InfoReader()
	require.False(t, ok)
}
