package btree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/types"
)

func catalogKeyBytes(id uint64, typ types.JObjType, tail []byte) []byte {
	hdr := (id & objIDMask) | (uint64(typ) << objTypeShift)
	b := make([]byte, 8+len(tail))
	binary.LittleEndian.PutUint64(b[0:8], hdr)
	copy(b[8:], tail)
	return b
}

func TestDecodeKey_Omap(t *testing.T) {
	raw := omapKeyBytes(42, 7)
	key, err := DecodeKey(raw, types.KindOmap)
	require.NoError(t, err)
	require.Equal(t, uint64(42), key.Id)
	require.Equal(t, types.XidT(7), key.Xid)
}

func TestDecodeKey_FreeQueue(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint64(raw[0:8], 3)
	binary.LittleEndian.PutUint64(raw[8:16], 500)
	key, err := DecodeKey(raw, types.KindFreeQueue)
	require.NoError(t, err)
	require.Equal(t, types.XidT(3), key.Xid)
	require.Equal(t, uint64(500), key.Number)
}

func TestDecodeKey_CatalogFileExtent(t *testing.T) {
	tail := make([]byte, 8)
	binary.LittleEndian.PutUint64(tail, 4096)
	raw := catalogKeyBytes(12, types.JObjTypeFileExtent, tail)
	key, err := DecodeKey(raw, types.KindCatalog)
	require.NoError(t, err)
	require.Equal(t, uint64(12), key.Id)
	require.Equal(t, types.JObjTypeFileExtent, key.Type)
	require.Equal(t, uint64(4096), key.Number)
}

func TestDecodeKey_CatalogDirRec(t *testing.T) {
	name := "hello"
	tail := make([]byte, 4+len(name))
	binary.LittleEndian.PutUint32(tail[0:4], uint32(len(name)))
	copy(tail[4:], name)
	raw := catalogKeyBytes(9, types.JObjTypeDirRec, tail)
	key, err := DecodeKey(raw, types.KindCatalog)
	require.NoError(t, err)
	require.Equal(t, "hello", key.Name)
}

func TestDecodeKey_CatalogXattr(t *testing.T) {
	name := "com.apple.test"
	tail := make([]byte, 2+len(name))
	binary.LittleEndian.PutUint16(tail[0:2], uint16(len(name)))
	copy(tail[2:], name)
	raw := catalogKeyBytes(9, types.JObjTypeXattr, tail)
	key, err := DecodeKey(raw, types.KindCatalog)
	require.NoError(t, err)
	require.Equal(t, "com.apple.test", key.Name)
}

func TestCompare_OmapOrdersByIDThenAscendingXid(t *testing.T) {
	a := types.Key{Id: 1, Xid: 10}
	b := types.Key{Id: 1, Xid: 20}
	require.Negative(t, Compare(a, b, types.KindOmap)) // a's older xid sorts before b's newer xid

	c := types.Key{Id: 2, Xid: 1}
	require.Negative(t, Compare(a, c, types.KindOmap))
}

func TestCompare_FreeQueueOrdersByXidThenPaddr(t *testing.T) {
	a := types.Key{Xid: 1, Number: 50}
	b := types.Key{Xid: 2, Number: 1}
	require.Negative(t, Compare(a, b, types.KindFreeQueue))

	c := types.Key{Xid: 1, Number: 10}
	require.Positive(t, Compare(a, c, types.KindFreeQueue))
}

func TestCompare_CatalogOrdersByIDTypeThenTiebreak(t *testing.T) {
	a := types.Key{Id: 1, Type: types.JObjTypeDirRec, Name: "alpha"}
	b := types.Key{Id: 1, Type: types.JObjTypeDirRec, Name: "beta"}
	require.Negative(t, Compare(a, b, types.KindCatalog))

	c := types.Key{Id: 1, Type: types.JObjTypeFileExtent, Number: 0}
	require.Negative(t, Compare(c, a, types.KindCatalog)) // FileExtent type value < DirRec
}
