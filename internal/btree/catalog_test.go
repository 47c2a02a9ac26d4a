package btree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/types"
)

// newCatalogRootLeaf builds an empty root-and-leaf node for a
// variable-key-size catalog tree (kvloc_t toc entries).
func newCatalogRootLeaf(t *testing.T) *Node {
	t.Helper()

	raw := make([]byte, testNodeSize)
	const initialSlots = 8
	tocLen := initialSlots * kvlocEntrySize
	tableSpace := types.NlocT{Off: 0, Len: uint16(tocLen)}

	dataLen := testNodeSize - nodeHeaderSize
	freeLen := dataLen - infoSize - tocLen
	freeSpace := types.NlocT{Off: 0, Len: uint16(freeLen)}

	flags := types.BtnodeRoot | types.BtnodeLeaf
	binary.LittleEndian.PutUint16(raw[32:34], flags)
	binary.LittleEndian.PutUint16(raw[34:36], 0)
	binary.LittleEndian.PutUint32(raw[36:40], 0)
	writeNloc(raw[40:44], tableSpace)
	writeNloc(raw[44:48], freeSpace)
	writeNloc(raw[48:52], types.NlocT{Off: types.BtoffInvalid, Len: 0})
	writeNloc(raw[52:56], types.NlocT{Off: types.BtoffInvalid, Len: 0})

	require.NoError(t, objects.Recompute(&types.ObjPhysT{}, raw))

	node, err := Parse(raw)
	require.NoError(t, err)
	return node
}

func catalogHeaderBytes(id uint64, typ types.JObjType) []byte {
	hdr := (id & objIDMask) | (uint64(typ) << objTypeShift)
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, hdr)
	return b
}

func inodeKeyBytes(ino uint64) []byte {
	return catalogHeaderBytes(ino, types.JObjTypeInode)
}

func fileExtentKeyBytes(ino, logicalOffset uint64) []byte {
	b := catalogHeaderBytes(ino, types.JObjTypeFileExtent)
	tail := make([]byte, 8)
	binary.LittleEndian.PutUint64(tail, logicalOffset)
	return append(b, tail...)
}

func drecKeyBytes(parentIno uint64, name string) []byte {
	b := catalogHeaderBytes(parentIno, types.JObjTypeDirRec)
	tail := make([]byte, 4+len(name))
	binary.LittleEndian.PutUint32(tail[0:4], uint32(len(name)))
	copy(tail[4:], name)
	return append(b, tail...)
}

func xattrKeyBytes(ino uint64, name string) []byte {
	b := catalogHeaderBytes(ino, types.JObjTypeXattr)
	tail := make([]byte, 2+len(name))
	binary.LittleEndian.PutUint16(tail[0:2], uint16(len(name)))
	copy(tail[2:], name)
	return append(b, tail...)
}

func TestCatalog_InsertAndFindInode(t *testing.T) {
	node := newCatalogRootLeaf(t)
	key := types.NewInodeKey(100)
	require.NoError(t, node.Insert(key, types.KindCatalog, inodeKeyBytes(100), []byte("inode-body"), false))

	q := NewQuery(erroringLoader{t}, types.KindCatalog, node.Info())
	defer q.Release()

	res, err := q.Run(node, key)
	require.NoError(t, err)
	require.Equal(t, "inode-body", string(res.Value))
}

func TestCatalog_FileExtentOrdersByLogicalOffset(t *testing.T) {
	node := newCatalogRootLeaf(t)

	far := types.NewFileExtentKey(5, 8192)
	near := types.NewFileExtentKey(5, 0)
	require.NoError(t, node.Insert(far, types.KindCatalog, fileExtentKeyBytes(5, 8192), []byte("far"), false))
	require.NoError(t, node.Insert(near, types.KindCatalog, fileExtentKeyBytes(5, 0), []byte("near"), false))

	rawKey, _, _, err := node.Entry(0, 0, 0)
	require.NoError(t, err)
	decoded, err := DecodeKey(rawKey, types.KindCatalog)
	require.NoError(t, err)
	require.Equal(t, uint64(0), decoded.Number)
}

func TestCatalog_DirEntryOrdersByName(t *testing.T) {
	node := newCatalogRootLeaf(t)

	beta := types.NewDrecKey(1, "beta")
	alpha := types.NewDrecKey(1, "alpha")
	require.NoError(t, node.Insert(beta, types.KindCatalog, drecKeyBytes(1, "beta"), []byte{}, false))
	require.NoError(t, node.Insert(alpha, types.KindCatalog, drecKeyBytes(1, "alpha"), []byte{}, false))

	rawKey, _, _, err := node.Entry(0, 0, 0)
	require.NoError(t, err)
	decoded, err := DecodeKey(rawKey, types.KindCatalog)
	require.NoError(t, err)
	require.Equal(t, "alpha", decoded.Name)
}

func TestCatalog_XattrFindByName(t *testing.T) {
	node := newCatalogRootLeaf(t)
	key := types.NewXattrKey(3, "com.apple.test")
	require.NoError(t, node.Insert(key, types.KindCatalog, xattrKeyBytes(3, "com.apple.test"), []byte("value"), false))

	q := NewQuery(erroringLoader{t}, types.KindCatalog, node.Info())
	defer q.Release()

	res, err := q.Run(node, key)
	require.NoError(t, err)
	require.Equal(t, "value", string(res.Value))
}

func TestCatalog_DStreamIDKeyFindByID(t *testing.T) {
	node := newCatalogRootLeaf(t)
	key := types.NewDStreamIDKey(77)
	require.NoError(t, node.Insert(key, types.KindCatalog, catalogHeaderBytes(77, types.JObjTypeDStreamID), []byte("stream"), false))

	q := NewQuery(erroringLoader{t}, types.KindCatalog, node.Info())
	defer q.Release()

	res, err := q.Run(node, key)
	require.NoError(t, err)
	require.Equal(t, "stream", string(res.Value))
}

func TestNewFreeQueueKey_OrdersByXidThenPaddr(t *testing.T) {
	a := types.NewFreeQueueKey(1, 500)
	b := types.NewFreeQueueKey(2, 1)
	require.Negative(t, Compare(a, b, types.KindFreeQueue))
}
