package btree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/types"
)

func fqKeyBytes(xid types.XidT, paddr types.Paddr) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], uint64(xid))
	binary.LittleEndian.PutUint64(b[8:16], uint64(paddr))
	return b
}

// TestMultiQuery_ScansDirectoryEntries enumerates every directory entry of
// one parent with a single nameless target key: Run lands on the greatest
// matching name and each Next steps to the previous one, stopping at the
// first record of a different type or parent.
func TestMultiQuery_ScansDirectoryEntries(t *testing.T) {
	node := newCatalogRootLeaf(t)

	require.NoError(t, node.Insert(types.NewInodeKey(1), types.KindCatalog, inodeKeyBytes(1), []byte("dir-inode"), false))
	for _, name := range []string{"beta", "gamma", "alpha"} {
		key := types.NewDrecKey(1, name)
		require.NoError(t, node.Insert(key, types.KindCatalog, drecKeyBytes(1, name), []byte(name), false))
	}
	require.NoError(t, node.Insert(types.NewDrecKey(2, "other"), types.KindCatalog, drecKeyBytes(2, "other"), []byte("other"), false))

	q := NewMultiQuery(erroringLoader{t}, types.KindCatalog, node.Info())
	defer q.Release()

	res, err := q.Run(node, types.NewDrecKey(1, ""))
	require.NoError(t, err)
	require.Equal(t, "gamma", res.Key.Name)

	res, err = q.Next()
	require.NoError(t, err)
	require.Equal(t, "beta", res.Key.Name)

	res, err = q.Next()
	require.NoError(t, err)
	require.Equal(t, "alpha", res.Key.Name)

	_, err = q.Next()
	require.ErrorIs(t, err, apfserr.NotFound)
}

// TestMultiQuery_CrossesSiblingBoundaries scans a free-queue range that
// spans two leaves: the wildcard paddr matches every entry at the target
// xid, and the scan must hop from the right sibling into the left one
// through the retained parent chain.
func TestMultiQuery_CrossesSiblingBoundaries(t *testing.T) {
	leafA := buildFixedNode(t, 100, leafFlags, []nodeEntry{
		{key: fqKeyBytes(5, 10), val: omapValBytes(1)},
		{key: fqKeyBytes(5, 20), val: omapValBytes(2)},
	})
	leafB := buildFixedNode(t, 200, leafFlags, []nodeEntry{
		{key: fqKeyBytes(5, 30), val: omapValBytes(3)},
		{key: fqKeyBytes(6, 40), val: omapValBytes(4)},
	})
	root := buildFixedNode(t, 1, rootNonleafFlags, []nodeEntry{
		{key: fqKeyBytes(5, 10), val: childPointerVal(100)},
		{key: fqKeyBytes(5, 30), val: childPointerVal(200)},
	})

	loader := staticLoader{100: leafA, 200: leafB}
	q := NewMultiQuery(loader, types.KindFreeQueue, root.Info())
	defer q.Release()

	var paddrs []uint64
	res, err := q.Run(root, types.NewFreeQueueKey(5, 0))
	require.NoError(t, err)
	for err == nil {
		paddrs = append(paddrs, res.Key.Number)
		res, err = q.Next()
	}
	require.ErrorIs(t, err, apfserr.NotFound)
	require.Equal(t, []uint64{30, 20, 10}, paddrs)
}

// TestMultiQuery_NoMatchReturnsNotFound targets a directory with no
// entries: the floor record belongs to another parent, so the scan never
// starts.
func TestMultiQuery_NoMatchReturnsNotFound(t *testing.T) {
	node := newCatalogRootLeaf(t)
	require.NoError(t, node.Insert(types.NewDrecKey(1, "only"), types.KindCatalog, drecKeyBytes(1, "only"), []byte("v"), false))

	q := NewMultiQuery(erroringLoader{t}, types.KindCatalog, node.Info())
	defer q.Release()

	_, err := q.Run(node, types.NewDrecKey(9, ""))
	require.ErrorIs(t, err, apfserr.NotFound)

	_, err = q.Next()
	require.ErrorIs(t, err, apfserr.NotFound)
}

func TestQuery_NextRejectsSingleRecordQuery(t *testing.T) {
	node := newOmapRootLeaf(t)
	q := NewQuery(erroringLoader{t}, types.KindOmap, node.Info())
	defer q.Release()

	_, err := q.Next()
	require.ErrorIs(t, err, apfserr.Corrupted)
}

// TestQuery_CorruptedChildPointerLengthFails feeds the descent a nonleaf
// record whose value is 7 bytes instead of a bare 8-byte object id. The
// query must fail with a corruption error rather than read past the
// record.
func TestQuery_CorruptedChildPointerLengthFails(t *testing.T) {
	raw := make([]byte, testNodeSize)
	tocLen := 8 * kvlocEntrySize

	binary.LittleEndian.PutUint16(raw[32:34], types.BtnodeRoot)
	binary.LittleEndian.PutUint16(raw[34:36], 1)
	binary.LittleEndian.PutUint32(raw[36:40], 1)
	writeNloc(raw[40:44], types.NlocT{Off: 0, Len: uint16(tocLen)})
	writeNloc(raw[48:52], types.NlocT{Off: types.BtoffInvalid, Len: 0})
	writeNloc(raw[52:56], types.NlocT{Off: types.BtoffInvalid, Len: 0})

	data := raw[nodeHeaderSize:]
	valueAreaEnd := len(data) - infoSize
	copy(data[tocLen:], omapKeyBytes(1, 1))
	copy(data[valueAreaEnd-7:], []byte{1, 2, 3, 4, 5, 6, 7})

	binary.LittleEndian.PutUint16(data[0:2], 0)  // key off
	binary.LittleEndian.PutUint16(data[2:4], 16) // key len
	binary.LittleEndian.PutUint16(data[4:6], 7)  // val off
	binary.LittleEndian.PutUint16(data[6:8], 7)  // val len: not a child oid

	free := valueAreaEnd - tocLen - 16 - 7
	writeNloc(raw[44:48], types.NlocT{Off: 16, Len: uint16(free)})

	require.NoError(t, objects.Recompute(&types.ObjPhysT{}, raw))
	node, err := Parse(raw)
	require.NoError(t, err)

	q := NewQuery(staticLoader{}, types.KindOmap, node.Info())
	defer q.Release()

	_, err = q.Run(node, types.Key{Id: 1, Xid: 1})
	require.ErrorIs(t, err, apfserr.Corrupted)
}
