package omap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/blockdev"
	"github.com/apfsdev/btreeengine/internal/btree"
	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/types"
)

const testNodeSize = 512
const tocSlots = 8
const kvoffEntrySize = 4
const nodeHeaderSize = 56
const infoSize = 40

func omapValBytes(paddr types.Paddr) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[8:16], uint64(paddr))
	return b
}

func omapKeyBytes(oid types.OidT, xid types.XidT) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], uint64(oid))
	binary.LittleEndian.PutUint64(b[8:16], uint64(xid))
	return b
}

func writeNloc(b []byte, off, length uint16) {
	binary.LittleEndian.PutUint16(b[0:2], off)
	binary.LittleEndian.PutUint16(b[2:4], length)
}

// buildOmapRootLeaf builds a standalone root-and-leaf omap node at a given
// physical address inside device, returning the parsed node.
func buildOmapRootLeaf(t *testing.T, device *blockdev.MemDevice, addr types.Paddr) *btree.Node {
	t.Helper()

	raw := make([]byte, testNodeSize)
	tocLen := tocSlots * kvoffEntrySize
	dataLen := testNodeSize - nodeHeaderSize
	freeLen := dataLen - infoSize - tocLen

	binary.LittleEndian.PutUint16(raw[32:34], types.BtnodeRoot|types.BtnodeLeaf|types.BtnodeFixedKvSize)
	binary.LittleEndian.PutUint16(raw[34:36], 0)
	binary.LittleEndian.PutUint32(raw[36:40], 0)
	writeNloc(raw[40:44], 0, uint16(tocLen))
	writeNloc(raw[44:48], 0, uint16(freeLen))
	writeNloc(raw[48:52], types.BtoffInvalid, 0)
	writeNloc(raw[52:56], types.BtoffInvalid, 0)

	tail := raw[len(raw)-infoSize:]
	binary.LittleEndian.PutUint32(tail[8:12], 16)
	binary.LittleEndian.PutUint32(tail[12:16], 16)

	require.NoError(t, objects.Recompute(&types.ObjPhysT{}, raw))
	device.SetBlock(addr, raw)

	node, err := btree.Parse(raw)
	require.NoError(t, err)
	return node
}

func TestMap_LookupFindsExactEntry(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)

	key := types.Key{Id: 55, Xid: 3}
	require.NoError(t, root.Insert(key, types.KindOmap, omapKeyBytes(55, 3), omapValBytes(777), false))

	m := New(root, device)
	paddr, err := m.Lookup(55, 3)
	require.NoError(t, err)
	require.Equal(t, types.Paddr(777), paddr)
}

func TestMap_LookupPicksNewestSnapshotAtOrBeforeXid(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)

	require.NoError(t, root.Insert(types.Key{Id: 1, Xid: 5}, types.KindOmap, omapKeyBytes(1, 5), omapValBytes(500), false))
	require.NoError(t, root.Insert(types.Key{Id: 1, Xid: 2}, types.KindOmap, omapKeyBytes(1, 2), omapValBytes(200), false))

	m := New(root, device)
	paddr, err := m.Lookup(1, 4)
	require.NoError(t, err)
	require.Equal(t, types.Paddr(200), paddr)
}

func TestMap_LookupMissingOidFails(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)

	m := New(root, device)
	_, err := m.Lookup(99, 1)
	require.ErrorIs(t, err, apfserr.NotFound)
}

func TestMap_LookupForWriteSucceedsOnRootLeaf(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)
	require.NoError(t, root.Insert(types.Key{Id: 1, Xid: 1}, types.KindOmap, omapKeyBytes(1, 1), omapValBytes(1), false))

	m := New(root, device)
	res, err := m.LookupForWrite(1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Key.Id)
}

func TestMap_RewriteUpdatesPhysicalAddress(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)
	require.NoError(t, root.Insert(types.Key{Id: 1, Xid: 1}, types.KindOmap, omapKeyBytes(1, 1), omapValBytes(100), false))

	m := New(root, device)
	found, err := m.LookupForWrite(1, 1)
	require.NoError(t, err)

	raw, err := Rewrite(found, 2, 999)
	require.NoError(t, err)

	reparsed, err := btree.Parse(raw)
	require.NoError(t, err)
	m2 := New(reparsed, device)

	paddr, err := m2.Lookup(1, 2)
	require.NoError(t, err)
	require.Equal(t, types.Paddr(999), paddr)

	_, err = m2.Lookup(1, 1)
	require.ErrorIs(t, err, apfserr.NotFound)
}

// TestMap_CommitRewritePersistsThroughDevice runs the whole copy-on-write
// path: lookup for write, rewrite, and the buffered write-back, then
// re-reads the omap root from the device to confirm the new mapping
// survived the round trip.
func TestMap_CommitRewritePersistsThroughDevice(t *testing.T) {
	device := blockdev.NewMemDevice(uint32(testNodeSize))
	root := buildOmapRootLeaf(t, device, 10)
	require.NoError(t, root.Insert(types.Key{Id: 7, Xid: 100}, types.KindOmap, omapKeyBytes(7, 100), omapValBytes(400), false))

	m := New(root, device)
	found, err := m.LookupForWrite(7, 100)
	require.NoError(t, err)

	require.NoError(t, m.CommitRewrite(device, 10, found, 300, 555))

	raw, err := device.ReadBlock(10)
	require.NoError(t, err)
	reparsed, err := btree.Parse(raw)
	require.NoError(t, err)

	paddr, err := New(reparsed, device).Lookup(7, 300)
	require.NoError(t, err)
	require.Equal(t, types.Paddr(555), paddr)
}
