// Package omap implements (oid, xid) -> paddr translation for the object
// map that sits in front of every virtual B-tree (the file-system
// catalog), plus the copy-on-write leaf rewrite path a write-oriented
// lookup takes.
package omap

import (
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/blockdev"
	"github.com/apfsdev/btreeengine/internal/btree"
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// PhysicalLoader implements btree.NodeLoader for a physical tree: the
// object map itself is a physical object, so a child's object identifier
// doubles as the block address to read it from directly, with no omap
// indirection of its own.
type PhysicalLoader struct {
	Device interfaces.BlockDeviceReader
}

// Load implements btree.NodeLoader.
func (l PhysicalLoader) Load(childOID types.OidT) (*btree.Node, error) {
	raw, err := l.Device.ReadBlock(types.Paddr(childOID))
	if err != nil {
		return nil, fmt.Errorf("%w: reading omap child block %d: %v", apfserr.Corrupted, childOID, err)
	}
	return btree.Parse(raw)
}

// Map wraps a parsed object map's root node and the device it reads
// children from.
type Map struct {
	Root   *btree.Node
	Device interfaces.BlockDeviceReader
}

// New builds a Map over an already-parsed omap root node.
func New(root *btree.Node, device interfaces.BlockDeviceReader) *Map {
	return &Map{Root: root, Device: device}
}

// Lookup resolves oid as of xid to a physical block address: an exact
// (oid, xid) hit, or else the newest entry for oid at or before xid. The
// comparator's ascending-xid tiebreak makes the floor search land on that
// entry directly.
func (m *Map) Lookup(oid types.OidT, xid types.XidT) (types.Paddr, error) {
	raw, ghost, err := m.query(oid, xid)
	if err != nil {
		return 0, err
	}
	if ghost {
		return 0, notFoundTombstone(oid)
	}
	val, err := DecodeVal(raw)
	if err != nil {
		return 0, err
	}
	if val.OvFlags&types.OmapValDeleted != 0 {
		return 0, fmt.Errorf("%w: omap entry for oid %d is marked deleted", apfserr.NotFound, oid)
	}
	return val.OvPaddr, nil
}

// LookupForWrite resolves oid as of xid the same way Lookup does, but
// additionally asserts the omap is a single root-and-leaf tree — the only
// shape this engine knows how to rewrite a record in. A multi-level omap
// reaching this path would need the write to propagate up through
// non-leaf nodes, which this engine does not implement.
//
// TODO: once multi-level omap write propagation exists, drop this
// root-and-leaf restriction.
func (m *Map) LookupForWrite(oid types.OidT, xid types.XidT) (btree.Result, error) {
	if !m.Root.IsRoot() || !m.Root.IsLeaf() {
		return btree.Result{}, fmt.Errorf("%w: write lookup requires a root-and-leaf object map", apfserr.Corrupted)
	}
	res, err := m.runQuery(oid, xid)
	if err != nil {
		return btree.Result{}, err
	}
	return res, nil
}

func notFoundTombstone(oid types.OidT) error {
	return fmt.Errorf("%w: omap entry for oid %d is a tombstone", apfserr.NotFound, oid)
}

func (m *Map) query(oid types.OidT, xid types.XidT) (val []byte, ghost bool, err error) {
	res, err := m.runQuery(oid, xid)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ghost, nil
}

func (m *Map) runQuery(oid types.OidT, xid types.XidT) (btree.Result, error) {
	loader := PhysicalLoader{Device: m.Device}
	q := btree.NewQuery(loader, types.KindOmap, m.Root.Info())
	defer q.Release()

	target := types.NewOmapKey(oid, xid)
	res, err := q.Run(m.Root, target)
	if err != nil {
		return btree.Result{}, err
	}
	if res.Key.Id != uint64(oid) {
		return btree.Result{}, fmt.Errorf("%w: no omap entry for oid %d at or before xid %d", apfserr.NotFound, oid, xid)
	}
	return res, nil
}

// Rewrite replaces the leaf record a prior LookupForWrite located with an
// entry carrying the new transaction's xid and physical address,
// recomputing the node's checksum. It only ever touches the single leaf
// found by the lookup, matching the root-and-leaf mutation scope this
// engine supports. A caller resolving the old xid afterward no longer sees
// the rewritten version.
func Rewrite(found btree.Result, newXid types.XidT, newPaddr types.Paddr) ([]byte, error) {
	leaf := found.Leaf
	if !leaf.IsRoot() || !leaf.IsLeaf() {
		return nil, fmt.Errorf("%w: rewrite requires a root-and-leaf object map", apfserr.Corrupted)
	}

	_, rawVal, ghost, err := leaf.Entry(found.Index, leaf.Info().BtFixed.BtKeySize, leaf.Info().BtFixed.BtValSize)
	if err != nil {
		return nil, err
	}
	if ghost {
		return nil, fmt.Errorf("%w: cannot rewrite a tombstone entry", apfserr.Corrupted)
	}
	oldVal, err := DecodeVal(rawVal)
	if err != nil {
		return nil, err
	}

	if err := leaf.Remove(found.Index); err != nil {
		return nil, err
	}

	newKey := types.Key{Id: found.Key.Id, Xid: newXid}
	newKeyBytes := EncodeKey(types.OmapKeyT{OkOid: types.OidT(found.Key.Id), OkXid: newXid})
	oldVal.OvPaddr = newPaddr
	if err := leaf.Insert(newKey, types.KindOmap, newKeyBytes, EncodeVal(oldVal), false); err != nil {
		return nil, err
	}

	return leaf.Finalize()
}

// CommitRewrite performs Rewrite and writes the result back to the device
// at rootAddr, the block the omap root was read from. The write goes
// through a blockdev.Buffer so the dirty flag is raised and cleared the
// way the transaction layer expects of any mutated block.
func (m *Map) CommitRewrite(w interfaces.BlockDeviceWriter, rootAddr types.Paddr, found btree.Result, newXid types.XidT, newPaddr types.Paddr) error {
	raw, err := Rewrite(found, newXid, newPaddr)
	if err != nil {
		return err
	}
	buf := blockdev.NewBuffer(rootAddr, raw)
	buf.MarkDirty()
	return blockdev.Flush(w, buf)
}
