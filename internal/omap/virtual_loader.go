package omap

import (
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/btree"
	"github.com/apfsdev/btreeengine/internal/types"
)

// VirtualLoader implements btree.NodeLoader for an object-mapped tree (the
// catalog, extent reference, and free-queue trees): a nonleaf record in
// those trees names its child by object identifier, which must be resolved
// through the object map at a fixed transaction id before the block it
// lives in can be read. The object map's own tree uses PhysicalLoader
// instead, since resolving it through itself would never terminate.
type VirtualLoader struct {
	Map *Map
	Xid types.XidT
}

// Load implements btree.NodeLoader.
func (l VirtualLoader) Load(childOID types.OidT) (*btree.Node, error) {
	paddr, err := l.Map.Lookup(childOID, l.Xid)
	if err != nil {
		return nil, err
	}
	raw, err := l.Map.Device.ReadBlock(paddr)
	if err != nil {
		return nil, fmt.Errorf("%w: reading block %d for oid %d: %v", apfserr.Corrupted, paddr, childOID, err)
	}
	return btree.Parse(raw)
}

// ReadNode resolves oid through the map as of xid and parses the B-tree
// node stored at the block it maps to. Callers use it to load the root of
// an object-mapped tree before seeding a query at it.
func (m *Map) ReadNode(oid types.OidT, xid types.XidT) (*btree.Node, error) {
	return VirtualLoader{Map: m, Xid: xid}.Load(oid)
}
