package btree

import (
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// Info wraps a root node's btree_info_t trailer to answer the
// tree-wide questions interfaces.BTreeInfoReader asks, decoding the flag
// bits BtFixed.BtFlags carries.
type Info struct {
	t *types.BtreeInfoT
}

var _ interfaces.BTreeInfoReader = Info{}

// Flags implements interfaces.BTreeInfoReader.
func (i Info) Flags() uint32 { return i.t.BtFixed.BtFlags }

// NodeSize implements interfaces.BTreeInfoReader.
func (i Info) NodeSize() uint32 { return i.t.BtFixed.BtNodeSize }

// KeySize implements interfaces.BTreeInfoReader.
func (i Info) KeySize() uint32 { return i.t.BtFixed.BtKeySize }

// ValueSize implements interfaces.BTreeInfoReader.
func (i Info) ValueSize() uint32 { return i.t.BtFixed.BtValSize }

// LongestKey implements interfaces.BTreeInfoReader.
func (i Info) LongestKey() uint32 { return i.t.BtLongestKey }

// LongestValue implements interfaces.BTreeInfoReader.
func (i Info) LongestValue() uint32 { return i.t.BtLongestVal }

// KeyCount implements interfaces.BTreeInfoReader.
func (i Info) KeyCount() uint64 { return i.t.BtKeyCount }

// NodeCount implements interfaces.BTreeInfoReader.
func (i Info) NodeCount() uint64 { return i.t.BtNodeCount }

// HasUint64Keys implements interfaces.BTreeInfoReader.
func (i Info) HasUint64Keys() bool { return i.t.BtFixed.BtFlags&types.BtreeUint64Keys != 0 }

// SupportsSequentialInsert implements interfaces.BTreeInfoReader.
func (i Info) SupportsSequentialInsert() bool {
	return i.t.BtFixed.BtFlags&types.BtreeSequentialInsert != 0
}

// AllowsGhosts implements interfaces.BTreeInfoReader.
func (i Info) AllowsGhosts() bool { return i.t.BtFixed.BtFlags&types.BtreeAllowGhosts != 0 }

// IsEphemeral implements interfaces.BTreeInfoReader.
func (i Info) IsEphemeral() bool { return i.t.BtFixed.BtFlags&types.BtreeEphemeral != 0 }

// IsPhysical implements interfaces.BTreeInfoReader.
func (i Info) IsPhysical() bool { return i.t.BtFixed.BtFlags&types.BtreePhysical != 0 }

// IsPersistent implements interfaces.BTreeInfoReader.
func (i Info) IsPersistent() bool { return i.t.BtFixed.BtFlags&types.BtreeNonpersistent == 0 }

// HasAlignedKV implements interfaces.BTreeInfoReader.
func (i Info) HasAlignedKV() bool { return i.t.BtFixed.BtFlags&types.BtreeKvNonaligned == 0 }

// IsHashed implements interfaces.BTreeInfoReader.
func (i Info) IsHashed() bool { return i.t.BtFixed.BtFlags&types.BtreeHashed != 0 }

// HasHeaderlessNodes implements interfaces.BTreeInfoReader.
func (i Info) HasHeaderlessNodes() bool { return i.t.BtFixed.BtFlags&types.BtreeNoheader != 0 }

// InfoReader returns a BTreeInfoReader view over the root's info trailer,
// or the zero value, false if n isn't a root node.
func (n *Node) InfoReader() (Info, bool) {
	if !n.IsRoot() || n.info == nil {
		return Info{}, false
	}
	return Info{t: n.info}, true
}
