// File: internal/interfaces/btree.go
package interfaces

import (
	"github.com/apfsdev/btreeengine/internal/types"
)

// BTreeNodeReader provides methods for reading information from a B-tree node
type BTreeNodeReader interface {
	// Flags returns the B-tree node's flags
	Flags() uint16

	// Level returns the number of child levels below this node
	Level() uint16

	// KeyCount returns the number of keys stored in this node
	KeyCount() uint32

	// TableSpace returns the location of the table of contents
	TableSpace() types.NlocT

	// FreeSpace returns the location of the shared free space for keys and values
	FreeSpace() types.NlocT

	// KeyFreeList returns the linked list that tracks free key space
	KeyFreeList() types.NlocT

	// ValueFreeList returns the linked list that tracks free value space
	ValueFreeList() types.NlocT

	// Data returns the node's storage area
	Data() []byte

	// IsRoot checks if the node is a root node
	IsRoot() bool

	// IsLeaf checks if the node is a leaf node
	IsLeaf() bool

	// HasFixedKVSize checks if the node has keys and values of fixed size
	HasFixedKVSize() bool

	// IsHashed checks if the node contains child hashes
	IsHashed() bool

	// HasHeader checks if the node is stored with an object header
	HasHeader() bool
}

// BTreeInfoReader provides methods for reading information about a B-tree
type BTreeInfoReader interface {
	// Flags returns the B-tree's flags
	Flags() uint32

	// NodeSize returns the on-disk size in bytes of a node in this B-tree
	NodeSize() uint32

	// KeySize returns the size of a key, or zero if keys have variable size
	KeySize() uint32

	// ValueSize returns the size of a value, or zero if values have variable size
	ValueSize() uint32

	// LongestKey returns the length in bytes of the longest key ever stored in the B-tree
	LongestKey() uint32

	// LongestValue returns the length in bytes of the longest value ever stored in the B-tree
	LongestValue() uint32

	// KeyCount returns the number of keys stored in the B-tree
	KeyCount() uint64

	// NodeCount returns the number of nodes stored in the B-tree
	NodeCount() uint64

	// HasUint64Keys checks if the B-tree uses 64-bit unsigned integer keys
	HasUint64Keys() bool

	// SupportsSequentialInsert checks if the B-tree is optimized for sequential insertions
	SupportsSequentialInsert() bool

	// AllowsGhosts checks if the table of contents can contain keys with no corresponding value
	AllowsGhosts() bool

	// IsEphemeral checks if the nodes use ephemeral object identifiers
	IsEphemeral() bool

	// IsPhysical checks if the nodes use physical object identifiers
	IsPhysical() bool

	// IsPersistent checks if the B-tree is persisted across unmounting
	IsPersistent() bool

	// HasAlignedKV checks if keys and values are aligned to eight-byte boundaries
	HasAlignedKV() bool

	// IsHashed checks if nonleaf nodes store a hash of their child nodes
	IsHashed() bool

	// HasHeaderlessNodes checks if nodes are stored without object headers
	HasHeaderlessNodes() bool
}

// BTreeLocationReader provides methods for reading locations within a B-tree node
type BTreeLocationReader interface {
	// Offset returns the offset in bytes
	Offset() uint16

	// Length returns the length in bytes
	Length() uint16

	// IsValid checks if the offset is valid
	IsValid() bool
}

// BTreeKVLocationReader provides methods for reading the location of a key and value
type BTreeKVLocationReader interface {
	// KeyLocation returns the location of the key
	KeyLocation() types.NlocT

	// ValueLocation returns the location of the value
	ValueLocation() types.NlocT
}

// BTreeKVOffsetReader provides methods for reading fixed-size key and value offsets
type BTreeKVOffsetReader interface {
	// KeyOffset returns the offset of the key
	KeyOffset() uint16

	// ValueOffset returns the offset of the value
	ValueOffset() uint16
}
