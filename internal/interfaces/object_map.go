// File: internal/interfaces/object_map.go
package interfaces

import (
	"github.com/apfsdev/btreeengine/internal/types"
)

// ObjectMapReader provides methods for reading object map information
type ObjectMapReader interface {
	// Flags returns the object map's flags
	Flags() uint32

	// SnapshotCount returns the number of snapshots in this object map
	SnapshotCount() uint32

	// TreeType returns the type of tree used for object mappings
	TreeType() uint32

	// SnapshotTreeType returns the type of tree used for snapshots
	SnapshotTreeType() uint32

	// TreeOID returns the virtual object identifier of the object mapping tree
	TreeOID() types.OidT

	// SnapshotTreeOID returns the virtual object identifier of the snapshot tree
	SnapshotTreeOID() types.OidT

	// MostRecentSnapshotXID returns the transaction ID of the most recent snapshot
	MostRecentSnapshotXID() types.XidT
}

// ObjectMapEntryReader provides methods for reading individual object map entries
type ObjectMapEntryReader interface {
	// ObjectID returns the object's identifier
	ObjectID() types.OidT

	// TransactionID returns the transaction identifier
	TransactionID() types.XidT

	// Flags returns the entry's flags
	Flags() uint32

	// Size returns the size of the object
	Size() uint32

	// PhysicalAddress returns the physical address of the object
	PhysicalAddress() types.Paddr

	// IsDeleted checks if the object is marked as deleted
	IsDeleted() bool

	// IsEncrypted checks if the object is encrypted
	IsEncrypted() bool

	// HasHeader checks if the object has a physical header
	HasHeader() bool
}
