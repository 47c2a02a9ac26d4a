package types

// Object Maps (pages 61-67)
// An object map is a B-tree translating virtual object identifiers plus
// transaction identifiers to physical block addresses, with copy-on-write
// semantics: a write produces an entry keyed by the writing transaction's
// xid. This engine's omap.Rewrite removes the looked-up entry when it
// inserts the new one, so the old xid no longer resolves afterwards.

// OmapPhysT is the object map's on-disk header.
// Reference: page 61
type OmapPhysT struct {
	// OmO is the object's header.
	OmO ObjPhysT

	// OmFlags is a bit field of the object map's flags.
	OmFlags uint32

	// OmSnapCount is the number of snapshots the object map contains.
	OmSnapCount uint32

	// OmTreeType is the type of structure used for the object map's tree.
	OmTreeType uint32

	// OmSnapshotTreeType is the type of structure used for the object map's
	// snapshot tree.
	OmSnapshotTreeType uint32

	// OmTreeOid is the virtual object identifier of the tree that stores
	// the object map's records.
	OmTreeOid OidT

	// OmSnapshotTreeOid is the physical object identifier of the tree that
	// stores information about the snapshots the object map contains.
	OmSnapshotTreeOid OidT

	// OmMostRecentSnap is the transaction identifier of the most recent
	// snapshot whose data is stored by the object map.
	OmMostRecentSnap XidT

	// OmPendingRevertMin is the smallest transaction identifier naming a
	// snapshot that the pending revert operation restores.
	OmPendingRevertMin XidT

	// OmPendingRevertMax is the largest transaction identifier naming a
	// snapshot that the pending revert operation restores.
	OmPendingRevertMax XidT
}

// OmapKeyT is a key used to access an entry in the object map.
// Reference: page 65
type OmapKeyT struct {
	// OkOid is the object identifier being looked up.
	OkOid OidT

	// OkXid is the transaction identifier being looked up.
	OkXid XidT
}

// OmapValT is a value in the object map, indicating where an object lives
// on disk as of the transaction named in its key.
// Reference: page 66
type OmapValT struct {
	// OvFlags is a bit field of the object's flags.
	OvFlags uint32

	// OvSize is the size of the object, in bytes.
	OvSize uint32

	// OvPaddr is the physical address of the object on disk.
	OvPaddr Paddr
}

// Object map value flags (page 66-67).
const (
	OmapValDeleted          = 0x00000001
	OmapValSaved            = 0x00000002
	OmapValEncrypted        = 0x00000004
	OmapValNoheader         = 0x00000008
	OmapValCryptoGeneration = 0x00000010
)

// Object map flags (page 62).
const (
	OmapManuallyManaged  = 0x00000001
	OmapEncrypting       = 0x00000002
	OmapDecrypting       = 0x00000004
	OmapKeyrolling       = 0x00000008
	OmapCryptoGeneration = 0x00000010
	OmapValidFlags       = 0x0000001f
)
