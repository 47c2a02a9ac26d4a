package types

// Objects (pages 25-31)
// Every object in an APFS container, whether physical, virtual, or
// ephemeral, starts with this header. The B-tree engine needs it for two
// things: the checksum carried in every node/omap block, and the oid/xid
// pair a virtual object is addressed by before the object map translates
// it to a physical block.

// OidT is an object identifier.
// Reference: page 25
type OidT uint64

// XidT is a transaction identifier.
// Reference: page 25
type XidT uint64

const (
	// OidInvalid is never used as a valid object identifier.
	// Reference: page 26
	OidInvalid OidT = 0

	// OidNxSuperblock is the fixed object identifier of the container superblock.
	// Reference: page 26
	OidNxSuperblock OidT = 1

	// OidReservedCount is the smallest object identifier not reserved for a
	// special purpose.
	// Reference: page 26
	OidReservedCount = 1024

	// XidInvalid is never used as a valid transaction identifier.
	// Reference: page 26
	XidInvalid XidT = 0
)

// MaxCksumSize is the number of bytes in an object's checksum field.
// Reference: page 27
const MaxCksumSize = 8

// ObjPhysT is the header every object in an APFS container starts with.
// Reference: page 27
type ObjPhysT struct {
	// OChecksum is the Fletcher 64 checksum of the object, computed over the
	// object with this field zeroed.
	OChecksum [MaxCksumSize]byte

	// OOid is the object's identifier.
	OOid OidT

	// OXid is the identifier of the most recent transaction that modified
	// this object.
	OXid XidT

	// OType is the object's type, or'd with storage and flag bits.
	OType uint32

	// OSubtype is the object's subtype, used with certain object types to
	// indicate the type of data stored by a data structure.
	OSubtype uint32
}

// Object type masks (page 28).
const (
	ObjectTypeMask             = 0x0000ffff
	ObjectTypeFlagsMask        = 0xffff0000
	ObjStorageTypeMask         = 0xc0000000
	ObjectTypeFlagsDefinedMask = 0xf8000000
)

// Object types relevant to the B-tree engine and its collaborators
// (page 29). The full vocabulary (encryption rolling state, fusion
// middle tree, reaper list, snapshot metadata tree, and the rest) belongs
// to subsystems this engine doesn't implement.
const (
	ObjectTypeNxSuperblock = 0x00000001
	ObjectTypeBtree        = 0x00000002
	ObjectTypeBtreeNode    = 0x00000003
	ObjectTypeSpaceman     = 0x00000005
	ObjectTypeSpacemanCab  = 0x00000006
	ObjectTypeSpacemanCib  = 0x00000007
	ObjectTypeOmap         = 0x0000000b
	ObjectTypeFs           = 0x0000000d
	ObjectTypeFstree       = 0x0000000e
)

// Object type flags (page 30-31). Only the storage-class bits this engine
// inspects when deciding how to interpret an oid are kept.
const (
	ObjVirtual       = 0x00000000
	ObjEphemeral     = 0x80000000
	ObjPhysical      = 0x40000000
	ObjNoheader      = 0x20000000
	ObjEncrypted     = 0x10000000
	ObjNonpersistent = 0x08000000
)
