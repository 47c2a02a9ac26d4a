package types

// File-System Constants
// Reference: Apple File System Reference, pages 683-744
//
// Only the record-type enumeration lives here: it is the discriminator
// the catalog tree's key comparator switches on to decide which tiebreak
// applies (logical offset for file extents, folded name for directory
// entries, name for xattrs). Inode numbers, file modes, and the rest of
// the catalog record vocabulary belong to the per-record key and value
// codecs, not to this engine.

// JObjType represents the type of a file-system record.
// Used in B-tree keys to identify the type of data stored.
// Reference: page 687
type JObjType uint8

const (
	// JObjTypeAny matches any record type.
	// Used for generic B-tree operations that don't care about the specific type.
	// Reference: page 693
	JObjTypeAny JObjType = 0

	// JObjTypeSnapMetadata marks a snapshot metadata record.
	// Reference: page 694
	JObjTypeSnapMetadata JObjType = 1

	// JObjTypeExtent marks an extent record.
	// Reference: page 695
	JObjTypeExtent JObjType = 2

	// JObjTypeInode marks an inode record.
	// Reference: page 696
	JObjTypeInode JObjType = 3

	// JObjTypeXattr marks an extended attribute record.
	// Reference: page 697
	JObjTypeXattr JObjType = 4

	// JObjTypeSiblingLink marks a sibling link record.
	// Reference: page 698
	JObjTypeSiblingLink JObjType = 5

	// JObjTypeDStreamID marks a data stream ID record.
	// Reference: page 699
	JObjTypeDStreamID JObjType = 6

	// JObjTypeCryptoState marks a crypto state record.
	// Reference: page 700
	JObjTypeCryptoState JObjType = 7

	// JObjTypeFileExtent marks a file extent record.
	// Ordered within a catalog node by logical offset.
	// Reference: page 701
	JObjTypeFileExtent JObjType = 8

	// JObjTypeDirRec marks a directory record.
	// Ordered within a catalog node by folded name.
	// Reference: page 702
	JObjTypeDirRec JObjType = 9

	// JObjTypeDirStats marks a directory stats record.
	// Reference: page 703
	JObjTypeDirStats JObjType = 10

	// JObjTypeSnapName marks a snapshot name record.
	// Reference: page 704
	JObjTypeSnapName JObjType = 11

	// JObjTypeSiblingMap marks a sibling map record.
	// Reference: page 705
	JObjTypeSiblingMap JObjType = 12

	// JObjTypeFileInfo marks a file info record.
	// Reference: page 706
	JObjTypeFileInfo JObjType = 13

	// JObjTypeMaxValid is the highest valid object type.
	// Reference: page 707
	JObjTypeMaxValid JObjType = 13

	// JObjTypeMax represents the maximum object type value.
	// Reference: page 708
	JObjTypeMax JObjType = 15

	// JObjTypeInvalid marks an invalid record type.
	// Reference: page 709
	JObjTypeInvalid JObjType = 15
)
