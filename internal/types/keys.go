package types

// In-memory B-tree key model.
//
// A B-tree node never stores these directly: the key region holds the raw
// bytes of whatever key format the tree kind uses (omap_key_t,
// spaceman_free_queue_key_t, or one of the j_*_key_t catalog variants).
// Key is the decoded shape, so the comparator has a single total order to
// implement regardless of which tree it's walking.

// TreeKind identifies which of the three key orderings a B-tree uses.
type TreeKind int

const (
	// KindOmap orders by (oid, xid) ascending.
	KindOmap TreeKind = iota

	// KindFreeQueue orders by (xid, paddr).
	KindFreeQueue

	// KindCatalog orders by (id, type) then a type-specific tiebreak.
	KindCatalog
)

// Key is the decoded form of a record key, generalized across the three
// tree kinds this engine compares keys for.
type Key struct {
	// Id is the object/inode identifier: ok_oid for omap keys, the low 60
	// bits of obj_id_and_type for catalog keys. Unused for free-queue keys.
	Id uint64

	// Xid is the transaction identifier: ok_xid for omap keys, sfqk_xid
	// for free-queue keys. Unused for catalog keys.
	Xid XidT

	// Number carries a type-specific tiebreak value: sfqk_paddr for
	// free-queue keys, the logical offset for file-extent keys. Unused
	// otherwise.
	Number uint64

	// Type is the catalog record type (obj_id_and_type's top four bits).
	// Unused for omap and free-queue keys.
	Type JObjType

	// Name carries the tiebreak string for directory-entry and xattr
	// catalog keys. Empty and ignored otherwise.
	Name string
}

// NewOmapKey builds the key for an object map lookup.
func NewOmapKey(oid OidT, xid XidT) Key {
	return Key{Id: uint64(oid), Xid: xid}
}

// NewFreeQueueKey builds the key for a free-queue entry.
func NewFreeQueueKey(xid XidT, paddr Paddr) Key {
	return Key{Xid: xid, Number: uint64(paddr)}
}

// NewInodeKey builds the key for an inode record.
func NewInodeKey(ino uint64) Key {
	return Key{Id: ino, Type: JObjTypeInode}
}

// NewFileExtentKey builds the key for a file extent record, ordered within
// its inode by logical offset.
func NewFileExtentKey(ino uint64, logicalOffset uint64) Key {
	return Key{Id: ino, Type: JObjTypeFileExtent, Number: logicalOffset}
}

// NewXattrKey builds the key for an extended attribute record, ordered
// within its inode by name.
func NewXattrKey(ino uint64, name string) Key {
	return Key{Id: ino, Type: JObjTypeXattr, Name: name}
}

// NewDrecKey builds the key for a directory entry record, ordered within
// its parent directory by folded name.
func NewDrecKey(parentIno uint64, name string) Key {
	return Key{Id: parentIno, Type: JObjTypeDirRec, Name: name}
}

// NewDStreamIDKey builds the key for a data stream identifier record.
func NewDStreamIDKey(id uint64) Key {
	return Key{Id: id, Type: JObjTypeDStreamID}
}
