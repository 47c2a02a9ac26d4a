package btree

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/types"
)

// Catalog keys pack the owning object's id and the record type into one
// 64-bit header: the type lives in the top four bits.
const (
	objIDMask    = 0x0fffffffffffffff
	objTypeShift = 60
)

// A directory-entry key's name field starts with a packed length-and-hash
// word; the low ten bits are the name length including its NUL.
const drecLenMask = 0x000003ff

// DecodeKey decodes the raw key bytes stored in a node's key region into
// the in-memory Key shape, dispatching on which tree kind raw belongs to.
func DecodeKey(raw []byte, kind types.TreeKind) (types.Key, error) {
	switch kind {
	case types.KindOmap:
		if len(raw) < 16 {
			return types.Key{}, fmt.Errorf("%w: omap key shorter than 16 bytes", apfserr.Corrupted)
		}
		return types.Key{
			Id:  binary.LittleEndian.Uint64(raw[0:8]),
			Xid: types.XidT(binary.LittleEndian.Uint64(raw[8:16])),
		}, nil

	case types.KindFreeQueue:
		if len(raw) < 16 {
			return types.Key{}, fmt.Errorf("%w: free-queue key shorter than 16 bytes", apfserr.Corrupted)
		}
		return types.Key{
			Xid:    types.XidT(binary.LittleEndian.Uint64(raw[0:8])),
			Number: binary.LittleEndian.Uint64(raw[8:16]),
		}, nil

	case types.KindCatalog:
		return decodeCatalogKey(raw)

	default:
		return types.Key{}, fmt.Errorf("%w: unknown tree kind %d", apfserr.Corrupted, kind)
	}
}

func decodeCatalogKey(raw []byte) (types.Key, error) {
	if len(raw) < 8 {
		return types.Key{}, fmt.Errorf("%w: catalog key shorter than 8 bytes", apfserr.Corrupted)
	}
	hdr := binary.LittleEndian.Uint64(raw[0:8])
	k := types.Key{
		Id:   hdr & objIDMask,
		Type: types.JObjType(hdr >> objTypeShift),
	}
	rest := raw[8:]

	switch k.Type {
	case types.JObjTypeFileExtent:
		if len(rest) < 8 {
			return types.Key{}, fmt.Errorf("%w: file extent key missing logical address", apfserr.Corrupted)
		}
		k.Number = binary.LittleEndian.Uint64(rest[0:8])

	case types.JObjTypeDirRec:
		if len(rest) < 4 {
			return types.Key{}, fmt.Errorf("%w: directory entry key missing name header", apfserr.Corrupted)
		}
		nameLenAndHash := binary.LittleEndian.Uint32(rest[0:4])
		nameLen := int(nameLenAndHash & drecLenMask)
		if 4+nameLen > len(rest) {
			return types.Key{}, fmt.Errorf("%w: directory entry name exceeds key bounds", apfserr.Corrupted)
		}
		k.Name = trimNull(rest[4 : 4+nameLen])

	case types.JObjTypeXattr:
		if len(rest) < 2 {
			return types.Key{}, fmt.Errorf("%w: xattr key missing name header", apfserr.Corrupted)
		}
		nameLen := int(binary.LittleEndian.Uint16(rest[0:2]))
		if 2+nameLen > len(rest) {
			return types.Key{}, fmt.Errorf("%w: xattr name exceeds key bounds", apfserr.Corrupted)
		}
		k.Name = trimNull(rest[2 : 2+nameLen])
	}

	return k, nil
}

func trimNull(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}

// Compare orders two decoded keys the way the tree identified by kind
// orders its records:
//
//   - omap: (oid, xid) ascending, so a floor search for (oid, target xid)
//     lands on the newest version at or before target xid.
//   - free queue: (xid, paddr) ascending, with paddr 0 matching any entry
//     at that xid.
//   - catalog: (id, type) then a type-specific tiebreak: logical offset
//     for file extents, name for directory entries and xattrs. A key with
//     no name prefix-matches every name, which is what lets a multi-record
//     query walk all of a directory's entries with one target.
func Compare(a, b types.Key, kind types.TreeKind) int {
	switch kind {
	case types.KindOmap:
		if a.Id != b.Id {
			return cmpUint64(a.Id, b.Id)
		}
		return cmpUint64(uint64(a.Xid), uint64(b.Xid))

	case types.KindFreeQueue:
		if a.Xid != b.Xid {
			return cmpUint64(uint64(a.Xid), uint64(b.Xid))
		}
		// Address zero is a wildcard: a query for (xid, 0) matches every
		// entry freed by that transaction, whatever block it names.
		if a.Number == 0 || b.Number == 0 {
			return 0
		}
		return cmpUint64(a.Number, b.Number)

	case types.KindCatalog:
		if a.Id != b.Id {
			return cmpUint64(a.Id, b.Id)
		}
		if a.Type != b.Type {
			return cmpUint64(uint64(a.Type), uint64(b.Type))
		}
		switch a.Type {
		case types.JObjTypeFileExtent:
			return cmpUint64(a.Number, b.Number)
		case types.JObjTypeDirRec, types.JObjTypeXattr:
			// A missing name in either operand is a prefix match: a
			// multi-record scan for every entry of a directory builds its
			// target key without one.
			if a.Name == "" || b.Name == "" {
				return 0
			}
			return strings.Compare(a.Name, b.Name)
		default:
			return 0
		}

	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
