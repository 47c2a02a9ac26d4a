package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/types"
)

// This file implements the only mutation surface this engine supports: a
// single insert or remove against a node that is simultaneously the root
// and a leaf. There is no split, merge, or rebalancing: a tree that has
// grown past the root-and-leaf shape cannot be mutated here.

const (
	kvoffEntrySize = 4 // sizeof(kvoff_t): two uint16 offsets
	kvlocEntrySize = 8 // sizeof(kvloc_t): two nloc_t (off+len uint16 pairs)
)

func tocEntrySize(fixedKV bool) int {
	if fixedKV {
		return kvoffEntrySize
	}
	return kvlocEntrySize
}

// tocCapacitySlots returns how many toc entries currently fit in the
// node's table-of-contents region.
func (n *Node) tocCapacitySlots() int {
	return int(n.phys.BtnTableSpace.Len) / tocEntrySize(n.HasFixedKVSize())
}

// growToc grows the table of contents by BtreeTocEntryIncrement slots,
// shifting the key area forward to make room and shrinking the free-space
// gap by the bytes the toc consumed.
func (n *Node) growToc() error {
	slotSize := tocEntrySize(n.HasFixedKVSize())
	growBy := int(types.BtreeTocEntryIncrement) * slotSize

	if int(n.phys.BtnFreeSpace.Len) < growBy {
		return fmt.Errorf("%w: no room to grow table of contents", apfserr.NoSpace)
	}

	data := n.phys.BtnData
	oldKeyAreaStart := n.keyAreaStart()
	newKeyAreaStart := oldKeyAreaStart + growBy
	usedKeyBytes := int(n.phys.BtnFreeSpace.Off)

	// Shift only the occupied key bytes forward by growBy; the free gap
	// between them and the value area shrinks to pay for the larger toc.
	// Key offsets in the toc are relative to the key area start, so they
	// stay valid across the move.
	copy(data[newKeyAreaStart:newKeyAreaStart+usedKeyBytes], data[oldKeyAreaStart:oldKeyAreaStart+usedKeyBytes])

	n.phys.BtnTableSpace.Len += uint16(growBy)
	n.phys.BtnFreeSpace.Len -= uint16(growBy)

	return nil
}

// Insert adds keyBytes/value as a new record in this root-and-leaf node,
// keeping the table of contents sorted under kind's comparator. key is the
// decoded form of keyBytes, used only for ordering. A nil value inserts a
// ghost record, which the tree must allow.
func (n *Node) Insert(key types.Key, kind types.TreeKind, keyBytes, value []byte, allowGhosts bool) error {
	if !n.IsRoot() || !n.IsLeaf() {
		return fmt.Errorf("%w: insert only supported on a root-and-leaf node", apfserr.Corrupted)
	}
	ghost := value == nil
	if ghost && !allowGhosts {
		return fmt.Errorf("%w: tree does not allow ghost records", apfserr.Corrupted)
	}

	index, err := n.findInsertionIndex(key, kind)
	if err != nil {
		return err
	}

	needed := len(keyBytes) + len(value)
	slotSize := tocEntrySize(n.HasFixedKVSize())
	if int(n.phys.BtnNkeys)+1 > n.tocCapacitySlots() {
		if err := n.growToc(); err != nil {
			return err
		}
	}
	if int(n.phys.BtnFreeSpace.Len) < needed {
		return fmt.Errorf("%w: node has no room for a %d-byte record", apfserr.NoSpace, needed)
	}

	data := n.phys.BtnData
	keyAreaStart := n.keyAreaStart()
	valueAreaEnd := n.valueAreaEnd()

	keyOff := int(n.phys.BtnFreeSpace.Off)
	copy(data[keyAreaStart+keyOff:], keyBytes)

	// The value's on-disk offset is measured backward from the end of the
	// value area. usedValueBytes is how much of the value side the gap has
	// already given up; after this write that edge moves down by
	// len(value), so the new value's offset is usedValueBytes+len(value).
	usedValueBytes := (valueAreaEnd - keyAreaStart) - int(n.phys.BtnFreeSpace.Off) - int(n.phys.BtnFreeSpace.Len)
	newValOff := usedValueBytes + len(value)
	if !ghost {
		start := valueAreaEnd - newValOff
		copy(data[start:start+len(value)], value)
	}

	// Shift toc entries at and after index right by one slot, then write
	// the new entry.
	tocBase := int(n.phys.BtnTableSpace.Off)
	for i := int(n.phys.BtnNkeys); i > index; i-- {
		srcOff := tocBase + (i-1)*slotSize
		dstOff := tocBase + i*slotSize
		copy(data[dstOff:dstOff+slotSize], data[srcOff:srcOff+slotSize])
	}

	entryOff := tocBase + index*slotSize
	if n.HasFixedKVSize() {
		binary.LittleEndian.PutUint16(data[entryOff:entryOff+2], uint16(keyOff))
		if ghost {
			binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], types.BtoffInvalid)
		} else {
			binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], uint16(newValOff))
		}
	} else {
		binary.LittleEndian.PutUint16(data[entryOff:entryOff+2], uint16(keyOff))
		binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], uint16(len(keyBytes)))
		if ghost {
			binary.LittleEndian.PutUint16(data[entryOff+4:entryOff+6], types.BtoffInvalid)
			binary.LittleEndian.PutUint16(data[entryOff+6:entryOff+8], 0)
		} else {
			binary.LittleEndian.PutUint16(data[entryOff+4:entryOff+6], uint16(newValOff))
			binary.LittleEndian.PutUint16(data[entryOff+6:entryOff+8], uint16(len(value)))
		}
	}

	n.phys.BtnFreeSpace.Off += uint16(len(keyBytes))
	n.phys.BtnFreeSpace.Len -= uint16(needed)
	n.phys.BtnNkeys++

	if n.info != nil {
		if uint32(len(keyBytes)) > n.info.BtLongestKey {
			n.info.BtLongestKey = uint32(len(keyBytes))
		}
		if uint32(len(value)) > n.info.BtLongestVal {
			n.info.BtLongestVal = uint32(len(value))
		}
		n.info.BtKeyCount++
	}

	return nil
}

// findInsertionIndex returns the index a new key should be inserted at to
// keep the node's keys in order, and fails if the key already exists —
// this engine has no update-in-place path, matching the root-and-leaf
// mutation scope.
func (n *Node) findInsertionIndex(key types.Key, kind types.TreeKind) (int, error) {
	count := int(n.phys.BtnNkeys)
	lo, hi := 0, count
	for lo < hi {
		mid := lo + (hi-lo)/2
		rawKey, _, _, err := n.Entry(mid, n.fixedKeySize(), n.fixedValSize())
		if err != nil {
			return 0, err
		}
		existing, err := DecodeKey(rawKey, kind)
		if err != nil {
			return 0, err
		}
		cmp := Compare(existing, key, kind)
		if cmp == 0 {
			return 0, fmt.Errorf("%w: key already present", apfserr.Corrupted)
		}
		if cmp < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (n *Node) fixedKeySize() uint32 {
	if n.info == nil {
		return 0
	}
	return n.info.BtFixed.BtKeySize
}

func (n *Node) fixedValSize() uint32 {
	if n.info == nil {
		return 0
	}
	return n.info.BtFixed.BtValSize
}

// Remove deletes the record at index from this root-and-leaf node. It
// shifts the table of contents left to close the gap but does not compact
// the key and value regions: the freed bytes are only accounted for in the
// free-list heads' length fields, which is lossy across many removes.
//
// TODO: thread the freed key and value ranges into the free lists' linked
// structure so a later insert can reuse them.
func (n *Node) Remove(index int) error {
	if !n.IsRoot() || !n.IsLeaf() {
		return fmt.Errorf("%w: remove only supported on a root-and-leaf node", apfserr.Corrupted)
	}
	count := int(n.phys.BtnNkeys)
	if index < 0 || index >= count {
		return fmt.Errorf("%w: remove index %d out of range (nkeys=%d)", apfserr.Corrupted, index, count)
	}

	rawKey, rawVal, ghost, err := n.Entry(index, n.fixedKeySize(), n.fixedValSize())
	if err != nil {
		return err
	}
	keyLen := len(rawKey)
	valLen := 0
	if !ghost {
		valLen = len(rawVal)
	}

	slotSize := tocEntrySize(n.HasFixedKVSize())
	tocBase := int(n.phys.BtnTableSpace.Off)
	data := n.phys.BtnData
	for i := index; i < count-1; i++ {
		srcOff := tocBase + (i+1)*slotSize
		dstOff := tocBase + i*slotSize
		copy(data[dstOff:dstOff+slotSize], data[srcOff:srcOff+slotSize])
	}

	n.phys.BtnNkeys--
	// Lossy bookkeeping only: bump the free-list head lengths rather than
	// relinking the freed ranges into the list.
	n.phys.BtnKeyFreeList.Len += uint16(keyLen)
	n.phys.BtnValFreeList.Len += uint16(valLen)

	if n.info != nil && n.info.BtKeyCount > 0 {
		n.info.BtKeyCount--
	}

	return nil
}
