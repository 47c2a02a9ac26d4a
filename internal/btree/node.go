// Package btree implements the on-disk B-tree node format shared by every
// tree in an APFS container (object map, free queue, and file-system
// catalog trees): parsing a node, ordering its keys, searching within one
// node, descending a whole tree, and mutating a root-and-leaf tree.
package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/types"
)

// nodeHeaderSize is the size, in bytes, of an obj_phys_t (32 bytes)
// followed by the btree_node_phys_t fields that precede btn_data (24
// bytes): btn_flags, btn_level, btn_nkeys, and the four nloc_t fields.
const nodeHeaderSize = 56

// infoSize is the size, in bytes, of a btree_info_t trailer, present only
// at the end of a root node's storage area.
const infoSize = 40

// Node is a parsed view of one on-disk B-tree node.
type Node struct {
	phys types.BtreeNodePhysT
	info *types.BtreeInfoT
	raw  []byte // the full block Parse decoded phys and info from
}

var (
	_ interfaces.BTreeNodeReader       = (*Node)(nil)
	_ interfaces.BTreeLocationReader   = types.NlocT{}
	_ interfaces.BTreeKVLocationReader = types.KvlocT{}
	_ interfaces.BTreeKVOffsetReader   = types.KvoffT{}
)

// Parse decodes raw, the full contents of one on-disk block, into a Node.
// Unless the node's flags include BtnodeNoheader, the object header's
// Fletcher 64 checksum is verified before the node is returned.
func Parse(raw []byte) (*Node, error) {
	if len(raw) < nodeHeaderSize {
		return nil, fmt.Errorf("%w: node block of %d bytes shorter than header", apfserr.Corrupted, len(raw))
	}

	var obj types.ObjPhysT
	copy(obj.OChecksum[:], raw[0:8])
	obj.OOid = types.OidT(binary.LittleEndian.Uint64(raw[8:16]))
	obj.OXid = types.XidT(binary.LittleEndian.Uint64(raw[16:24]))
	obj.OType = binary.LittleEndian.Uint32(raw[24:28])
	obj.OSubtype = binary.LittleEndian.Uint32(raw[28:32])

	n := &Node{raw: raw}
	n.phys.BtnO = obj
	n.phys.BtnFlags = binary.LittleEndian.Uint16(raw[32:34])
	n.phys.BtnLevel = binary.LittleEndian.Uint16(raw[34:36])
	n.phys.BtnNkeys = binary.LittleEndian.Uint32(raw[36:40])
	n.phys.BtnTableSpace = readNloc(raw[40:44])
	n.phys.BtnFreeSpace = readNloc(raw[44:48])
	n.phys.BtnKeyFreeList = readNloc(raw[48:52])
	n.phys.BtnValFreeList = readNloc(raw[52:56])
	n.phys.BtnData = raw[nodeHeaderSize:]

	if n.phys.BtnFlags&types.BtnodeNoheader == 0 {
		inspector := objects.NewInspector(&obj, raw)
		if err := inspector.Verify(); err != nil {
			return nil, err
		}
	}

	if n.IsRoot() {
		info, err := parseBtreeInfo(n.phys.BtnData)
		if err != nil {
			return nil, err
		}
		n.info = info
	}

	return n, nil
}

func readNloc(b []byte) types.NlocT {
	return types.NlocT{
		Off: binary.LittleEndian.Uint16(b[0:2]),
		Len: binary.LittleEndian.Uint16(b[2:4]),
	}
}

func parseBtreeInfo(data []byte) (*types.BtreeInfoT, error) {
	if len(data) < infoSize {
		return nil, fmt.Errorf("%w: root node storage area shorter than btree_info_t", apfserr.Corrupted)
	}
	tail := data[len(data)-infoSize:]
	return &types.BtreeInfoT{
		BtFixed: types.BtreeInfoFixedT{
			BtFlags:    binary.LittleEndian.Uint32(tail[0:4]),
			BtNodeSize: binary.LittleEndian.Uint32(tail[4:8]),
			BtKeySize:  binary.LittleEndian.Uint32(tail[8:12]),
			BtValSize:  binary.LittleEndian.Uint32(tail[12:16]),
		},
		BtLongestKey: binary.LittleEndian.Uint32(tail[16:20]),
		BtLongestVal: binary.LittleEndian.Uint32(tail[20:24]),
		BtKeyCount:   binary.LittleEndian.Uint64(tail[24:32]),
		BtNodeCount:  binary.LittleEndian.Uint64(tail[32:40]),
	}, nil
}

// Flags implements interfaces.BTreeNodeReader.
func (n *Node) Flags() uint16 { return n.phys.BtnFlags }

// Level implements interfaces.BTreeNodeReader.
func (n *Node) Level() uint16 { return n.phys.BtnLevel }

// KeyCount implements interfaces.BTreeNodeReader.
func (n *Node) KeyCount() uint32 { return n.phys.BtnNkeys }

// TableSpace implements interfaces.BTreeNodeReader.
func (n *Node) TableSpace() types.NlocT { return n.phys.BtnTableSpace }

// FreeSpace implements interfaces.BTreeNodeReader.
func (n *Node) FreeSpace() types.NlocT { return n.phys.BtnFreeSpace }

// KeyFreeList implements interfaces.BTreeNodeReader.
func (n *Node) KeyFreeList() types.NlocT { return n.phys.BtnKeyFreeList }

// ValueFreeList implements interfaces.BTreeNodeReader.
func (n *Node) ValueFreeList() types.NlocT { return n.phys.BtnValFreeList }

// Data implements interfaces.BTreeNodeReader.
func (n *Node) Data() []byte { return n.phys.BtnData }

// IsRoot implements interfaces.BTreeNodeReader.
func (n *Node) IsRoot() bool { return n.phys.BtnFlags&types.BtnodeRoot != 0 }

// IsLeaf implements interfaces.BTreeNodeReader.
func (n *Node) IsLeaf() bool { return n.phys.BtnFlags&types.BtnodeLeaf != 0 }

// HasFixedKVSize implements interfaces.BTreeNodeReader.
func (n *Node) HasFixedKVSize() bool { return n.phys.BtnFlags&types.BtnodeFixedKvSize != 0 }

// IsHashed implements interfaces.BTreeNodeReader.
func (n *Node) IsHashed() bool { return n.phys.BtnFlags&types.BtnodeHashed != 0 }

// HasHeader implements interfaces.BTreeNodeReader.
func (n *Node) HasHeader() bool { return n.phys.BtnFlags&types.BtnodeNoheader == 0 }

// Finalize re-serializes the fields a mutation (Insert/Remove) changed in
// memory — btn_nkeys, the nloc_t fields, and for a root node the
// btree_info_t trailer — back into the raw block Parse decoded this node
// from, then recomputes the object header's checksum over the result. It
// returns the finalized block, ready to hand to a blockdev.Buffer write.
func (n *Node) Finalize() ([]byte, error) {
	if n.raw == nil {
		return nil, fmt.Errorf("%w: node has no backing block to finalize", apfserr.Corrupted)
	}

	binary.LittleEndian.PutUint16(n.raw[32:34], n.phys.BtnFlags)
	binary.LittleEndian.PutUint16(n.raw[34:36], n.phys.BtnLevel)
	binary.LittleEndian.PutUint32(n.raw[36:40], n.phys.BtnNkeys)
	writeNloc(n.raw[40:44], n.phys.BtnTableSpace)
	writeNloc(n.raw[44:48], n.phys.BtnFreeSpace)
	writeNloc(n.raw[48:52], n.phys.BtnKeyFreeList)
	writeNloc(n.raw[52:56], n.phys.BtnValFreeList)

	if n.IsRoot() && n.info != nil {
		tail := n.phys.BtnData[len(n.phys.BtnData)-infoSize:]
		binary.LittleEndian.PutUint32(tail[0:4], n.info.BtFixed.BtFlags)
		binary.LittleEndian.PutUint32(tail[4:8], n.info.BtFixed.BtNodeSize)
		binary.LittleEndian.PutUint32(tail[8:12], n.info.BtFixed.BtKeySize)
		binary.LittleEndian.PutUint32(tail[12:16], n.info.BtFixed.BtValSize)
		binary.LittleEndian.PutUint32(tail[16:20], n.info.BtLongestKey)
		binary.LittleEndian.PutUint32(tail[20:24], n.info.BtLongestVal)
		binary.LittleEndian.PutUint64(tail[24:32], n.info.BtKeyCount)
		binary.LittleEndian.PutUint64(tail[32:40], n.info.BtNodeCount)
	}

	if n.phys.BtnFlags&types.BtnodeNoheader == 0 {
		if err := objects.Recompute(&n.phys.BtnO, n.raw); err != nil {
			return nil, err
		}
	}

	return n.raw, nil
}

func writeNloc(b []byte, loc types.NlocT) {
	binary.LittleEndian.PutUint16(b[0:2], loc.Off)
	binary.LittleEndian.PutUint16(b[2:4], loc.Len)
}

// OID returns the object identifier this node was stored under.
func (n *Node) OID() types.OidT { return n.phys.BtnO.OOid }

// Info returns the tree-wide info trailer. It is non-nil only for a root
// node.
func (n *Node) Info() *types.BtreeInfoT { return n.info }

// valueAreaEnd returns the offset, within Data(), one past the last byte
// values are allowed to occupy: the end of the node's storage area, minus
// the trailing btree_info_t for a root node.
func (n *Node) valueAreaEnd() int {
	end := len(n.phys.BtnData)
	if n.IsRoot() {
		end -= infoSize
	}
	return end
}

// keyAreaStart returns the offset, within Data(), of the first byte of the
// key region: immediately after the table of contents.
func (n *Node) keyAreaStart() int {
	return int(n.phys.BtnTableSpace.Off) + int(n.phys.BtnTableSpace.Len)
}

// Entry returns the raw key and value bytes for the toc slot at index i.
// keySize and valSize are the tree-wide fixed sizes from btree_info_t;
// they're ignored for a variable-size (kvloc_t) node. ghost is true when
// the slot has no value (BtreeAllowGhosts).
func (n *Node) Entry(i int, keySize, valSize uint32) (key []byte, val []byte, ghost bool, err error) {
	if i < 0 || uint32(i) >= n.phys.BtnNkeys {
		return nil, nil, false, fmt.Errorf("%w: entry index %d out of range (nkeys=%d)", apfserr.Corrupted, i, n.phys.BtnNkeys)
	}

	data := n.phys.BtnData
	keyStart := n.keyAreaStart()
	valEnd := n.valueAreaEnd()

	if n.HasFixedKVSize() {
		const kvoffSize = 4
		tocOff := int(n.phys.BtnTableSpace.Off) + i*kvoffSize
		if tocOff+kvoffSize > len(data) {
			return nil, nil, false, fmt.Errorf("%w: kvoff toc entry %d out of range", apfserr.Corrupted, i)
		}
		kvoff := types.KvoffT{
			K: binary.LittleEndian.Uint16(data[tocOff : tocOff+2]),
			V: binary.LittleEndian.Uint16(data[tocOff+2 : tocOff+4]),
		}

		kStart := keyStart + int(kvoff.KeyOffset())
		kEnd := kStart + int(keySize)
		if kEnd > len(data) || kStart < 0 {
			return nil, nil, false, fmt.Errorf("%w: fixed key %d out of range", apfserr.Corrupted, i)
		}
		key = data[kStart:kEnd]

		if kvoff.ValueOffset() == types.BtoffInvalid {
			return key, nil, true, nil
		}
		vStart := valEnd - int(kvoff.ValueOffset())
		vEnd := vStart + int(valSize)
		// Bound against the value area's end, not the block's: a root
		// node's btree_info_t trailer sits past valEnd and a value
		// reaching into it is corruption, not a record.
		if vStart < 0 || vEnd > valEnd {
			return nil, nil, false, fmt.Errorf("%w: fixed value %d out of range", apfserr.Corrupted, i)
		}
		return key, data[vStart:vEnd], false, nil
	}

	const kvlocSize = 8
	tocOff := int(n.phys.BtnTableSpace.Off) + i*kvlocSize
	if tocOff+kvlocSize > len(data) {
		return nil, nil, false, fmt.Errorf("%w: kvloc toc entry %d out of range", apfserr.Corrupted, i)
	}
	kvloc := types.KvlocT{K: readNloc(data[tocOff : tocOff+4]), V: readNloc(data[tocOff+4 : tocOff+8])}

	kLoc := kvloc.KeyLocation()
	kStart := keyStart + int(kLoc.Offset())
	kEnd := kStart + int(kLoc.Length())
	if kStart < 0 || kEnd > len(data) {
		return nil, nil, false, fmt.Errorf("%w: variable key %d out of range", apfserr.Corrupted, i)
	}
	key = data[kStart:kEnd]

	vLoc := kvloc.ValueLocation()
	if !vLoc.IsValid() {
		return key, nil, true, nil
	}
	vStart := valEnd - int(vLoc.Offset())
	vEnd := vStart + int(vLoc.Length())
	if vStart < 0 || vEnd > valEnd {
		return nil, nil, false, fmt.Errorf("%w: variable value %d out of range", apfserr.Corrupted, i)
	}
	return key, data[vStart:vEnd], false, nil
}
