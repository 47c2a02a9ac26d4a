package omap

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/types"
)

// headerSize is sizeof(omap_phys_t): a 32-byte obj_phys_t followed by the
// nine omap-specific fields (4 uint32s, then oid, oid, xid, xid, xid).
const headerSize = 32 + 4*4 + 8*5

// Header is the object map's own on-disk header, distinct from the root
// node of the B-tree it points at via TreeOID.
type Header struct {
	phys types.OmapPhysT
}

var _ interfaces.ObjectMapReader = (*Header)(nil)

// ParseHeader decodes an object map's header block, verifying its object
// checksum first.
func ParseHeader(raw []byte) (*Header, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: omap header block shorter than omap_phys_t", apfserr.Corrupted)
	}

	var obj types.ObjPhysT
	copy(obj.OChecksum[:], raw[0:8])
	obj.OOid = types.OidT(binary.LittleEndian.Uint64(raw[8:16]))
	obj.OXid = types.XidT(binary.LittleEndian.Uint64(raw[16:24]))
	obj.OType = binary.LittleEndian.Uint32(raw[24:28])
	obj.OSubtype = binary.LittleEndian.Uint32(raw[28:32])

	if err := objects.NewInspector(&obj, raw).Verify(); err != nil {
		return nil, err
	}

	h := &Header{phys: types.OmapPhysT{
		OmO:                obj,
		OmFlags:            binary.LittleEndian.Uint32(raw[32:36]),
		OmSnapCount:        binary.LittleEndian.Uint32(raw[36:40]),
		OmTreeType:         binary.LittleEndian.Uint32(raw[40:44]),
		OmSnapshotTreeType: binary.LittleEndian.Uint32(raw[44:48]),
		OmTreeOid:          types.OidT(binary.LittleEndian.Uint64(raw[48:56])),
		OmSnapshotTreeOid:  types.OidT(binary.LittleEndian.Uint64(raw[56:64])),
		OmMostRecentSnap:   types.XidT(binary.LittleEndian.Uint64(raw[64:72])),
		OmPendingRevertMin: types.XidT(binary.LittleEndian.Uint64(raw[72:80])),
		OmPendingRevertMax: types.XidT(binary.LittleEndian.Uint64(raw[80:88])),
	}}
	return h, nil
}

// Flags implements interfaces.ObjectMapReader.
func (h *Header) Flags() uint32 { return h.phys.OmFlags }

// SnapshotCount implements interfaces.ObjectMapReader.
func (h *Header) SnapshotCount() uint32 { return h.phys.OmSnapCount }

// TreeType implements interfaces.ObjectMapReader.
func (h *Header) TreeType() uint32 { return h.phys.OmTreeType }

// SnapshotTreeType implements interfaces.ObjectMapReader.
func (h *Header) SnapshotTreeType() uint32 { return h.phys.OmSnapshotTreeType }

// TreeOID implements interfaces.ObjectMapReader.
func (h *Header) TreeOID() types.OidT { return h.phys.OmTreeOid }

// SnapshotTreeOID implements interfaces.ObjectMapReader.
func (h *Header) SnapshotTreeOID() types.OidT { return h.phys.OmSnapshotTreeOid }

// MostRecentSnapshotXID implements interfaces.ObjectMapReader.
func (h *Header) MostRecentSnapshotXID() types.XidT { return h.phys.OmMostRecentSnap }

// Open reads the object map header at headerAddr, then loads the root
// node of the tree it points to (TreeOID, read as a physical block
// address since the object map's own tree is itself a physical
// structure), returning a Map ready for Lookup/LookupForWrite.
func Open(device interfaces.BlockDeviceReader, headerAddr types.Paddr) (*Map, error) {
	raw, err := device.ReadBlock(headerAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: reading omap header block %d: %v", apfserr.Corrupted, headerAddr, err)
	}
	header, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}

	loader := PhysicalLoader{Device: device}
	root, err := loader.Load(header.TreeOID())
	if err != nil {
		return nil, fmt.Errorf("%w: loading omap root at oid %d: %v", apfserr.Corrupted, header.TreeOID(), err)
	}

	return New(root, device), nil
}
