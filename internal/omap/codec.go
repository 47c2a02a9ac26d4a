package omap

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/types"
)

// EncodeKey serializes an object map key to the 16-byte on-disk layout:
// ok_oid followed by ok_xid.
func EncodeKey(k types.OmapKeyT) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], uint64(k.OkOid))
	binary.LittleEndian.PutUint64(b[8:16], uint64(k.OkXid))
	return b
}

// DecodeKey parses a 16-byte object map key.
func DecodeKey(raw []byte) (types.OmapKeyT, error) {
	if len(raw) < 16 {
		return types.OmapKeyT{}, fmt.Errorf("%w: omap key shorter than 16 bytes", apfserr.Corrupted)
	}
	return types.OmapKeyT{
		OkOid: types.OidT(binary.LittleEndian.Uint64(raw[0:8])),
		OkXid: types.XidT(binary.LittleEndian.Uint64(raw[8:16])),
	}, nil
}

// EncodeVal serializes an object map value to the 16-byte on-disk layout:
// ov_flags, ov_size, ov_paddr.
func EncodeVal(v types.OmapValT) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], v.OvFlags)
	binary.LittleEndian.PutUint32(b[4:8], v.OvSize)
	binary.LittleEndian.PutUint64(b[8:16], uint64(v.OvPaddr))
	return b
}

// DecodeVal parses a 16-byte object map value.
func DecodeVal(raw []byte) (types.OmapValT, error) {
	if len(raw) < 16 {
		return types.OmapValT{}, fmt.Errorf("%w: omap value shorter than 16 bytes", apfserr.Corrupted)
	}
	return types.OmapValT{
		OvFlags: binary.LittleEndian.Uint32(raw[0:4]),
		OvSize:  binary.LittleEndian.Uint32(raw[4:8]),
		OvPaddr: types.Paddr(int64(binary.LittleEndian.Uint64(raw[8:16]))),
	}, nil
}
