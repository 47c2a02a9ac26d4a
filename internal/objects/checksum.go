// Package objects validates the object header every physical block in an
// APFS container starts with: the Fletcher 64 checksum and the oid/xid/type
// fields the B-tree engine inspects before trusting a node's contents.
package objects

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// Inspector wraps a decoded object header together with the raw bytes it
// was read from, so the checksum can be recomputed over the same payload.
// Reference: page 27 (object headers), page 148 (Fletcher 64).
type Inspector struct {
	Obj     *types.ObjPhysT
	Payload []byte
}

var (
	_ interfaces.ObjectIdentifier       = (*Inspector)(nil)
	_ interfaces.ObjectChecksumVerifier = (*Inspector)(nil)
)

// NewInspector builds an Inspector for the given header and its backing
// bytes. Payload must include the checksum field at its original offset.
func NewInspector(obj *types.ObjPhysT, payload []byte) *Inspector {
	return &Inspector{Obj: obj, Payload: payload}
}

// Checksum returns the Fletcher 64 checksum recorded in the object header.
func (i *Inspector) Checksum() [types.MaxCksumSize]byte {
	return i.Obj.OChecksum
}

// ID implements interfaces.ObjectIdentifier.
func (i *Inspector) ID() types.OidT { return i.Obj.OOid }

// TransactionID implements interfaces.ObjectIdentifier.
func (i *Inspector) TransactionID() types.XidT { return i.Obj.OXid }

// IsValid implements interfaces.ObjectIdentifier: OidInvalid never names a
// real object.
func (i *Inspector) IsValid() bool { return i.Obj.OOid != types.OidInvalid }

// VerifyChecksum implements interfaces.ObjectChecksumVerifier, reporting
// Verify's outcome as a bool for callers that only want a yes/no answer.
func (i *Inspector) VerifyChecksum() bool { return i.Verify() == nil }

// Verify recomputes the Fletcher 64 checksum over the payload with the
// checksum field zeroed and compares it against the stored value. It
// returns a wrapped apfserr.Corrupted rather than a bare bool so callers can
// match it with errors.Is while still getting a useful message.
func (i *Inspector) Verify() error {
	if len(i.Payload) < types.MaxCksumSize {
		return fmt.Errorf("%w: object payload shorter than checksum field", apfserr.Corrupted)
	}

	scratch := make([]byte, len(i.Payload))
	copy(scratch, i.Payload)
	for j := 0; j < types.MaxCksumSize; j++ {
		scratch[j] = 0
	}

	got := fletcher64(scratch)
	var gotBytes [types.MaxCksumSize]byte
	binary.LittleEndian.PutUint64(gotBytes[:], got)

	if gotBytes != i.Obj.OChecksum {
		return fmt.Errorf("%w: checksum mismatch for oid %d", apfserr.Corrupted, i.Obj.OOid)
	}
	return nil
}

// Recompute zeroes the checksum field in payload, computes the Fletcher 64
// checksum over the result, and writes it back into both obj.OChecksum and
// payload's checksum field. Callers use this after a leaf mutation, once a
// node's bytes have changed and its checksum is stale, before the buffer
// carrying it is flushed or trusted again.
func Recompute(obj *types.ObjPhysT, payload []byte) error {
	if len(payload) < types.MaxCksumSize {
		return fmt.Errorf("%w: object payload shorter than checksum field", apfserr.Corrupted)
	}
	for j := 0; j < types.MaxCksumSize; j++ {
		payload[j] = 0
	}
	sum := fletcher64(payload)
	binary.LittleEndian.PutUint64(payload[:types.MaxCksumSize], sum)
	copy(obj.OChecksum[:], payload[:types.MaxCksumSize])
	return nil
}

// fletcher64 computes the Fletcher 64 checksum of data, which must be a
// multiple of 4 bytes. Data is processed in chunks of 1024 32-bit words
// with a modular reduction between chunks, so the running sums never
// overflow 64 bits.
func fletcher64(data []byte) uint64 {
	const modulus = 0xFFFFFFFF
	const chunkWords = 1024

	var sum1, sum2 uint64

	words := len(data) / 4
	for offset := 0; offset < words; {
		end := offset + chunkWords
		if end > words {
			end = words
		}
		for ; offset < end; offset++ {
			word := uint64(binary.LittleEndian.Uint32(data[offset*4:]))
			sum1 += word
			sum2 += sum1
		}
		sum1 %= modulus
		sum2 %= modulus
	}

	return (sum2 << 32) | sum1
}
