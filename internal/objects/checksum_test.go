package objects

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/types"
)

func buildPayload(t *testing.T, oid types.OidT, body []byte) []byte {
	t.Helper()
	payload := make([]byte, types.MaxCksumSize+16+len(body))
	binary.LittleEndian.PutUint64(payload[types.MaxCksumSize:], uint64(oid))
	copy(payload[types.MaxCksumSize+16:], body)

	scratch := make([]byte, len(payload))
	copy(scratch, payload)
	sum := fletcher64(scratch)
	binary.LittleEndian.PutUint64(payload[:types.MaxCksumSize], sum)
	return payload
}

func TestVerify_ValidChecksumPasses(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	payload := buildPayload(t, 42, body)

	obj := &types.ObjPhysT{OOid: 42}
	copy(obj.OChecksum[:], payload[:types.MaxCksumSize])

	inspector := NewInspector(obj, payload)
	require.NoError(t, inspector.Verify())
}

func TestVerify_TamperedPayloadFails(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	payload := buildPayload(t, 42, body)
	payload[len(payload)-1] ^= 0xFF

	obj := &types.ObjPhysT{OOid: 42}
	copy(obj.OChecksum[:], payload[:types.MaxCksumSize])

	inspector := NewInspector(obj, payload)
	err := inspector.Verify()
	require.Error(t, err)
	require.ErrorIs(t, err, apfserr.Corrupted)
}

func TestVerify_ShortPayloadIsCorrupted(t *testing.T) {
	obj := &types.ObjPhysT{}
	inspector := NewInspector(obj, []byte{1, 2, 3})
	require.ErrorIs(t, inspector.Verify(), apfserr.Corrupted)
}
