package omap

import (
	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// Entry is a decoded (key, value) pair from the object map, handed back to
// callers that need more than the bare physical address Lookup returns.
type Entry struct {
	key types.OmapKeyT
	val types.OmapValT
}

var _ interfaces.ObjectMapEntryReader = Entry{}

// ObjectID implements interfaces.ObjectMapEntryReader.
func (e Entry) ObjectID() types.OidT { return e.key.OkOid }

// TransactionID implements interfaces.ObjectMapEntryReader.
func (e Entry) TransactionID() types.XidT { return e.key.OkXid }

// Flags implements interfaces.ObjectMapEntryReader.
func (e Entry) Flags() uint32 { return e.val.OvFlags }

// Size implements interfaces.ObjectMapEntryReader.
func (e Entry) Size() uint32 { return e.val.OvSize }

// PhysicalAddress implements interfaces.ObjectMapEntryReader.
func (e Entry) PhysicalAddress() types.Paddr { return e.val.OvPaddr }

// IsDeleted implements interfaces.ObjectMapEntryReader.
func (e Entry) IsDeleted() bool { return e.val.OvFlags&types.OmapValDeleted != 0 }

// IsEncrypted implements interfaces.ObjectMapEntryReader.
func (e Entry) IsEncrypted() bool { return e.val.OvFlags&types.OmapValEncrypted != 0 }

// HasHeader implements interfaces.ObjectMapEntryReader.
func (e Entry) HasHeader() bool { return e.val.OvFlags&types.OmapValNoheader == 0 }

// LookupEntry resolves oid as of xid to the same entry Lookup finds, but
// returns the full decoded entry rather than just its physical address, for
// callers that need to inspect flags or size (the CLI's inspector output,
// mainly). Unlike Lookup, it returns an entry flagged OmapValDeleted instead
// of failing, so the caller can check IsDeleted.
func (m *Map) LookupEntry(oid types.OidT, xid types.XidT) (Entry, error) {
	res, err := m.runQuery(oid, xid)
	if err != nil {
		return Entry{}, err
	}
	if res.Ghost {
		return Entry{}, notFoundTombstone(oid)
	}
	val, err := DecodeVal(res.Value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{key: types.OmapKeyT{OkOid: types.OidT(res.Key.Id), OkXid: res.Key.Xid}, val: val}, nil
}
