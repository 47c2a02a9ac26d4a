package blockdev

import (
	"fmt"
	"sync"

	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// Buffer is an in-memory handle to one on-disk block, with a reference
// count and dirty/checksum-pending flags. omap.CommitRewrite wraps a
// rewritten object map root in one and writes it back through Flush; the
// B-tree query and leaf-mutation paths work on parsed btree.Node values and
// do not use Buffer.
type Buffer struct {
	mu              sync.Mutex
	addr            types.Paddr
	data            []byte
	refs            int
	dirty           bool
	checksumPending bool
}

// NewBuffer wraps data, read from addr, in a Buffer with one reference.
func NewBuffer(addr types.Paddr, data []byte) *Buffer {
	return &Buffer{addr: addr, data: data, refs: 1}
}

// Address returns the block address this buffer was read from.
func (b *Buffer) Address() types.Paddr {
	return b.addr
}

// Data returns the buffer's backing bytes. Callers that mutate them must
// call MarkDirty.
func (b *Buffer) Data() []byte {
	return b.data
}

// Retain adds a reference, for example when a query hands the same parent
// buffer to more than one in-flight backtrack path.
func (b *Buffer) Retain() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs++
}

// Release drops a reference. It returns the remaining reference count.
func (b *Buffer) Release() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs--
	return b.refs
}

// MarkDirty flags the buffer's contents as modified and needing a write
// back to the device.
func (b *Buffer) MarkDirty() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = true
}

// IsDirty reports whether MarkDirty has been called since the buffer was
// last flushed.
func (b *Buffer) IsDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// SetChecksumPending flags that the buffer's object header checksum no
// longer matches its payload and must be recomputed before the buffer is
// written out or trusted by a reader other than the one that dirtied it.
func (b *Buffer) SetChecksumPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checksumPending = true
}

// ChecksumPending reports whether SetChecksumPending has been called since
// the checksum was last recomputed.
func (b *Buffer) ChecksumPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checksumPending
}

// ClearPending clears both the dirty and checksum-pending flags, for use
// once a buffer has been checksummed and written back.
func (b *Buffer) ClearPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = false
	b.checksumPending = false
}

// Flush writes a dirty buffer back through w and clears its flags. A clean
// buffer is left untouched. It refuses a buffer whose checksum is still
// pending: the owner must recompute it before the block may reach disk.
func Flush(w interfaces.BlockDeviceWriter, buf *Buffer) error {
	if buf.ChecksumPending() {
		return fmt.Errorf("blockdev: block %d flushed with checksum still pending", buf.Address())
	}
	if !buf.IsDirty() {
		return nil
	}
	if err := w.WriteBlock(buf.Address(), buf.Data()); err != nil {
		return err
	}
	buf.ClearPending()
	return nil
}
