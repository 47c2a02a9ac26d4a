package blockdev

import (
	"fmt"
	"sync"

	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// MemDevice is an in-memory block device. It generalizes the hand-written
// mock block device readers built per test case elsewhere into a reusable
// type, since fixtures and the CLI demo both need a real (if trivial) block
// store rather than a throwaway mock.
type MemDevice struct {
	mu        sync.RWMutex
	blockSize uint32
	blocks    map[types.Paddr][]byte
	readOnly  bool
}

var _ interfaces.BlockDevice = (*MemDevice)(nil)

// NewMemDevice creates an empty in-memory device with the given block size.
func NewMemDevice(blockSize uint32) *MemDevice {
	return &MemDevice{
		blockSize: blockSize,
		blocks:    make(map[types.Paddr][]byte),
	}
}

// SetBlock installs the contents of a block directly, without going
// through WriteBlock. It's meant for constructing test fixtures.
func (d *MemDevice) SetBlock(addr types.Paddr, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, d.blockSize)
	copy(buf, data)
	d.blocks[addr] = buf
}

// ReadBlock implements interfaces.BlockDeviceReader.
func (d *MemDevice) ReadBlock(address types.Paddr) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	block, ok := d.blocks[address]
	if !ok {
		return nil, fmt.Errorf("blockdev: no block at address %d", address)
	}
	out := make([]byte, len(block))
	copy(out, block)
	return out, nil
}

// ReadBlockRange implements interfaces.BlockDeviceReader.
func (d *MemDevice) ReadBlockRange(start types.Paddr, count uint32) ([]byte, error) {
	out := make([]byte, 0, int(count)*int(d.blockSize))
	for i := uint32(0); i < count; i++ {
		block, err := d.ReadBlock(start + types.Paddr(i))
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// ReadBytes implements interfaces.BlockDeviceReader.
func (d *MemDevice) ReadBytes(address types.Paddr, offset uint32, length uint32) ([]byte, error) {
	block, err := d.ReadBlock(address)
	if err != nil {
		return nil, err
	}
	if uint64(offset)+uint64(length) > uint64(len(block)) {
		return nil, fmt.Errorf("blockdev: read [%d:%d) exceeds block size %d", offset, offset+length, len(block))
	}
	return block[offset : offset+length], nil
}

// BlockSize implements interfaces.BlockDeviceReader.
func (d *MemDevice) BlockSize() uint32 { return d.blockSize }

// TotalBlocks implements interfaces.BlockDeviceReader.
func (d *MemDevice) TotalBlocks() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(len(d.blocks))
}

// TotalSize implements interfaces.BlockDeviceReader.
func (d *MemDevice) TotalSize() uint64 {
	return d.TotalBlocks() * uint64(d.blockSize)
}

// IsValidAddress implements interfaces.BlockDeviceReader.
func (d *MemDevice) IsValidAddress(address types.Paddr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.blocks[address]
	return ok
}

// CanReadRange implements interfaces.BlockDeviceReader.
func (d *MemDevice) CanReadRange(start types.Paddr, count uint32) bool {
	for i := uint32(0); i < count; i++ {
		if !d.IsValidAddress(start + types.Paddr(i)) {
			return false
		}
	}
	return true
}

// WriteBlock implements interfaces.BlockDeviceWriter.
func (d *MemDevice) WriteBlock(address types.Paddr, data []byte) error {
	if d.readOnly {
		return fmt.Errorf("blockdev: device is read-only")
	}
	if uint32(len(data)) != d.blockSize {
		return fmt.Errorf("blockdev: write of %d bytes does not match block size %d", len(data), d.blockSize)
	}
	d.SetBlock(address, data)
	return nil
}

// WriteBlockRange implements interfaces.BlockDeviceWriter.
func (d *MemDevice) WriteBlockRange(start types.Paddr, data []byte) error {
	count := uint32(len(data)) / d.blockSize
	for i := uint32(0); i < count; i++ {
		chunk := data[i*d.blockSize : (i+1)*d.blockSize]
		if err := d.WriteBlock(start+types.Paddr(i), chunk); err != nil {
			return err
		}
	}
	return nil
}

// WriteBytes implements interfaces.BlockDeviceWriter.
func (d *MemDevice) WriteBytes(address types.Paddr, offset uint32, data []byte) error {
	block, err := d.ReadBlock(address)
	if err != nil {
		block = make([]byte, d.blockSize)
	}
	if uint64(offset)+uint64(len(data)) > uint64(len(block)) {
		return fmt.Errorf("blockdev: write [%d:%d) exceeds block size %d", offset, uint64(offset)+uint64(len(data)), len(block))
	}
	copy(block[offset:], data)
	return d.WriteBlock(address, block)
}

// FlushWrites implements interfaces.BlockDeviceWriter. MemDevice has no
// write-back target, so this is a no-op.
func (d *MemDevice) FlushWrites() error { return nil }

// IsReadOnly implements interfaces.BlockDeviceWriter.
func (d *MemDevice) IsReadOnly() bool { return d.readOnly }

// CanWriteRange implements interfaces.BlockDeviceWriter.
func (d *MemDevice) CanWriteRange(start types.Paddr, count uint32) bool {
	return !d.readOnly
}

// DevicePath implements interfaces.BlockDeviceInfo.
func (d *MemDevice) DevicePath() string { return "memory" }

// IsWritable implements interfaces.BlockDeviceInfo.
func (d *MemDevice) IsWritable() bool { return !d.readOnly }

// Close implements io.Closer.
func (d *MemDevice) Close() error { return nil }
