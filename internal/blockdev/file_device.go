package blockdev

import (
	"fmt"
	"os"
	"sync"

	"github.com/apfsdev/btreeengine/internal/interfaces"
	"github.com/apfsdev/btreeengine/internal/types"
)

// FileDevice is a block device backed by a regular file or raw device node,
// for use by the CLI against a real container image.
type FileDevice struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	blockSize uint32
	readOnly  bool
	size      int64
}

var _ interfaces.BlockDevice = (*FileDevice)(nil)

// OpenFileDevice opens path for block-addressed reads (and writes, unless
// readOnly) with the given block size.
func OpenFileDevice(path string, blockSize uint32, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	return &FileDevice{
		f:         f,
		path:      path,
		blockSize: blockSize,
		readOnly:  readOnly,
		size:      info.Size(),
	}, nil
}

func (d *FileDevice) offset(address types.Paddr) int64 {
	return int64(address) * int64(d.blockSize)
}

// ReadBlock implements interfaces.BlockDeviceReader.
func (d *FileDevice) ReadBlock(address types.Paddr) ([]byte, error) {
	return d.ReadBytes(address, 0, d.blockSize)
}

// ReadBlockRange implements interfaces.BlockDeviceReader.
func (d *FileDevice) ReadBlockRange(start types.Paddr, count uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, int(count)*int(d.blockSize))
	if _, err := d.f.ReadAt(buf, d.offset(start)); err != nil {
		return nil, fmt.Errorf("blockdev: read range at %d: %w", start, err)
	}
	return buf, nil
}

// ReadBytes implements interfaces.BlockDeviceReader.
func (d *FileDevice) ReadBytes(address types.Paddr, offset uint32, length uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, length)
	if _, err := d.f.ReadAt(buf, d.offset(address)+int64(offset)); err != nil {
		return nil, fmt.Errorf("blockdev: read %d bytes at block %d offset %d: %w", length, address, offset, err)
	}
	return buf, nil
}

// BlockSize implements interfaces.BlockDeviceReader.
func (d *FileDevice) BlockSize() uint32 { return d.blockSize }

// TotalBlocks implements interfaces.BlockDeviceReader.
func (d *FileDevice) TotalBlocks() uint64 { return uint64(d.size) / uint64(d.blockSize) }

// TotalSize implements interfaces.BlockDeviceReader.
func (d *FileDevice) TotalSize() uint64 { return uint64(d.size) }

// IsValidAddress implements interfaces.BlockDeviceReader.
func (d *FileDevice) IsValidAddress(address types.Paddr) bool {
	return address.Validate() && uint64(address) < d.TotalBlocks()
}

// CanReadRange implements interfaces.BlockDeviceReader.
func (d *FileDevice) CanReadRange(start types.Paddr, count uint32) bool {
	return d.IsValidAddress(start) && uint64(start)+uint64(count) <= d.TotalBlocks()
}

// WriteBlock implements interfaces.BlockDeviceWriter.
func (d *FileDevice) WriteBlock(address types.Paddr, data []byte) error {
	return d.WriteBytes(address, 0, data)
}

// WriteBlockRange implements interfaces.BlockDeviceWriter.
func (d *FileDevice) WriteBlockRange(start types.Paddr, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readOnly {
		return fmt.Errorf("blockdev: %s is read-only", d.path)
	}
	if _, err := d.f.WriteAt(data, d.offset(start)); err != nil {
		return fmt.Errorf("blockdev: write range at %d: %w", start, err)
	}
	return nil
}

// WriteBytes implements interfaces.BlockDeviceWriter.
func (d *FileDevice) WriteBytes(address types.Paddr, offset uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readOnly {
		return fmt.Errorf("blockdev: %s is read-only", d.path)
	}
	if _, err := d.f.WriteAt(data, d.offset(address)+int64(offset)); err != nil {
		return fmt.Errorf("blockdev: write at block %d offset %d: %w", address, offset, err)
	}
	return nil
}

// FlushWrites implements interfaces.BlockDeviceWriter.
func (d *FileDevice) FlushWrites() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Sync()
}

// IsReadOnly implements interfaces.BlockDeviceWriter.
func (d *FileDevice) IsReadOnly() bool { return d.readOnly }

// CanWriteRange implements interfaces.BlockDeviceWriter.
func (d *FileDevice) CanWriteRange(start types.Paddr, count uint32) bool {
	return !d.readOnly && d.CanReadRange(start, count)
}

// DevicePath implements interfaces.BlockDeviceInfo.
func (d *FileDevice) DevicePath() string { return d.path }

// IsWritable implements interfaces.BlockDeviceInfo.
func (d *FileDevice) IsWritable() bool { return !d.readOnly }

// Close implements io.Closer.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}
