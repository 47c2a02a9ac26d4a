// File: internal/interfaces/block_device.go
package interfaces

import (
	"io"

	"github.com/apfsdev/btreeengine/internal/types"
)

// BlockDeviceReader provides methods for reading from block devices
type BlockDeviceReader interface {
	// ReadBlock reads a single block at the specified address
	ReadBlock(address types.Paddr) ([]byte, error)

	// ReadBlockRange reads multiple consecutive blocks
	ReadBlockRange(start types.Paddr, count uint32) ([]byte, error)

	// ReadBytes reads a specific number of bytes starting at a block address and offset
	ReadBytes(address types.Paddr, offset uint32, length uint32) ([]byte, error)

	// BlockSize returns the size of a single block in bytes
	BlockSize() uint32

	// TotalBlocks returns the total number of blocks on the device
	TotalBlocks() uint64

	// TotalSize returns the total size of the device in bytes
	TotalSize() uint64

	// IsValidAddress checks if a block address is valid
	IsValidAddress(address types.Paddr) bool

	// CanReadRange checks if a range of blocks can be read
	CanReadRange(start types.Paddr, count uint32) bool
}

// BlockDeviceWriter provides methods for writing to block devices
type BlockDeviceWriter interface {
	// WriteBlock writes a single block at the specified address
	WriteBlock(address types.Paddr, data []byte) error

	// WriteBlockRange writes multiple consecutive blocks
	WriteBlockRange(start types.Paddr, data []byte) error

	// WriteBytes writes a specific number of bytes starting at a block address and offset
	WriteBytes(address types.Paddr, offset uint32, data []byte) error

	// FlushWrites ensures all pending writes are committed to storage
	FlushWrites() error

	// IsReadOnly checks if the device is read-only
	IsReadOnly() bool

	// CanWriteRange checks if a range of blocks can be written
	CanWriteRange(start types.Paddr, count uint32) bool
}

// BlockDeviceInfo provides information about a block device
type BlockDeviceInfo interface {
	// DevicePath returns the system path to the device
	DevicePath() string

	// IsWritable checks if the device supports writing
	IsWritable() bool
}

// BlockDevice represents a complete block device interface
type BlockDevice interface {
	BlockDeviceReader
	BlockDeviceWriter
	BlockDeviceInfo
	io.Closer
}
