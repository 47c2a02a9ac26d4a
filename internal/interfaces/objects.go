// File: internal/interfaces/objects.go
package interfaces

import (
	"github.com/apfsdev/btreeengine/internal/types"
)

// ObjectIdentifier provides methods for working with object identifiers
type ObjectIdentifier interface {
	// ID returns the object's unique identifier
	ID() types.OidT

	// TransactionID returns the transaction identifier of the most recent modification
	TransactionID() types.XidT

	// IsValid checks if the object identifier is valid
	IsValid() bool
}

// ObjectChecksumVerifier provides methods for verifying object integrity
type ObjectChecksumVerifier interface {
	// Checksum returns the object's Fletcher 64 checksum
	Checksum() [types.MaxCksumSize]byte

	// VerifyChecksum checks the integrity of the object's checksum
	VerifyChecksum() bool
}
