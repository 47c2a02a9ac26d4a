package btree

import "github.com/apfsdev/btreeengine/internal/apfserr"

// Re-exported so callers that only import internal/btree don't also need
// internal/apfserr for errors.Is checks.
var (
	ErrNotFound  = apfserr.NotFound
	ErrNoSpace   = apfserr.NoSpace
	ErrCorrupted = apfserr.Corrupted
)
