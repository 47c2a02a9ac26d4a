// Package apfserr defines the sentinel errors shared by the B-tree engine
// and its collaborators, so callers can match them with errors.Is
// regardless of which package actually produced the wrapped error.
package apfserr

import "errors"

var (
	// NotFound is returned when a query completes without finding a
	// matching record.
	NotFound = errors.New("apfs: record not found")

	// NoSpace is returned when a leaf mutation has no room for a new
	// entry and no rebalancing is available to make room.
	NoSpace = errors.New("apfs: no space in node")

	// Corrupted is returned when on-disk data fails a structural or
	// checksum check. Callers that need the offending block should parse
	// it out of the wrapped message rather than adding a new sentinel per
	// site.
	Corrupted = errors.New("apfs: corrupted data")
)
