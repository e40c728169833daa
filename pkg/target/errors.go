package target

import (
	"errors"
	"fmt"
	"strings"
)

// Common validation errors.
var (
	// ErrInvalidTarget is matched by errors.Is for a single malformed URL.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidBatch is matched by errors.Is when a batch contains malformed URLs.
	ErrInvalidBatch = errors.New("invalid batch")
)

// InvalidTargetError describes a single string that is not an absolute URL.
type InvalidTargetError struct {
	Raw    string
	Reason string
}

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Raw, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidTargetError) Unwrap() error {
	return ErrInvalidTarget
}

// InvalidEntry is one rejected entry of a batch.
type InvalidEntry struct {
	Index  int    `json:"index"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// InvalidBatchError is returned when one or more entries of a batch fail validation.
// Entries are ordered by index.
type InvalidBatchError struct {
	Total   int
	Entries []InvalidEntry
}

// Error implements the error interface.
func (e *InvalidBatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid batch: %d of %d entries malformed", len(e.Entries), e.Total)
	for _, entry := range e.Entries {
		fmt.Fprintf(&b, "; [%d] %q: %s", entry.Index, entry.Raw, entry.Reason)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidBatchError) Unwrap() error {
	return ErrInvalidBatch
}

// Indexes returns the indexes of the malformed entries.
func (e *InvalidBatchError) Indexes() []int {
	out := make([]int, len(e.Entries))
	for i, entry := range e.Entries {
		out[i] = entry.Index
	}
	return out
}
