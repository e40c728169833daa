package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/fetch-pool/pkg/dispatch"
	"github.com/Sternrassler/fetch-pool/pkg/target"
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("invalid client config")

// ConfigError describes which configuration field was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid client config: %s %s", e.Field, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// IsValidationError reports whether err rejected a batch before any fetch.
func IsValidationError(err error) bool {
	return errors.Is(err, target.ErrInvalidBatch)
}

// IsDispatcherFault reports whether err is an aborted batch caused by a panicking fetch.
func IsDispatcherFault(err error) bool {
	return errors.Is(err, dispatch.ErrDispatcherFault)
}

// InvalidEntries returns the malformed entries of a validation error, or nil.
func InvalidEntries(err error) []target.InvalidEntry {
	var batchErr *target.InvalidBatchError
	if errors.As(err, &batchErr) {
		return batchErr.Entries
	}
	return nil
}
