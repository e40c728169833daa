// Package target validates raw URL strings into Targets before any fetch is scheduled.
package target

import (
	"fmt"
	"net/url"
)

// Target is a validated absolute URL.
//
// The fields are unexported so a Target can only be obtained through Parse or
// ParseBatch. The zero value is not a valid Target (see IsZero).
type Target struct {
	raw string
	u   *url.URL
}

// Parse validates a single raw string.
// The string must be an absolute URL with a scheme and an authority.
func Parse(raw string) (Target, error) {
	reason := check(raw)
	if reason != "" {
		return Target{}, &InvalidTargetError{Raw: raw, Reason: reason}
	}

	u, _ := url.Parse(raw)
	return Target{raw: raw, u: u}, nil
}

// ParseBatch validates every entry of raws.
//
// Either all entries are valid and the returned slice has the same length and
// order as raws, or an *InvalidBatchError listing every malformed entry is
// returned together with a nil slice.
func ParseBatch(raws []string) ([]Target, error) {
	targets := make([]Target, len(raws))
	var invalid []InvalidEntry

	for i, raw := range raws {
		if reason := check(raw); reason != "" {
			invalid = append(invalid, InvalidEntry{Index: i, Raw: raw, Reason: reason})
			continue
		}
		u, _ := url.Parse(raw)
		targets[i] = Target{raw: raw, u: u}
	}

	if len(invalid) > 0 {
		return nil, &InvalidBatchError{Total: len(raws), Entries: invalid}
	}

	return targets, nil
}

// check returns an empty string for a valid absolute URL, otherwise the reason it was rejected.
func check(raw string) string {
	if raw == "" {
		return "empty string"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("parse: %v", err)
	}
	if u.Scheme == "" {
		return "missing scheme"
	}
	if u.Opaque != "" || u.Host == "" {
		return "missing host"
	}

	return ""
}

// String returns the URL as it was supplied.
func (t Target) String() string {
	return t.raw
}

// URL returns a copy of the parsed URL. Returns nil for the zero Target.
func (t Target) URL() *url.URL {
	if t.u == nil {
		return nil
	}
	cp := *t.u
	if t.u.User != nil {
		user := *t.u.User
		cp.User = &user
	}
	return &cp
}

// Host returns the host (without port) of the URL.
func (t Target) Host() string {
	if t.u == nil {
		return ""
	}
	return t.u.Hostname()
}

// IsZero reports whether t was not produced by Parse or ParseBatch.
func (t Target) IsZero() bool {
	return t.u == nil
}

// Strings converts targets back to their raw form.
func Strings(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.raw
	}
	return out
}
