// Package rtdb provides a hierarchical, path-addressed record store. Records
// live at slash-separated paths ("users/<uid>", "exercise/<uid>/doing/<day>/<time>")
// and every mutation of shared records goes through Transact, a single-path
// compare-and-swap read-modify-write.
package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrPermissionDenied reports that the backing store rejected the
	// operation for authorization reasons.
	ErrPermissionDenied = errors.New("rtdb: permission denied")

	// ErrConflictExhausted reports that a Transact kept losing the
	// compare-and-swap race and ran out of attempts.
	ErrConflictExhausted = errors.New("rtdb: write conflict not resolved")

	// ErrInvalidPath reports an empty or malformed path.
	ErrInvalidPath = errors.New("rtdb: invalid path")
)

// TxFunc receives the current value at a path (nil when the path is empty)
// and returns the replacement value. Returning a nil replacement leaves the
// path untouched.
type TxFunc func(current json.RawMessage) (any, error)

// Store is the datastore collaborator contract.
type Store interface {
	// Get returns the raw value at path, or nil when absent.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// GetSubtree returns every leaf under path keyed by its relative path,
	// in lexicographic key order when iterated via sorted keys.
	GetSubtree(ctx context.Context, path string) (map[string]json.RawMessage, error)

	// Set writes value at path unconditionally.
	Set(ctx context.Context, path string, value any) error

	// Delete removes the leaf at path and every leaf below it.
	Delete(ctx context.Context, path string) error

	// ExistsByField reports whether any direct child of path has the given
	// field equal to value.
	ExistsByField(ctx context.Context, path, field, value string) (bool, error)

	// Transact runs fn against the current value at path and atomically
	// installs its replacement, retrying internally on write conflicts.
	Transact(ctx context.Context, path string, fn TxFunc) error
}

func normalizePath(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" {
			return "", ErrInvalidPath
		}
	}
	return trimmed, nil
}

func marshalValue(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	buf, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
