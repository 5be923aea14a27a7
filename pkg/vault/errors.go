package vault

import "errors"

var (
	// ErrConflict is returned by a DocumentStore when a conditional create
	// hits an existing primary key. The store layer absorbs it by re-reading;
	// it never escapes Create or GetOrCreate.
	ErrConflict = errors.New("token already exists")

	// ErrIntegrity signals that a find matched more than one record for a
	// filter that must be unique. This is a derivation or write-path defect,
	// not a lookup miss, and is surfaced to the caller as fatal.
	ErrIntegrity = errors.New("more than one token found")
)
