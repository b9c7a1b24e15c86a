package keybackend

import "errors"

var (
	// ErrConflictingSources is returned when more than one credentials source is configured.
	ErrConflictingSources = errors.New("conflicting credentials sources")
	// ErrIncompleteKeyPair is returned when a key file lacks the access or secret key.
	ErrIncompleteKeyPair = errors.New("incomplete key pair")
)
