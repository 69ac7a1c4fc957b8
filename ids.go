package downblog

import "github.com/google/uuid"

// IDAllocator assigns identifiers to new posts. Implementations must never
// return the same identifier twice over the lifetime of a store, and must be
// safe for concurrent use.
type IDAllocator interface {
	Allocate() string
}

// UUIDAllocator allocates random (version 4) UUIDs. It does not depend on the
// size of the store, so concurrent submissions and deletions cannot cause reuse.
type UUIDAllocator struct{}

// Allocate returns a new random UUID string.
func (UUIDAllocator) Allocate() string {
	return uuid.NewString()
}

// IDAllocatorFunc adapts a function to an IDAllocator.
type IDAllocatorFunc func() string

func (f IDAllocatorFunc) Allocate() string {
	return f()
}
