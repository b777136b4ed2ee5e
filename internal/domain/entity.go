package domain

// Entity is implemented by every record kind held in the per-batch cache.
// Clone returns a deep copy so stores never share memory with callers.
type Entity[T any] interface {
	EntityID() string
	Clone() T
}

// Sanitizable is implemented by records whose string fields may be rejected
// by storage constraints. Sanitized returns a copy safe to retry.
type Sanitizable[T any] interface {
	Sanitized() T
}
