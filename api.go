package docache

import (
	"context"
	"time"

	"github.com/docache/docache/backend"
	c "github.com/docache/docache/codec"
)

// Item is what Get hands back: the decoded value and the stored expiration.
// ExpiresAt is informational only - the driver never treats an expired item
// as a miss. Enforcement (and the choice not to enforce) belongs to the
// frontend consuming the cache.
type Item[V any] struct {
	Value     V
	ExpiresAt time.Time // zero => never expires
}

// Cache is the backend-agnostic driver contract consumed by a cache frontend.
// V is the caller's value type. Serialization is handled by a pluggable
// Codec[V]; storage by a pluggable backend.Backend.
//
// Every method is a single synchronous round trip to the backend; the driver
// keeps no state between calls and spawns no goroutines. Concurrency comes
// from outside: many processes share one backend, and all mutual exclusion is
// delegated to the backend's atomic upsert (last write wins).
type Cache[V any] interface {
	// Get returns the item stored under key, or ok=false when there is no
	// record or the stored payload cannot be decoded (a malformed payload
	// is a miss, not an error).
	Get(ctx context.Context, key Key) (item Item[V], ok bool, err error)

	// Set stores value under key, replacing any previous record. ttl <= 0
	// falls back to DefaultTTL; if that is also zero the record never
	// expires. A write collision with a concurrent Set on the same key is
	// swallowed: Set reports success and the peer's record stands, so the
	// return value is not proof of durability under contention.
	Set(ctx context.Context, key Key, value V, ttl time.Duration) error

	// Clear removes the record for key and every record nested under it.
	// A nil or empty key clears the entire store via the backend's DropAll:
	// unlike a keyed Clear, that is NOT namespace-scoped and also removes
	// records written by other namespaces sharing the same collection,
	// bucket, or key prefix.
	Clear(ctx context.Context, key Key) error

	// Purge removes records whose expiration has passed and returns how
	// many were deleted. Unset or future expirations survive.
	Purge(ctx context.Context) (int64, error)

	// Available reports whether the backend is reachable. Never panics and
	// never returns an error; probe failures are logged and read as false.
	Available(ctx context.Context) bool

	// Persistent reports whether records survive a process restart
	// (forwarded from the backend).
	Persistent() bool

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Options tune the driver. Namespace, Backend and Codec are required;
// everything else has a sensible default.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace isolating this cache's ids. e.g. "sessions", "profiles"
	Backend   backend.Backend
	Codec     c.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // applied when Set gets ttl <= 0; 0 => never expire
	Disabled   bool          // default false (enabled); disabled => gets miss, writes no-op
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
