// Package backend defines the storage abstraction used by docache.
//
// A Backend owns the physical record store. Implementations MUST be safe for
// concurrent use: multiple processes and goroutines call Upsert/FindByID on
// the same ids in steady state (cache stampede), and the only mutual
// exclusion docache relies on is the store's atomic single-record upsert.
//
// Important: the id space handed to a Backend is owned by docache. External
// code MUST NOT write foreign values under docache's namespace prefix;
// byte-oriented backends validate record framing on read and foreign writes
// may be treated as corruption and deleted.
package backend

import (
	"context"
	"errors"
)

// Sep is the id segment delimiter. DeleteTree semantics and the key codec in
// the root package both depend on it; backends must treat it as opaque id
// content everywhere except DeleteTree.
const Sep = "/"

// ErrConflict reports a write collision between concurrent upserts of the
// same id. Backends wrap their store-specific duplicate/conflict errors with
// it; the swallow-or-surface policy lives in the driver, never here.
var ErrConflict = errors.New("docache: concurrent upsert conflict")

// Record is the persisted shape of one cache item.
type Record struct {
	// ID is the storage identifier, a pure function of the cache key.
	ID string
	// Payload is the serialized application value. Opaque to the backend.
	Payload []byte
	// ExpiresAt is the expiration timestamp in epoch seconds; 0 = never.
	ExpiresAt int64
}

// Backend is a minimal durable record store keyed by id.
type Backend interface {
	// FindByID returns (rec, true, nil) on hit; (zero, false, nil) on miss.
	// IO/remote errors return (zero, false, err).
	FindByID(ctx context.Context, id string) (Record, bool, error)

	// Upsert atomically creates or replaces the record with rec.ID.
	// Last write wins. A transient collision with a racing writer is
	// reported as an error wrapping ErrConflict.
	Upsert(ctx context.Context, rec Record) error

	// Delete removes the single record with id, if present. Best-effort:
	// deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteTree removes the record with exactly id and every record whose
	// id starts with id+Sep, returning the number removed. Ids that merely
	// share a textual prefix ("a/bc" under "a/b") are left alone.
	DeleteTree(ctx context.Context, id string) (int64, error)

	// DeleteExpired removes records with 0 < ExpiresAt <= now and returns
	// the number removed. Records that never expire survive.
	DeleteExpired(ctx context.Context, now int64) (int64, error)

	// DropAll removes every record in the store.
	DropAll(ctx context.Context) error

	// Ping reports whether the store is reachable and compatible.
	Ping(ctx context.Context) error

	// Persistent reports whether records survive a process restart.
	Persistent() bool

	// Close releases resources.
	Close(ctx context.Context) error
}
