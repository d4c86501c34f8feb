// Package docache implements a backend-agnostic driver for caches shared
// between processes and hosts: items are persisted into a durable store so
// that every replica sees the same cache.
//
// Components:
//   - backend.Backend: record store keyed by id (e.g. MongoDB, Redis, bbolt).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Key: hierarchical key (ordered segments), encoded injectively into one
//     storage id. Clearing a key clears everything nested under it.
//
// Ids:
//
//	<ns>/<seg>/<seg>/...  - segments are percent-escaped, so the separator
//	                        never collides with segment content
//
// Writes are last-write-wins. Two callers racing a Set on the same key is a
// steady-state event (cache stampede), not an error: a backend-level write
// collision is swallowed and the peer's record stands. Expiration is stored
// and returned but never enforced on read; Purge sweeps expired records as a
// separate maintenance pass and the frontend decides whether a stale hit is
// still a hit.
package docache
