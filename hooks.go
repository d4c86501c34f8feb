package docache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A stored payload could not be decoded on read and the record was
	// deleted best-effort. reason ∈ {"corrupt", "value_decode"}
	SelfHeal(id, reason string)

	// A concurrent upsert on the same id collided and the collision was
	// swallowed (the racing peer's write stands).
	ConflictSwallowed(id string)

	// A maintenance sweep finished; removed is the number of expired
	// records deleted.
	PurgeDone(removed int64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)  {}
func (NopHooks) ConflictSwallowed(string) {}
func (NopHooks) PurgeDone(int64)          {}
