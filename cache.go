package docache

import (
	"context"
	"errors"
	"time"

	"github.com/docache/docache/backend"
	c "github.com/docache/docache/codec"
)

type cache[V any] struct {
	ns         string // escaped namespace, id prefix
	be         backend.Backend
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	enabled    bool
	defaultTTL time.Duration

	now func() time.Time // injectable for tests
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, ErrNilBackend
	}
	if opts.Codec == nil {
		return nil, ErrNoCodec
	}
	if opts.Namespace == "" {
		return nil, ErrNoNamespace
	}

	cc := &cache[V]{
		ns:         Key{opts.Namespace}.Encode(),
		be:         opts.Backend,
		codec:      opts.Codec,
		enabled:    !opts.Disabled,
		defaultTTL: opts.DefaultTTL,
		now:        time.Now,
	}
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return cc, nil
}

func (cc *cache[V]) Get(ctx context.Context, key Key) (Item[V], bool, error) {
	var zero Item[V]
	if !cc.enabled {
		return zero, false, nil
	}
	if len(key) == 0 {
		return zero, false, ErrEmptyKey
	}
	id := cc.id(key)
	rec, ok, err := cc.be.FindByID(ctx, id)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := cc.codec.Decode(rec.Payload)
	if err != nil {
		// malformed payload is a miss, not an error; drop it best-effort
		_ = cc.be.Delete(ctx, id)
		cc.hooks.SelfHeal(id, "value_decode")
		cc.log.Warn("dropped undecodable record", Fields{"id": id, "err": err})
		return zero, false, nil
	}
	it := Item[V]{Value: v}
	if rec.ExpiresAt > 0 {
		it.ExpiresAt = time.Unix(rec.ExpiresAt, 0)
	}
	return it, true, nil
}

func (cc *cache[V]) Set(ctx context.Context, key Key, value V, ttl time.Duration) error {
	if !cc.enabled {
		return nil
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = cc.defaultTTL
	}
	payload, err := cc.codec.Encode(value)
	if err != nil {
		return err
	}
	rec := backend.Record{ID: cc.id(key), Payload: payload}
	if ttl > 0 {
		rec.ExpiresAt = cc.now().Add(ttl).Unix()
	}
	if err := cc.be.Upsert(ctx, rec); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			// a racing peer wrote the same id; its record stands
			cc.hooks.ConflictSwallowed(rec.ID)
			cc.log.Debug("upsert conflict swallowed", Fields{"id": rec.ID})
			return nil
		}
		return err
	}
	return nil
}

func (cc *cache[V]) Clear(ctx context.Context, key Key) error {
	if !cc.enabled {
		return nil
	}
	if len(key) == 0 {
		cc.log.Info("clearing all records", Fields{"ns": cc.ns})
		return cc.be.DropAll(ctx)
	}
	id := cc.id(key)
	n, err := cc.be.DeleteTree(ctx, id)
	if err != nil {
		return err
	}
	cc.log.Debug("cleared subtree", Fields{"id": id, "removed": n})
	return nil
}

func (cc *cache[V]) Purge(ctx context.Context) (int64, error) {
	if !cc.enabled {
		return 0, nil
	}
	n, err := cc.be.DeleteExpired(ctx, cc.now().Unix())
	if err != nil {
		return 0, err
	}
	cc.hooks.PurgeDone(n)
	cc.log.Debug("purged expired records", Fields{"removed": n})
	return n, nil
}

func (cc *cache[V]) Available(ctx context.Context) bool {
	if !cc.enabled {
		return false
	}
	if err := cc.be.Ping(ctx); err != nil {
		cc.log.Warn("backend unavailable", Fields{"err": err})
		return false
	}
	return true
}

func (cc *cache[V]) Persistent() bool { return cc.be.Persistent() }

func (cc *cache[V]) Close(ctx context.Context) error {
	return cc.be.Close(ctx)
}

func (cc *cache[V]) id(key Key) string {
	return cc.ns + backend.Sep + key.Encode()
}
