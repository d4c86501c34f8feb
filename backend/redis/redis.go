// Package redis implements backend.Backend on Redis.
//
// Records are framed by internal/record so the expiration travels with the
// payload. No native Redis TTL is set: expiration is informational to the
// frontend and records must stay readable until an explicit purge removes
// them. Redis SET is last-write-wins, so upserts never conflict.
package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/docache/docache/backend"
	"github.com/docache/docache/internal/record"
)

// DefaultKeyPrefix scopes every id under one Redis key prefix so that scans,
// purges and DropAll never touch foreign keys in a shared database.
const DefaultKeyPrefix = "docache:"

const scanCount = 512

var ErrNilClient = errors.New("redis backend: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ be.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	KeyPrefix   string // "" => DefaultKeyPrefix
	CloseClient bool   // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(id string) string { return p.prefix + id }

func (p *Redis) FindByID(ctx context.Context, id string) (be.Record, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(id)).Bytes()
	if err == goredis.Nil {
		return be.Record{}, false, nil // miss
	}
	if err != nil {
		return be.Record{}, false, err // transport/server error
	}
	exp, payload, err := record.Decode(b)
	if err != nil {
		// foreign or corrupt bytes under our prefix; drop and miss
		_ = p.rdb.Del(ctx, p.key(id)).Err()
		return be.Record{}, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return be.Record{ID: id, Payload: out, ExpiresAt: exp}, true, nil
}

func (p *Redis) Upsert(ctx context.Context, rec be.Record) error {
	return p.rdb.Set(ctx, p.key(rec.ID), record.Encode(rec.ExpiresAt, rec.Payload), 0).Err()
}

func (p *Redis) Delete(ctx context.Context, id string) error {
	return p.rdb.Del(ctx, p.key(id)).Err()
}

func (p *Redis) DeleteTree(ctx context.Context, id string) (int64, error) {
	n, err := p.rdb.Del(ctx, p.key(id)).Result()
	if err != nil {
		return 0, err
	}
	match := globEscape(p.key(id)+be.Sep) + "*"
	keys, err := p.scan(ctx, match)
	if err != nil {
		return n, err
	}
	if len(keys) > 0 {
		m, err := p.rdb.Del(ctx, keys...).Result()
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (p *Redis) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	keys, err := p.scan(ctx, globEscape(p.prefix)+"*")
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, k := range keys {
		b, err := p.rdb.Get(ctx, k).Bytes()
		if err == goredis.Nil {
			continue // deleted by a racing peer
		}
		if err != nil {
			return removed, err
		}
		exp, _, derr := record.Decode(b)
		if derr != nil || (exp > 0 && exp <= now) {
			m, err := p.rdb.Del(ctx, k).Result()
			removed += m
			if err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

func (p *Redis) DropAll(ctx context.Context) error {
	keys, err := p.scan(ctx, globEscape(p.prefix)+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return p.rdb.Del(ctx, keys...).Err()
}

func (p *Redis) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *Redis) Persistent() bool { return true }

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (p *Redis) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := p.rdb.Scan(ctx, 0, match, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// globEscape quotes s as a literal for a SCAN MATCH pattern, so separator and
// segment bytes never act as wildcards.
func globEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
