// Package bigcache implements backend.Backend on an in-process BigCache.
//
// Ephemeral: records do not survive a restart and are never shared between
// processes, so Persistent() reports false. Useful for tests and for
// single-process deployments that only want the docache API surface.
package bigcache

import (
	"bytes"
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/docache/docache/backend"
	"github.com/docache/docache/internal/record"
)

type Provider struct {
	c *bc.BigCache
}

var _ be.Backend = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // hard upper bound on entry lifetime
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) FindByID(_ context.Context, id string) (be.Record, bool, error) {
	b, err := p.c.Get(id)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return be.Record{}, false, nil
	}
	if err != nil {
		return be.Record{}, false, err
	}
	exp, payload, err := record.Decode(b)
	if err != nil {
		_ = p.c.Delete(id)
		return be.Record{}, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return be.Record{ID: id, Payload: out, ExpiresAt: exp}, true, nil
}

// Upsert is last-write-wins; BigCache has no conflicting insert path.
func (p *Provider) Upsert(_ context.Context, rec be.Record) error {
	return p.c.Set(rec.ID, record.Encode(rec.ExpiresAt, rec.Payload))
}

func (p *Provider) Delete(_ context.Context, id string) error {
	if err := p.c.Delete(id); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) DeleteTree(_ context.Context, id string) (int64, error) {
	prefix := []byte(id + be.Sep)
	var victims []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue // entry evicted mid-iteration
		}
		k := e.Key()
		if k == id || bytes.HasPrefix([]byte(k), prefix) {
			victims = append(victims, k)
		}
	}
	return p.deleteAll(victims), nil
}

func (p *Provider) DeleteExpired(_ context.Context, now int64) (int64, error) {
	var victims []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue
		}
		exp, _, derr := record.Decode(e.Value())
		if derr != nil || (exp > 0 && exp <= now) {
			victims = append(victims, e.Key())
		}
	}
	return p.deleteAll(victims), nil
}

func (p *Provider) deleteAll(keys []string) int64 {
	var n int64
	for _, k := range keys {
		if err := p.c.Delete(k); err == nil {
			n++
		}
	}
	return n
}

func (p *Provider) DropAll(_ context.Context) error {
	return p.c.Reset()
}

func (p *Provider) Ping(_ context.Context) error { return nil }

func (p *Provider) Persistent() bool { return false }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
