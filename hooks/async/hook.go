// Package asynchook decouples hook callbacks from the cache's hot path:
// events are queued and delivered by background workers, and dropped when the
// queue is full rather than blocking a Get/Set.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := docache.New[Session](docache.Options[Session]{
//	    Namespace: "sessions",
//	    Backend:   backend,
//	    Codec:     codec.JSON[Session]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/docache/docache"
)

type Hooks struct {
	inner docache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ docache.Hooks = (*Hooks)(nil)

func New(inner docache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHeal(id, reason string)  { h.try(func() { h.inner.SelfHeal(id, reason) }) }
func (h *Hooks) ConflictSwallowed(id string) { h.try(func() { h.inner.ConflictSwallowed(id) }) }
func (h *Hooks) PurgeDone(removed int64)     { h.try(func() { h.inner.PurgeDone(removed) }) }
