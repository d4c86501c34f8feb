package bigcache

import (
	"bytes"
	"context"
	"testing"
	"time"

	be "github.com/docache/docache/backend"
)

func newTestBackend(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{LifeWindow: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestRoundTripAndReplace(t *testing.T) {
	ctx := context.Background()
	p := newTestBackend(t)

	if _, ok, err := p.FindByID(ctx, "nope"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	if err := p.Upsert(ctx, be.Record{ID: "ns/a", Payload: []byte("v1"), ExpiresAt: 7}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, ok, err := p.FindByID(ctx, "ns/a")
	if err != nil || !ok || !bytes.Equal(got.Payload, []byte("v1")) || got.ExpiresAt != 7 {
		t.Fatalf("round trip mismatch: ok=%v err=%v got=%+v", ok, err, got)
	}

	if err := p.Upsert(ctx, be.Record{ID: "ns/a", Payload: []byte("v2")}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	got, _, _ = p.FindByID(ctx, "ns/a")
	if !bytes.Equal(got.Payload, []byte("v2")) || got.ExpiresAt != 0 {
		t.Fatalf("replace mismatch: %+v", got)
	}
}

func TestDeleteTreeAndSiblings(t *testing.T) {
	ctx := context.Background()
	p := newTestBackend(t)

	for _, id := range []string{"a/b", "a/b/c", "a/bc", "a"} {
		if err := p.Upsert(ctx, be.Record{ID: id, Payload: []byte(id)}); err != nil {
			t.Fatalf("Upsert %q: %v", id, err)
		}
	}
	n, err := p.DeleteTree(ctx, "a/b")
	if err != nil {
		t.Fatalf("DeleteTree: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteTree removed %d, want 2", n)
	}
	for id, want := range map[string]bool{"a": true, "a/b": false, "a/b/c": false, "a/bc": true} {
		if _, ok, _ := p.FindByID(ctx, id); ok != want {
			t.Fatalf("presence of %q = %v, want %v", id, ok, want)
		}
	}
}

func TestDeleteExpiredAndDrop(t *testing.T) {
	ctx := context.Background()
	p := newTestBackend(t)

	for _, r := range []be.Record{
		{ID: "old", Payload: []byte("x"), ExpiresAt: 10},
		{ID: "new", Payload: []byte("y"), ExpiresAt: 10_000},
		{ID: "keep", Payload: []byte("z")},
	} {
		if err := p.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	n, err := p.DeleteExpired(ctx, 100)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteExpired removed %d, want 1", n)
	}

	if err := p.DropAll(ctx); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	for _, id := range []string{"new", "keep"} {
		if _, ok, _ := p.FindByID(ctx, id); ok {
			t.Fatalf("%q survived DropAll", id)
		}
	}
}

func TestEphemeral(t *testing.T) {
	p := newTestBackend(t)
	if p.Persistent() {
		t.Fatalf("bigcache backend must report non-persistent")
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
