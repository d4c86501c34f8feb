package bolt

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	be "github.com/docache/docache/backend"
)

func openTestDB(t *testing.T, path string) *bbolt.DB {
	t.Helper()
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open: %v", err)
	}
	return db
}

func newTestBackend(t *testing.T) *Bolt {
	t.Helper()
	db := openTestDB(t, filepath.Join(t.TempDir(), "cache.db"))
	t.Cleanup(func() { _ = db.Close() })
	b, err := New(Config{DB: db})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewRequiresDB(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilDB {
		t.Fatalf("New(nil db) error = %v, want ErrNilDB", err)
	}
}

func TestUpsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if _, ok, err := b.FindByID(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	rec := be.Record{ID: "ns/a", Payload: []byte("v1"), ExpiresAt: 123}
	if err := b.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, ok, err := b.FindByID(ctx, "ns/a")
	if err != nil || !ok {
		t.Fatalf("FindByID: ok=%v err=%v", ok, err)
	}
	if got.ID != rec.ID || !bytes.Equal(got.Payload, rec.Payload) || got.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, rec)
	}

	// upsert replaces, last write wins
	rec.Payload = []byte("v2")
	rec.ExpiresAt = 0
	if err := b.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	got, _, _ = b.FindByID(ctx, "ns/a")
	if !bytes.Equal(got.Payload, []byte("v2")) || got.ExpiresAt != 0 {
		t.Fatalf("replace mismatch: %+v", got)
	}
}

func TestCorruptValueDroppedOnRead(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte("ns/bad"), []byte("not framed"))
	})
	if err != nil {
		t.Fatalf("inject: %v", err)
	}

	if _, ok, err := b.FindByID(ctx, "ns/bad"); err != nil || ok {
		t.Fatalf("corrupt value should miss, ok=%v err=%v", ok, err)
	}
	_ = b.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(b.bucket).Get([]byte("ns/bad")) != nil {
			t.Errorf("corrupt value was not deleted")
		}
		return nil
	})
}

func TestDeleteTree(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	for _, id := range []string{"ns/a", "ns/a/b", "ns/a/b/c", "ns/a/bc", "ns/ab"} {
		if err := b.Upsert(ctx, be.Record{ID: id, Payload: []byte(id)}); err != nil {
			t.Fatalf("Upsert %q: %v", id, err)
		}
	}

	n, err := b.DeleteTree(ctx, "ns/a/b")
	if err != nil {
		t.Fatalf("DeleteTree: %v", err)
	}
	if n != 2 { // ns/a/b and ns/a/b/c; ns/a/bc is a textual sibling
		t.Fatalf("DeleteTree removed %d, want 2", n)
	}
	for id, want := range map[string]bool{
		"ns/a":     true,
		"ns/a/b":   false,
		"ns/a/b/c": false,
		"ns/a/bc":  true,
		"ns/ab":    true,
	} {
		if _, ok, _ := b.FindByID(ctx, id); ok != want {
			t.Fatalf("presence of %q = %v, want %v", id, ok, want)
		}
	}
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	recs := []be.Record{
		{ID: "gone", Payload: []byte("x"), ExpiresAt: 100},
		{ID: "fresh", Payload: []byte("y"), ExpiresAt: 10_000},
		{ID: "forever", Payload: []byte("z"), ExpiresAt: 0},
	}
	for _, r := range recs {
		if err := b.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	n, err := b.DeleteExpired(ctx, 500)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteExpired removed %d, want 1", n)
	}
	for id, want := range map[string]bool{"gone": false, "fresh": true, "forever": true} {
		if _, ok, _ := b.FindByID(ctx, id); ok != want {
			t.Fatalf("presence of %q = %v, want %v", id, ok, want)
		}
	}
}

func TestDropAllAndPing(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if err := b.Upsert(ctx, be.Record{ID: "a", Payload: []byte("x")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := b.DropAll(ctx); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := b.FindByID(ctx, "a"); ok {
		t.Fatalf("record survived DropAll")
	}
	// the bucket is recreated, so the backend stays usable
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping after DropAll: %v", err)
	}
	if err := b.Upsert(ctx, be.Record{ID: "b", Payload: []byte("y")}); err != nil {
		t.Fatalf("Upsert after DropAll: %v", err)
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	db := openTestDB(t, path)
	b, err := New(Config{DB: db, CloseDB: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !b.Persistent() {
		t.Fatalf("bolt backend must report persistent")
	}
	if err := b.Upsert(ctx, be.Record{ID: "keep", Payload: []byte("v"), ExpiresAt: 42}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2 := openTestDB(t, path)
	defer db2.Close()
	b2, err := New(Config{DB: db2})
	if err != nil {
		t.Fatalf("reopen New: %v", err)
	}
	got, ok, err := b2.FindByID(ctx, "keep")
	if err != nil || !ok {
		t.Fatalf("record lost across reopen, ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got.Payload, []byte("v")) || got.ExpiresAt != 42 {
		t.Fatalf("reopened record mismatch: %+v", got)
	}
}
