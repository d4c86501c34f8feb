// Package bolt implements backend.Backend on an embedded bbolt file.
//
// All records live in one bucket, keyed by id with values framed by
// internal/record. bbolt serializes writers, so upserts are atomic by
// construction and never conflict. Keys are byte-sorted, which makes tree
// deletes a single cursor seek over the id+Sep prefix.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	be "github.com/docache/docache/backend"
	"github.com/docache/docache/internal/record"
)

// DefaultBucket is used when Config.Bucket is empty.
const DefaultBucket = "cache_items"

var ErrNilDB = errors.New("bolt backend: nil db")

type Bolt struct {
	db      *bbolt.DB
	bucket  []byte
	closeDB bool
}

var _ be.Backend = (*Bolt)(nil)

type Config struct {
	DB      *bbolt.DB
	Bucket  string // "" => DefaultBucket
	CloseDB bool   // set true only if this backend exclusively owns the db
}

// New creates the bucket if it does not exist yet.
func New(cfg Config) (*Bolt, error) {
	if cfg.DB == nil {
		return nil, ErrNilDB
	}
	name := cfg.Bucket
	if name == "" {
		name = DefaultBucket
	}
	b := &Bolt{db: cfg.DB, bucket: []byte(name), closeDB: cfg.CloseDB}
	err := cfg.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt backend: create bucket: %w", err)
	}
	return b, nil
}

func (p *Bolt) FindByID(_ context.Context, id string) (be.Record, bool, error) {
	var rec be.Record
	var found, corrupt bool
	err := p.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		exp, payload, err := record.Decode(v)
		if err != nil {
			corrupt = true
			return nil
		}
		// copy out of the mmap'd page before the tx ends
		out := make([]byte, len(payload))
		copy(out, payload)
		rec = be.Record{ID: id, Payload: out, ExpiresAt: exp}
		found = true
		return nil
	})
	if err != nil {
		return be.Record{}, false, err
	}
	if corrupt {
		_ = p.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(p.bucket).Delete([]byte(id))
		})
		return be.Record{}, false, nil
	}
	return rec, found, nil
}

func (p *Bolt) Upsert(_ context.Context, rec be.Record) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(rec.ID), record.Encode(rec.ExpiresAt, rec.Payload))
	})
}

func (p *Bolt) Delete(_ context.Context, id string) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(id))
	})
}

func (p *Bolt) DeleteTree(_ context.Context, id string) (int64, error) {
	var n int64
	err := p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(p.bucket)
		// collect first; deleting under a live cursor is fragile
		victims := [][]byte{}
		if b.Get([]byte(id)) != nil {
			victims = append(victims, []byte(id))
		}
		prefix := []byte(id + be.Sep)
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			victims = append(victims, append([]byte(nil), k...))
		}
		for _, k := range victims {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Bolt) DeleteExpired(_ context.Context, now int64) (int64, error) {
	var n int64
	err := p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(p.bucket)
		victims := [][]byte{}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			exp, _, err := record.Decode(v)
			if err != nil || (exp > 0 && exp <= now) {
				// corrupt values go with the sweep
				victims = append(victims, append([]byte(nil), k...))
			}
		}
		for _, k := range victims {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Bolt) DropAll(_ context.Context) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(p.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(p.bucket)
		return err
	})
}

func (p *Bolt) Ping(_ context.Context) error {
	return p.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(p.bucket) == nil {
			return fmt.Errorf("bolt backend: bucket %q missing", p.bucket)
		}
		return nil
	})
}

func (p *Bolt) Persistent() bool { return true }

// Close closes the underlying db only when this backend owns it.
func (p *Bolt) Close(context.Context) error {
	if p.closeDB {
		return p.db.Close()
	}
	return nil
}
