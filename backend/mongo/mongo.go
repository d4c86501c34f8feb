// Package mongo implements backend.Backend on a MongoDB collection.
//
// One document per record, keyed by _id. Upserts go through ReplaceOne with
// upsert=true: when two writers race an insert of the same missing _id, the
// loser gets a duplicate-key error from the server, which this backend maps
// to backend.ErrConflict for the driver's uniform swallow policy.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	be "github.com/docache/docache/backend"
)

// DefaultCollection is used when Config.Collection is empty.
const DefaultCollection = "cache_items"

var (
	ErrNilClient  = errors.New("mongo backend: nil client")
	ErrNoDatabase = errors.New("mongo backend: database name is required")
)

type Mongo struct {
	client      *mongo.Client
	coll        *mongo.Collection
	closeClient bool
}

var _ be.Backend = (*Mongo)(nil)

type Config struct {
	Client      *mongo.Client
	Database    string // required
	Collection  string // "" => DefaultCollection
	CloseClient bool   // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Mongo, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.Database == "" {
		return nil, ErrNoDatabase
	}
	coll := cfg.Collection
	if coll == "" {
		coll = DefaultCollection
	}
	return &Mongo{
		client:      cfg.Client,
		coll:        cfg.Client.Database(cfg.Database).Collection(coll),
		closeClient: cfg.CloseClient,
	}, nil
}

type doc struct {
	ID        string `bson:"_id"`
	Payload   []byte `bson:"payload"`
	ExpiresAt int64  `bson:"expires_at"`
}

func (m *Mongo) FindByID(ctx context.Context, id string) (be.Record, bool, error) {
	var d doc
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return be.Record{}, false, nil
	}
	if err != nil {
		return be.Record{}, false, fmt.Errorf("mongo find %q: %w", id, err)
	}
	return be.Record{ID: d.ID, Payload: d.Payload, ExpiresAt: d.ExpiresAt}, true, nil
}

func (m *Mongo) Upsert(ctx context.Context, rec be.Record) error {
	d := doc{ID: rec.ID, Payload: rec.Payload, ExpiresAt: rec.ExpiresAt}
	_, err := m.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: rec.ID}},
		d,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", be.ErrConflict, err)
		}
		return fmt.Errorf("mongo upsert %q: %w", rec.ID, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	_, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("mongo delete %q: %w", id, err)
	}
	return nil
}

// DeleteTree matches the exact id or id+Sep descendants with an anchored,
// quoted regex, so ids that merely share a textual prefix are untouched and
// no regex metacharacters leak in from segment content.
func (m *Mongo) DeleteTree(ctx context.Context, id string) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$regex", Value: treePattern(id)}}},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo delete tree %q: %w", id, err)
	}
	return res.DeletedCount, nil
}

// treePattern builds the tree-delete regex. Segment content may contain any
// byte, newlines included, so the pattern needs dotall for descendants and \z
// instead of $ (which would also assert before an id-final newline and drag
// in siblings).
func treePattern(id string) string {
	return "(?s)^" + regexp.QuoteMeta(id) + "(" + regexp.QuoteMeta(be.Sep) + ".*)?\\z"
}

func (m *Mongo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.D{
		{Key: "expires_at", Value: bson.D{
			{Key: "$gt", Value: int64(0)}, // 0 = never expires
			{Key: "$lte", Value: now},
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo delete expired: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) DropAll(ctx context.Context) error {
	if err := m.coll.Drop(ctx); err != nil {
		return fmt.Errorf("mongo drop: %w", err)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Persistent() bool { return true }

// Close disconnects the underlying client only when this backend owns it.
func (m *Mongo) Close(ctx context.Context) error {
	if m.closeClient {
		return m.client.Disconnect(ctx)
	}
	return nil
}
