// Package mongo implements recordsvc.Store on a MongoDB collection.
//
// Records are stored as documents keyed by the service-assigned "id"
// field (the Mongo _id stays internal and is projected away on reads).
// Conflicting writes to the same id rely on Mongo's per-document write
// serialization; no additional locking happens here.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/unkn0wn-root/recordsvc"
)

const (
	defaultDatabase   = "records_db"
	defaultCollection = "records"
	connectTimeout    = 10 * time.Second
)

type Config struct {
	// Required
	Host string
	Port int

	Database   string // "" => records_db
	Collection string // "" => records
}

type Store struct {
	client *mgo.Client
	coll   *mgo.Collection
}

var _ recordsvc.Store = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("mongo store: host and port are required")
	}
	db := cfg.Database
	if db == "" {
		db = defaultDatabase
	}
	coll := cfg.Collection
	if coll == "" {
		coll = defaultCollection
	}

	uri := fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port)
	client, err := mgo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo store: connect %s: %w", uri, err)
	}
	return &Store{
		client: client,
		coll:   client.Database(db).Collection(coll),
	}, nil
}

func (s *Store) FindAll(ctx context.Context) ([]recordsvc.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, err
	}
	var recs []recordsvc.Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (recordsvc.Record, bool, error) {
	var rec recordsvc.Record
	err := s.coll.FindOne(ctx, bson.M{"id": id},
		options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&rec)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return recordsvc.Record{}, false, nil
	}
	if err != nil {
		return recordsvc.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Insert(ctx context.Context, rec recordsvc.Record) error {
	_, err := s.coll.InsertOne(ctx, rec)
	return err
}

func (s *Store) Update(ctx context.Context, id int64, upd recordsvc.Update) error {
	set := bson.M{"updated_at": upd.UpdatedAt}
	if upd.Name != "" {
		set["name"] = upd.Name
	}
	if upd.Phone != "" {
		set["phone"] = upd.Phone
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	return err
}

func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var rec recordsvc.Record
	err := s.coll.FindOne(ctx, bson.D{},
		options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})).Decode(&rec)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *Store) Stats(ctx context.Context) (recordsvc.Stats, error) {
	pipeline := mgo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "earliest_created_at", Value: bson.D{{Key: "$min", Value: "$created_at"}}},
			{Key: "latest_created_at", Value: bson.D{{Key: "$max", Value: "$created_at"}}},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return recordsvc.Stats{}, err
	}
	var out []recordsvc.Stats
	if err := cur.All(ctx, &out); err != nil {
		return recordsvc.Stats{}, err
	}
	if len(out) == 0 {
		return recordsvc.Stats{}, nil // empty store => {total: 0}
	}
	return out[0], nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
