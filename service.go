package recordsvc

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Source tags a read result with where it was served from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// Action labels the write that produced an enrichment task.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Task is one unit of pending enrichment work. Tasks live only in
// process memory and are lost on crash.
type Task struct {
	Action Action
	Record Record
}

// Enqueuer hands a task to the enrichment pipeline. Enqueue must not
// block the caller.
type Enqueuer interface {
	Enqueue(Task)
}

const listKey = "all"

// ServiceOptions wire the service's collaborators. Store and Queue are
// required; nil caches default to NopCache (pass-through to the store).
type ServiceOptions struct {
	// Required
	Store Store
	Queue Enqueuer

	Records  Cache[Record]   // record:<id> entries
	Listings Cache[[]Record] // record:all entry
	Logger   Logger          // if nil, NopLogger is used
	CacheTTL time.Duration   // 0 => DefaultCacheTTL
	Now      func() time.Time
}

// Service orchestrates reads and writes over the store, the cache tier
// and the enrichment queue. Reads are read-through; writes are durable
// first, then enqueue, then invalidate (delete-on-write).
type Service struct {
	store    Store
	records  Cache[Record]
	listings Cache[[]Record]
	queue    Enqueuer
	log      Logger
	ttl      time.Duration
	now      func() time.Time
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("recordsvc: store is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("recordsvc: queue is required")
	}

	s := &Service{
		store:    opts.Store,
		records:  opts.Records,
		listings: opts.Listings,
		queue:    opts.Queue,
	}
	if s.records == nil {
		s.records = NopCache[Record]{}
	}
	if s.listings == nil {
		s.listings = NopCache[[]Record]{}
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.ttl = coalesce[time.Duration](opts.CacheTTL, DefaultCacheTTL)
	if opts.Now != nil {
		s.now = opts.Now
	} else {
		s.now = time.Now
	}
	return s, nil
}

// List returns all records, served from the record:all cache entry when
// present, otherwise from the store (populating the cache on the way out).
func (s *Service) List(ctx context.Context) ([]Record, Source, error) {
	if recs, ok := s.listings.Get(ctx, listKey); ok {
		return recs, SourceCache, nil
	}
	recs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list records: %w", err)
	}
	s.listings.Set(ctx, listKey, recs, s.ttl)
	return recs, SourceDatabase, nil
}

// Get returns the record with the given id, read-through on record:<id>.
// Returns ErrNotFound when the store has no such record.
func (s *Service) Get(ctx context.Context, id int64) (Record, Source, error) {
	key := recordKey(id)
	if rec, ok := s.records.Get(ctx, key); ok {
		return rec, SourceCache, nil
	}
	rec, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, "", fmt.Errorf("get record %d: %w", id, err)
	}
	if !ok {
		return Record{}, "", ErrNotFound
	}
	s.records.Set(ctx, key, rec, s.ttl)
	return rec, SourceDatabase, nil
}

// Create validates, assigns the next id (max existing + 1), persists the
// record with the raw phone value, enqueues a create task and invalidates
// the listing cache. The returned record carries the pre-normalization
// phone; the digits-only form only ever appears in the processed event.
func (s *Service) Create(ctx context.Context, name, phone string) (Record, error) {
	if name == "" {
		return Record{}, &ValidationError{Field: "name"}
	}
	if phone == "" {
		return Record{}, &ValidationError{Field: "phone"}
	}

	maxID, err := s.store.MaxID(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("next record id: %w", err)
	}

	rec := Record{
		ID:        maxID + 1,
		Name:      name,
		Phone:     phone,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("insert record %d: %w", rec.ID, err)
	}

	s.queue.Enqueue(Task{Action: ActionCreate, Record: rec})
	s.listings.Delete(ctx, listKey)

	s.log.Info("record created", Fields{"id": rec.ID})
	return rec, nil
}

// Update applies the non-empty fields of upd to an existing record, sets
// updated_at, invalidates record:all and record:<id>, and enqueues an
// update task carrying the post-update record as read back from the store.
// Returns ErrNotFound (with no store mutation) when id does not exist.
func (s *Service) Update(ctx context.Context, id int64, name, phone string) (Record, error) {
	_, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("update record %d: %w", id, err)
	}
	if !ok {
		return Record{}, ErrNotFound
	}

	upd := Update{Name: name, Phone: phone, UpdatedAt: s.now().UTC()}
	if err := s.store.Update(ctx, id, upd); err != nil {
		return Record{}, fmt.Errorf("update record %d: %w", id, err)
	}

	rec, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("read back record %d: %w", id, err)
	}
	if !ok {
		// raced with an external delete; nothing left to invalidate for
		return Record{}, ErrNotFound
	}

	s.listings.Delete(ctx, listKey)
	s.records.Delete(ctx, recordKey(id))
	s.queue.Enqueue(Task{Action: ActionUpdate, Record: rec})

	s.log.Info("record updated", Fields{"id": id})
	return rec, nil
}

// Stats runs the store-side aggregation. An empty store yields
// {total: 0} with the timestamp fields absent.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("record stats: %w", err)
	}
	return st, nil
}

// Ping reports store connectivity for the health endpoint.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func recordKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
