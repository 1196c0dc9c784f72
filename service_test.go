package recordsvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/recordsvc/codec"
)

// memStore is an in-memory Store with the same per-id write
// serialization guarantee the real adapter relies on.
type memStore struct {
	mu      sync.Mutex
	recs    map[int64]Record
	inserts int
	updates int
	failAll bool // every operation errors
}

var _ Store = (*memStore)(nil)

var errStoreDown = errors.New("store down")

func newMemStore() *memStore { return &memStore{recs: make(map[int64]Record)} }

func (s *memStore) FindAll(context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	out := make([]Record, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return Record{}, false, errStoreDown
	}
	r, ok := s.recs[id]
	return r, ok, nil
}

func (s *memStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	s.inserts++
	s.recs[rec.ID] = rec
	return nil
}

func (s *memStore) Update(_ context.Context, id int64, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	s.updates++
	r := s.recs[id]
	if upd.Name != "" {
		r.Name = upd.Name
	}
	if upd.Phone != "" {
		r.Phone = upd.Phone
	}
	ts := upd.UpdatedAt
	r.UpdatedAt = &ts
	s.recs[id] = r
	return nil
}

func (s *memStore) MaxID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, errStoreDown
	}
	var max int64
	for id := range s.recs {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (s *memStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return Stats{}, errStoreDown
	}
	st := Stats{Total: int64(len(s.recs))}
	for _, r := range s.recs {
		created := r.CreatedAt
		if st.Earliest == nil || created.Before(*st.Earliest) {
			t := created
			st.Earliest = &t
		}
		if st.Latest == nil || created.After(*st.Latest) {
			t := created
			st.Latest = &t
		}
	}
	return st, nil
}

func (s *memStore) Ping(context.Context) error  { return nil }
func (s *memStore) Close(context.Context) error { return nil }

// recQueue records enqueued tasks.
type recQueue struct {
	mu    sync.Mutex
	tasks []Task
}

func (q *recQueue) Enqueue(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

func (q *recQueue) all() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

type svcFixture struct {
	store *memStore
	queue *recQueue
	prov  *memProvider
	svc   *Service
}

func newFixture(t *testing.T) *svcFixture {
	t.Helper()
	f := &svcFixture{
		store: newMemStore(),
		queue: &recQueue{},
		prov:  newMemProvider(),
	}
	records, err := NewCache(CacheOptions[Record]{
		Namespace: "record",
		Provider:  f.prov,
		Codec:     codec.JSON[Record]{},
	})
	if err != nil {
		t.Fatalf("NewCache(records): %v", err)
	}
	listings, err := NewCache(CacheOptions[[]Record]{
		Namespace: "record",
		Provider:  f.prov,
		Codec:     codec.JSON[[]Record]{},
	})
	if err != nil {
		t.Fatalf("NewCache(listings): %v", err)
	}
	f.svc, err = NewService(ServiceOptions{
		Store:    f.store,
		Queue:    f.queue,
		Records:  records,
		Listings: listings,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return f
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var verr *ValidationError
	if _, err := f.svc.Create(ctx, "", "123"); !errors.As(err, &verr) {
		t.Fatalf("Create without name: got %v, want ValidationError", err)
	}
	if _, err := f.svc.Create(ctx, "Ana", ""); !errors.As(err, &verr) {
		t.Fatalf("Create without phone: got %v, want ValidationError", err)
	}
	// validation must fire before any store write
	if f.store.inserts != 0 {
		t.Fatalf("store written on invalid create: %d inserts", f.store.inserts)
	}
	if len(f.queue.all()) != 0 {
		t.Fatalf("task enqueued on invalid create")
	}
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i, want := range []int64{1, 2, 3} {
		rec, err := f.svc.Create(ctx, "Ana", "123")
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if rec.ID != want {
			t.Fatalf("Create #%d id = %d, want %d", i, rec.ID, want)
		}
	}

	// next id tracks max existing, not count
	f.store.mu.Lock()
	f.store.recs[10] = Record{ID: 10, Name: "X", Phone: "1"}
	f.store.mu.Unlock()
	rec, err := f.svc.Create(ctx, "Bea", "456")
	if err != nil {
		t.Fatalf("Create after gap: %v", err)
	}
	if rec.ID != 11 {
		t.Fatalf("Create after gap id = %d, want 11", rec.ID)
	}
}

// TestCreateStoresRawPhone checks the store keeps the pre-normalization
// phone: normalization happens in the worker and is never written back.
func TestCreateStoresRawPhone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	raw := "(11) 9 8888-7777"
	rec, err := f.svc.Create(ctx, "Ana", raw)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Phone != raw {
		t.Fatalf("Create returned phone %q, want raw %q", rec.Phone, raw)
	}

	got, src, err := f.svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if src != SourceDatabase {
		t.Fatalf("Get source = %s, want database", src)
	}
	if got.Phone != raw {
		t.Fatalf("stored phone %q, want raw %q", got.Phone, raw)
	}

	tasks := f.queue.all()
	if len(tasks) != 1 || tasks[0].Action != ActionCreate || tasks[0].Record.ID != rec.ID {
		t.Fatalf("unexpected enqueued tasks: %+v", tasks)
	}
}

func TestListReadThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Create(ctx, "Ana", "123"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	recs, src, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if src != SourceDatabase || len(recs) != 1 {
		t.Fatalf("first List: source=%s len=%d", src, len(recs))
	}

	_, src, err = f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List (cached): %v", err)
	}
	if src != SourceCache {
		t.Fatalf("second List source = %s, want cache", src)
	}
}

// TestCreateInvalidatesListing verifies record:all can never be served
// from a pre-write snapshot.
func TestCreateInvalidatesListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Create(ctx, "Ana", "123"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := f.svc.List(ctx); err != nil { // warm record:all
		t.Fatalf("List: %v", err)
	}

	if _, err := f.svc.Create(ctx, "Bea", "456"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	recs, src, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List after create: %v", err)
	}
	if src != SourceDatabase {
		t.Fatalf("List after create served from %s, want database", src)
	}
	if len(recs) != 2 {
		t.Fatalf("List after create len = %d, want 2", len(recs))
	}
}

// TestUpdateInvalidatesRecordKey covers Get(X), Update(X), Get(X): the
// second Get must not see the pre-update cached value.
func TestUpdateInvalidatesRecordKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Create(ctx, "Ana", "123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := f.svc.Get(ctx, rec.ID); err != nil { // warm record:<id>
		t.Fatalf("Get: %v", err)
	}

	upd, err := f.svc.Update(ctx, rec.ID, "Anna", "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Name != "Anna" || upd.Phone != "123" {
		t.Fatalf("Update returned %+v", upd)
	}
	if upd.UpdatedAt == nil {
		t.Fatalf("Update did not set updated_at")
	}

	got, src, err := f.svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if src != SourceDatabase {
		t.Fatalf("Get after update served from %s, want database", src)
	}
	if got.Name != "Anna" {
		t.Fatalf("Get after update name = %q, want Anna", got.Name)
	}

	tasks := f.queue.all()
	last := tasks[len(tasks)-1]
	if last.Action != ActionUpdate || last.Record.Name != "Anna" {
		t.Fatalf("update task = %+v", last)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Update(ctx, 42, "Ana", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update unknown id: got %v, want ErrNotFound", err)
	}
	if f.store.updates != 0 {
		t.Fatalf("store mutated on unknown-id update")
	}
}

func TestGetUnknownID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.svc.Get(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get unknown id: want ErrNotFound, got %v", err)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 0 || st.Earliest != nil || st.Latest != nil {
		t.Fatalf("Stats on empty store = %+v", st)
	}
}

func TestStatsAggregation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Create(ctx, "Ana", "123"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(ctx, "Bea", "456"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 2 {
		t.Fatalf("Stats total = %d, want 2", st.Total)
	}
	if st.Earliest == nil || st.Latest == nil {
		t.Fatalf("Stats timestamps missing: %+v", st)
	}
	if st.Earliest.After(*st.Latest) {
		t.Fatalf("Stats earliest %v after latest %v", st.Earliest, st.Latest)
	}
}

// TestCacheOutageDegrades verifies a dead cache backend never fails a
// request: reads fall through to the store, writes still land.
func TestCacheOutageDegrades(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	queue := &recQueue{}

	records, err := NewCache(CacheOptions[Record]{
		Namespace: "record", Provider: errProvider{}, Codec: codec.JSON[Record]{},
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	listings, err := NewCache(CacheOptions[[]Record]{
		Namespace: "record", Provider: errProvider{}, Codec: codec.JSON[[]Record]{},
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	svc, err := NewService(ServiceOptions{
		Store: store, Queue: queue, Records: records, Listings: listings,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rec, err := svc.Create(ctx, "Ana", "123")
	if err != nil {
		t.Fatalf("Create with dead cache: %v", err)
	}
	recs, src, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List with dead cache: %v", err)
	}
	if src != SourceDatabase || len(recs) != 1 {
		t.Fatalf("List with dead cache: source=%s len=%d", src, len(recs))
	}
	if _, src, err = svc.Get(ctx, rec.ID); err != nil || src != SourceDatabase {
		t.Fatalf("Get with dead cache: src=%s err=%v", src, err)
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(ServiceOptions{Queue: &recQueue{}}); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewService(ServiceOptions{Store: newMemStore()}); err == nil {
		t.Fatalf("expected error for nil queue")
	}
	// nil caches default to NopCache; service still works store-direct
	svc, err := NewService(ServiceOptions{Store: newMemStore(), Queue: &recQueue{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, src, err := svc.List(context.Background()); err != nil || src != SourceDatabase {
		t.Fatalf("List with nop caches: src=%s err=%v", src, err)
	}
}

func TestServiceClockStampsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceOptions{
		Store: store,
		Queue: &recQueue{},
		Now:   func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	rec, err := svc.Create(ctx, "Ana", "123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !rec.CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v, want %v", rec.CreatedAt, fixed)
	}
	if rec.UpdatedAt != nil {
		t.Fatalf("updated_at must be absent until the first update")
	}
}
