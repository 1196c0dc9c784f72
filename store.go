package recordsvc

import (
	"context"
	"time"
)

// Update carries the mutable subset of a record for a partial update.
// Empty Name/Phone leave the stored field untouched.
type Update struct {
	Name      string
	Phone     string
	UpdatedAt time.Time
}

// Store is the durable record store. Implementations must be safe for
// concurrent use and must serialize conflicting writes to the same id;
// the service adds no locking layer of its own.
//
// MaxID feeds the max+1 id assignment on create. The read-then-insert
// pair is a known race under concurrent creates; this service keeps the
// reference behavior rather than introducing an atomic counter.
type Store interface {
	// FindAll returns every record.
	FindAll(ctx context.Context) ([]Record, error)

	// FindByID returns (record, true, nil) when id exists and
	// (zero, false, nil) when it does not.
	FindByID(ctx context.Context, id int64) (Record, bool, error)

	// Insert persists a new record.
	Insert(ctx context.Context, rec Record) error

	// Update applies a partial update to the record with the given id.
	Update(ctx context.Context, id int64, upd Update) error

	// MaxID returns the highest assigned id, or 0 for an empty store.
	MaxID(ctx context.Context) (int64, error)

	// Stats runs the count/min/max aggregation over all records.
	Stats(ctx context.Context) (Stats, error)

	// Ping reports store connectivity (health endpoint).
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
