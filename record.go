package recordsvc

import (
	"strings"
	"time"
)

// Record is a single customer record. ID is assigned by the service at
// create time (max existing id + 1) and never changes. Phone holds the
// raw value as submitted; the digits-only form is derived asynchronously
// by the enrichment worker and published in the processed event, it is
// not written back to the store.
type Record struct {
	ID        int64      `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name"`
	Phone     string     `json:"phone" bson:"phone"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Stats is the store-side aggregation over all records. The timestamp
// fields are absent when the store is empty.
type Stats struct {
	Total    int64      `json:"total" bson:"total"`
	Earliest *time.Time `json:"earliest_created_at,omitempty" bson:"earliest_created_at,omitempty"`
	Latest   *time.Time `json:"latest_created_at,omitempty" bson:"latest_created_at,omitempty"`
}

// NormalizePhone strips every non-digit character from a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
