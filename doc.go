// Package recordsvc implements a customer-record service backed by a
// durable document store, a read-through cache, and an asynchronous
// enrichment pipeline.
//
// Components:
//   - Store: durable record storage (MongoDB adapter in store/mongo).
//   - Cache[V]: best-effort read-through cache over a provider byte store.
//     Backend failures degrade to misses and no-ops; the cache is never
//     the source of truth.
//   - Enqueuer: hand-off to the enrichment pipeline (package enrich).
//   - Service: the orchestrator. Reads consult the cache before the store;
//     writes go to the store first, then enqueue an enrichment task, then
//     delete the affected cache keys.
//
// Keys:
//
//	record:all   - full listing
//	record:<id>  - single record
//
// Invalidation is delete-on-write: a write never updates a cached value in
// place, it deletes the key and lets the next read refill from the store.
// A stale async result can therefore never overwrite a newer cached value.
package recordsvc
