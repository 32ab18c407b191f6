// Package store provides the process-wide collection store backing the query
// emulation layer.
//
// # Overview
//
// A [Store] maps collection names to ordered slices of schema-less [Record]
// values. Collections are seeded once from [Fixtures] and mutated only through
// [Store.Modify], [Store.Replace] and the lifecycle hooks [Store.Seed] and
// [Store.Reset]. Reads always return deep copies, so callers can never observe
// or cause a partially-written mutation.
//
// # Concurrency: Pessimistic Locking
//
// [Store.Modify] holds the write lock for the entire read-modify-write
// operation. There is no retry loop and no isolation beyond that lock.
//
// # Observers
//
// [Observer] implementations are notified after each committed mutation.
//
// # Fixture Formats
//
// YAML and JSON documents with a top-level "collections" object, or a
// directory of JSONL files named after their collection.
package store
