// Package state persists snapshots of resolved package trees between
// invocations.
//
// A Store loads and saves one snapshot for one Ref. Stores are generic over
// the snapshot type; the resolver saves freeze-dried envelopes, so schema
// upgrades happen on rehydrate and never inside a store.
//
// Deterministic keys:
//
//	Ref.Identifier() returns `<domain>/<workspace>`, with the workspace
//	cleaned to slash form. FileStore maps the key onto a file path and
//	SQLiteStore uses it as the primary key.
//
// Concurrency:
//
//	Mutate compares Meta.ETag before saving and fails with ErrETagMismatch
//	when another writer saved in between.
package state
