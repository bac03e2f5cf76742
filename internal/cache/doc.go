// Package cache is the local, identity-scoped, TTL-bounded cache that sits in
// front of the remote persistence service.
//
// The cache is a disposable accelerator: the remote store is the source of
// truth, and every failure inside this package degrades to "no cache" rather
// than to an error the caller has to handle.
//
// # Key Scheme
//
// Every entry lives under a scope key built from the owning identity and a
// logical key:
//
//	{escaped identity}:{logical key}
//
//	u1:save:1       -> {"payload": {...}, "written_at": "2026-10-16T09:00:00Z"}
//	u1:saves_list   -> {"payload": [...], "written_at": "..."}
//	ana%3Ab:progress
//
// The identity part is query-escaped so that ":" never appears in it. That
// makes "{escaped identity}:" a prefix owned by exactly one identity, which is
// how isolation is enforced: a read under identity A can only ever address
// keys inside A's prefix. There is no runtime ownership check on reads.
//
// # Freshness
//
// [Store.Get] treats an entry as a hit only while it is younger than the
// freshness window (60s by default). Expired and unparseable entries are a
// miss and are deleted on the spot. [Store.EvictStale] sweeps all identities
// for entries older than a given age.
//
// # Capacity
//
// Backends report a full medium with [ErrStorageFull]. [Store.Set] reacts by
// evicting entries older than the stale window (one hour by default) across
// all identities and retrying once; if the retry fails the write is dropped.
//
// # Concurrency
//
// Store is safe for concurrent use. Each Set replaces the whole entry; there
// are no partial field updates. Overlapping writers are not ordered: the last
// write to land wins.
package cache
