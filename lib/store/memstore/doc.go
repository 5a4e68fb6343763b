// Package memstore implements a local, in-memory, single-process key-value store based on
// the store.IStore interface. Data is held in an xsync.MapOf and is not persisted between
// process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Per-key TTL, evaluated lazily on read (expired entries are evicted on access)
//   - Prefix listing with directory collapsing, matching the store.IStore contract
//   - Automatic write index progression using atomic operations
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments with
//     each write operation. Every entry remembers the index it was written with, so lazy
//     eviction of an expired entry never removes a value that was rewritten concurrently.
//
//   - Listing: ListChildren returns the direct children of a prefix. Keys that are nested
//     deeper are collapsed into a single directory node (Dir set, no value). The result is
//     ordered by key.
//
//   - Time Source: The clock can be replaced with WithClock, which lets tests advance time
//     instead of sleeping.
//
// Usage Example:
//
//	s := memstore.NewStore()
//	_ = s.Set(ctx, "/app/db/url", "postgres://localhost", 0)
//	_ = s.Set(ctx, "/app/session", "abc", 5*time.Minute)
//
//	nodes, _ := s.ListChildren(ctx, "/app")
//	// nodes: [{Key: "/app/db", Dir: true} {Key: "/app/session", Value: "abc"}]
//
// Suitable Use Cases:
//
//	The in-memory store backs the development server (dconf serve) and is the default
//	store in the package tests of the failover and settings packages.
package memstore
