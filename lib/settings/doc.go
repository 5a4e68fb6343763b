// Package settings exposes the settings stored below a namespace of a coordination store as
// a locally cached, periodically refreshed read model, with optional write-through.
//
// Settings:
//
//	New performs one synchronous load, then starts a single background goroutine that
//	refreshes every RefreshInterval. A refresh lists the children of the namespace, strips
//	the namespace prefix from every key and keeps the nodes that carry a value. The result
//	is published as a new immutable Snapshot by one atomic pointer swap, so a reader sees
//	either the old or the new snapshot, never a mix. A failed refresh keeps the previous
//	snapshot and is reported to the ErrorHandler.
//
//	All reads (GetString, GetInt, GetInt64, GetFloat64, GetBool and their ...Or variants)
//	are served from memory and never block on the network. Values are trimmed and parsed on
//	read; a value that does not parse yields a *ConversionError.
//
// MutableSettings:
//
//	Writes go to the store first (through the failover dispatcher) and are then recorded in
//	a concurrent overlay on top of the current snapshot. A failed write leaves the local
//	state unchanged, is reported to the ErrorHandler and is returned.
//
//	The overlay belongs to one snapshot. A refresh that started before a write and finishes
//	after it publishes a snapshot without that write and an empty overlay, so the write
//	stays invisible until the next refresh. This race is accepted.
//
// LiveSettings:
//
//	An uncached view where every read goes to the store. Names that were found once are
//	remembered and returned by AllKeys.
//
// Usage Example:
//
//	d, _ := failover.New(endpoints, health.DefaultPolicy(), etcdstore.Factory(cfg))
//	s, err := settings.NewMutable(ctx, d, settings.WithNamespace("/app1"))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	port, err := s.GetIntOr("port", 8080)
//	_ = s.SetInt(ctx, "port", 9090)
package settings
