// Package failover multiplexes store operations across a fixed pool of endpoints.
//
// A Dispatcher owns one lazily opened store.IStore per endpoint and a health.Tracker for
// the pool. Every logical operation is a function value (Op) handed to Do, which runs it
// with bounded retries:
//
//	value, err := failover.Do(ctx, d, "get", func(ctx context.Context, s store.IStore) (string, error) {
//		v, _, err := s.Get(ctx, key)
//		return v, err
//	})
//
// Retry loop:
//
//   - At most Policy.MaxRetries attempts are made, and each attempt contacts exactly one
//     endpoint.
//   - An attempt uses the first available endpoint in configured order. If none is available
//     the attempt takes the next endpoint of a shuffled copy of the pool, created once per
//     operation and cycled when retries exceed the pool size.
//   - Success is recorded and returned at once. A failure is recorded and the loop goes on.
//     After the last attempt an *ExhaustedError (errors.Is(err, ErrExhausted)) wrapping the
//     last failure is returned.
//   - Permanent store errors (store.IsPermanent) end the loop without retry, and a canceled
//     context ends it with ctx.Err(). Neither counts against the endpoint.
//
// The Dispatcher implements store.IStore (Get, Set, Delete, ListChildren, Close), so the
// settings cache and the CLI only ever see the store contract.
//
// Metrics:
//
//	Per operation the dispatcher counts calls, attempts, failed attempts, rejected calls and
//	exhausted calls, and records call durations. All metrics are VictoriaMetrics metrics in
//	the set returned by Metrics (see WithMetricsSet).
package failover
