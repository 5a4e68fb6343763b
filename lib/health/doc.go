// Package health tracks the health of a fixed pool of store endpoints.
//
// Every attempt the failover dispatcher makes against an endpoint ends with either
// RecordSuccess or RecordFailure. From these outcomes the Tracker derives whether an
// endpoint is currently preferred:
//
//   - A success resets the failure count and marks the endpoint available.
//   - A failure counts only if it happened inside the fail window of the previous failure,
//     otherwise the count starts over. When the count exceeds Policy.MaxFailsToDisable
//     inside the window, the endpoint is marked unavailable.
//   - Unavailability is temporary: IsAvailable treats an endpoint as available again as
//     soon as the fail window since its last failure has elapsed, without any probe.
//
// Selection:
//
//	Preferred returns the first available endpoint in configured order. FallbackOrder
//	returns a freshly shuffled copy of the whole pool, used when no endpoint is
//	available so a full outage does not concentrate load on the first address.
//
// Concurrency:
//
//	Each field of an Endpoint is an atomic value. RecordFailure additionally holds a
//	per-endpoint mutex for its read-modify-write, never across a network call. There is
//	no pool-wide lock.
//
// Metrics:
//
//	Per endpoint the tracker keeps go-metrics counters for successes, failures and
//	disables, and a histogram of failure streak lengths. Status returns them together
//	with the availability of each endpoint.
package health
