// Package etcdstore implements store.IStore for a single etcd v3 endpoint.
//
// Each Store owns its own clientv3 client bound to exactly one endpoint address. Failover
// across the members of a cluster is not done by the etcd client but by the failover
// package, which opens one Store per endpoint through Factory.
//
// Mapping to etcd:
//
//   - Get, Delete: plain KV requests.
//   - Set: a Put. With a TTL the key is attached to a fresh lease of ceil(ttl) seconds.
//   - ListChildren: a sorted prefix Get on prefix + "/", reduced to the direct children
//     (deeper keys collapse into directory nodes, see store.Children).
//
// Errors:
//
//	Requests etcd itself rejected (empty key, permission denied, too large, ...) map to
//	store.RetCInvalidOperation, ErrNotCapable maps to store.RetCUnsupportedOperation.
//	Everything else, including timeouts, maps to store.RetCUnavailable and is retried on
//	another endpoint by the dispatcher. The original etcd error stays reachable with
//	errors.Is.
//
// Configuration:
//
//	Config carries dial and request timeouts and optional credentials. Username and
//	Password must be set together; WithEnvCredentials reads them from ETCD_USER and
//	ETCD_PASSWORD.
package etcdstore
