// Package store defines the client-side contract for a clustered key-value
// coordination store. The store itself is treated as a black box: an IStore
// talks to exactly one endpoint and offers get, set (with optional TTL), delete
// and list-children operations.
//
// The package focuses on:
//   - A unified interface (IStore) shared by all store backends
//   - A coded error type so callers can tell transient failures from rejected requests
//
// Key Components:
//
//   - IStore Interface: The core abstraction for one endpoint. Failover across several
//     endpoints is layered on top of this interface (see the failover package), and the
//     failover dispatcher itself implements IStore, so consumers never need to know
//     whether they talk to one endpoint or a whole pool.
//
//   - Node: A single entry returned by ListChildren. Directory-like nodes carry no value
//     and are flagged with Dir.
//
//   - Error System: A structured error type with a RetCode. Errors with the codes
//     RetCInvalidOperation or RetCUnsupportedOperation are permanent (see IsPermanent):
//     the endpoint answered and retrying elsewhere is pointless.
//
//   - Factory: A function type that opens an IStore for an endpoint address. It is used
//     by the failover package to connect endpoints lazily.
//
// Implementations:
//
//	- In-Memory Store (memstore): A single-process store with TTL support. It backs the
//	  development server (dconf serve) and the tests.
//	  Available in the "github.com/ValentinKolb/dConf/lib/store/memstore" package.
//
//	- etcd Store (etcdstore): A client for one etcd v3 endpoint.
//	  Available in the "github.com/ValentinKolb/dConf/lib/store/etcdstore" package.
//
//	- RPC Store: A client for a dConf server (dconf serve) over http, tcp or unix sockets.
//	  Available in the "github.com/ValentinKolb/dConf/rpc/client" package.
package store
