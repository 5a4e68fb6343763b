// Package rpc contains the message protocol spoken between the dConf store client
// and the dConf development server (dconf serve). It is one of the two store
// backends of dConf, the other one being etcd (lib/store/etcdstore).
//
// Subpackages:
//
//   - common: the Message type, client and server configuration, logging setup.
//   - serializer: binary, json and gob encodings of a Message.
//   - transport: request/response transports over http, tcp and unix sockets.
//   - client: a store.IStore for one endpoint, plus the factories used by the failover dispatcher.
//   - server: serves one store.IStore over a transport.
//
// The protocol itself has no retries. A client talks to exactly one endpoint and reports
// transport failures as store.RetCUnavailable, retrying and failover happen in lib/failover.
package rpc
