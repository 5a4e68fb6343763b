// Package common provides the data structures shared by the RPC client and
// server of dConf. It defines the message protocol, the configuration
// structures and the logger setup used by the other packages.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between client and
//     server, with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating request and response messages. Errors
//     travel as a message plus a store.RetCode so that the client can tell
//     rejected requests from unavailable endpoints (see Message.AsError).
//
//   - MessageType: Enumeration of all supported operations: set (with ttl), get,
//     delete, list and ping.
//
//   - ServerConfig: Configuration of a development server (endpoint, transport,
//     serializer, timeout and log level).
//
//   - ClientConfig: Configuration of a client: the store backend, the ordered
//     endpoint pool, the failover policy, the settings namespace and the refresh
//     interval. Validate checks it before anything is started.
//
//   - Logger: Custom logging implementation that plugs into dragonboat's logger
//     registry, so every package can simply call logger.GetLogger(name).
package common
