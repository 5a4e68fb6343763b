// Package cmd implements the command-line interface of dConf. It provides a
// hierarchical command structure for reading and writing settings through the
// failover client and for running a local development server.
//
// The package is organized into several subpackages:
//
//   - kv: Single key operations through the failover dispatcher (get, set, del, ls, status)
//   - settings: Namespace settings through the refreshing cache (dump, watch, bench)
//   - serve: Commands for starting an in-memory dConf server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable DCONF_<FLAG> (e.g. DCONF_ENDPOINTS),
// .env and .env.local in the working directory are loaded on startup.
//
// See dconf -help for a list of all commands.
package cmd
