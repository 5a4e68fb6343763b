// Package serializer converts common.Message values to bytes and back.
//
// Three encodings are available, selected by name with ByName:
//
//   - binary: a flags byte marks which fields are present, strings and byte slices are
//     length prefixed, list responses are a node count followed by (flags, key, value)
//     per node. Smallest and fastest, the default.
//   - json: readable on the wire, handy with curl against the http transport.
//   - gob: Go's self-describing format, mostly for comparison in the benchmarks.
//
// All serializers are stateless and safe for concurrent use. Deserialize always replaces
// the target message, and rejects truncated or inconsistent input with an error instead
// of a partially filled message.
package serializer
