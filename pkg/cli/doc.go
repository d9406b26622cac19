// Package cli implements the uidgen command line.
//
// Commands:
//   - serve: run the HTTP API for one generator id
//   - issue: issue ids locally or from a running server
//   - decode: split ids into creation time, generator id and sequence
//   - config: print the effective configuration and where each value came from
//   - version: print build information
//
// Configuration is layered: built-in defaults, then the file named by
// --config or UIDGEN_CONFIG, then UIDGEN_* environment variables, then flags.
package cli
