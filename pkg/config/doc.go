// Package config provides configuration types and loading for uidgen.
//
// Configuration is layered, highest precedence first:
//
//  1. Command-line flags (applied by the cli package)
//  2. Environment variables (UIDGEN_* prefix)
//  3. Config file (YAML for .yaml/.yml, JSON otherwise)
//  4. Default values
//
// Each applied value records where it came from in Config.Sources, which
// `uidgen config` prints for debugging.
//
// A config file looks like:
//
//	generator:
//	  id: 42
//	  layout: default       # default | wide-sequence | g<bits>s<bits>
//	  policy: backpressure  # strict | backpressure
//	server:
//	  addr: ":4300"
//	  maxBatch: 10000
//	  rateLimit:
//	    enabled: true
//	    rate: 50
//	    burst: 100
//	logging:
//	  level: info
//	  format: json
//
// The generator id is assigned by the operator and must be unique among
// processes sharing an identifier space; nothing here enforces that.
package config
