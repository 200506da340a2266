// Package naming builds and parses payload filenames.
//
// A payload filename is its creation time at second precision followed by its
// tags in fixed order and the .json extension, e.g. 20240101100000_cnet_xyz.json.
// Names are deterministic: the same timestamp and tags always produce the same
// name. Parse also understands the payload_YYYYMMDD_HHMMSS forms written by
// earlier releases so startup reconciliation can migrate them.
package naming
