// Package payload models a generation request as the host sends it.
//
// A Payload is an untyped JSON object. Encode produces the on-disk form
// (four-space indent, sorted keys) and Format the compact display form. The
// typed accessors read the few keys the rest of the module cares about, and
// Skeleton and StripImages build the reduced forms the UI copies from.
package payload
