// Package preflight provides readiness checks for the filesystem paths
// payloadkeeper depends on and for a running HTTP bridge.
//
// These checks run in two contexts:
//   - "payloadkeeper serve" calls RunAll before reconciling and refuses to
//     start when a directory is unusable.
//   - "payloadkeeper status" prints every check, including CheckBridge.
package preflight
