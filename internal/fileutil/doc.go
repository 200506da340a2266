// Package fileutil holds the atomic write and no-clobber rename primitives the
// payload tree is built on.
package fileutil
