// Package layout owns the payload directory tree.
//
// Non-draft payloads live directly in the root directory and drafts in the
// drafts subdirectory. The root also carries payload_latest.json (the most
// recent non-draft save) and one skeleton template per generation mode.
// Store.Save writes new payloads; Store.Reorganize brings historical files in
// line with the current naming and draft rules. All writes are atomic
// temp-file renames and moves never clobber an existing file.
package layout
