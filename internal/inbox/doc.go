// Package inbox is the drop-folder bridge for hosts that hand over payloads as
// files instead of HTTP calls. Each JSON file written into the inbox is decoded
// as a generation event, recorded, and removed. Files that do not decode are
// renamed with a .rejected suffix and left for inspection.
package inbox
