// Package dedup suppresses rapid duplicate saves.
//
// The host's completion hook can fire more than once for a single generation.
// Guard remembers the fingerprint of each recently saved payload and answers
// Skip for an identical payload seen again inside the window. State is bounded
// by the window and is lost on restart.
package dedup
