// Package hostapi is the HTTP bridge between the image-generation host and the
// recorder. The host's completion hook posts each generation to
// /api/generation; the UI reads the current and latest payloads back.
package hostapi
