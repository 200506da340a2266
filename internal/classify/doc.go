// Package classify derives the semantic tag set of a generation payload:
// whether it used ControlNet, whether it ran the X/Y/Z plot script, and which
// skeleton mode it belongs to. Classification reads payload content only, so a
// file reclassified at startup gets the same tags it was saved with.
package classify
