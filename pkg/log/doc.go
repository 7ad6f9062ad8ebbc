// Package log provides structured logging for menmosd using zerolog.
//
// A single global Logger is configured once via Init. Component loggers
// are derived with WithComponent, and request-scoped helpers
// (WithBlobID, WithNodeID, WithUsername) attach the identifiers this
// domain actually carries. Never log blob bytes or full metadata
// payloads, only identifiers and counts.
package log
