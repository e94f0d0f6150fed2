// Package sensor reads motion readings and recognized speech from helper
// processes that print one JSON object per line.
package sensor

import "context"

// LineSource produces raw JSON lines.
type LineSource interface {
	// Lines returns a channel of lines. The channel is closed when the
	// source stops or the context is cancelled.
	Lines(ctx context.Context) (<-chan []byte, error)

	// Stop signals the source to shut down.
	Stop()
}
