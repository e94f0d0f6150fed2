// Package reporter delivers user-visible notices and the periodic safety
// digest.
package reporter

import (
	"context"
	"errors"
	"log/slog"
)

// Variant styles a notice. Destructive marks failures and emergencies.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a short user-facing message.
type Notice struct {
	Title       string
	Description string
	Variant     Variant
}

// Sink shows notices to the user.
type Sink interface {
	Notify(ctx context.Context, n Notice) error
}

// LogSink writes notices to the log.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, n Notice) error {
	if n.Variant == VariantDestructive {
		slog.Warn(n.Title, "description", n.Description)
		return nil
	}
	slog.Info(n.Title, "description", n.Description)
	return nil
}

// Fanout delivers each notice to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TestNotice is a synthetic notice for checking ntfy connectivity.
func TestNotice() Notice {
	return Notice{
		Title:       "Test notification from safetywatch",
		Description: "This is a test notification to verify ntfy connectivity.\nIf you see this, safetywatch is configured correctly.",
		Variant:     VariantDefault,
	}
}
