package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/setevik/safetywatch/internal/config"
)

// Ntfy sends notices to an ntfy topic.
type Ntfy struct {
	cfg    *config.Config
	client *http.Client
}

// NewNtfy creates a new Ntfy sink.
func NewNtfy(cfg *config.Config) *Ntfy {
	return &Ntfy{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Notify posts n to the configured topic. Without a URL it does nothing.
func (r *Ntfy) Notify(ctx context.Context, n Notice) error {
	if r.cfg.Ntfy.URL == "" {
		slog.Debug("ntfy URL not configured, skipping notification")
		return nil
	}

	title := FormatTitle(r.cfg.Instance.ID, n)
	priority := r.cfg.NtfyPriority(string(n.Variant))
	tags := TagsForVariant(n.Variant)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Ntfy.URL, strings.NewReader(n.Description))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)
	if r.cfg.Ntfy.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Ntfy.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	slog.Info("notification sent", "title", n.Title, "priority", priority)
	return nil
}
