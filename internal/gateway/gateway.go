// Package gateway opens tel:, sms: and mailto: targets on the device.
// Opening is fire-and-forget; no delivery receipt exists.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
	"sync"
)

// Gateway hands a messaging URI to the platform.
type Gateway interface {
	Open(ctx context.Context, target string) error
}

// Tel builds a call target.
func Tel(number string) string {
	return "tel:" + number
}

// SMS builds a text-message target with a pre-filled body.
func SMS(number, body string) string {
	return fmt.Sprintf("sms:%s?body=%s", number, encode(body))
}

// Mailto builds an email target with subject and body.
func Mailto(addr, subject, body string) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", addr, encode(subject), encode(body))
}

// componentUnescaper undoes the escapes QueryEscape adds for characters a
// URI component may carry literally.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encode percent-encodes s for a URI component the way encodeURIComponent
// does: spaces as %20, and !'()* left as is.
func encode(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// Exec opens targets with an external command such as xdg-open.
type Exec struct {
	Command string
	Args    []string
}

// NewExec returns an Exec gateway; an empty command means xdg-open.
func NewExec(command string, args ...string) *Exec {
	if command == "" {
		command = "xdg-open"
	}
	return &Exec{Command: command, Args: args}
}

func (e *Exec) Open(ctx context.Context, target string) error {
	args := append(append([]string(nil), e.Args...), target)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", e.Command, scheme(target), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Log only logs targets. Useful where no messaging app exists.
type Log struct{}

func (Log) Open(_ context.Context, target string) error {
	slog.Info("messaging target opened", "scheme", scheme(target), "target", target)
	return nil
}

// Recorder collects targets in memory. Fail, when set, decides per target
// whether Open returns an error.
type Recorder struct {
	Fail func(target string) error

	mu      sync.Mutex
	targets []string
}

func (r *Recorder) Open(_ context.Context, target string) error {
	if r.Fail != nil {
		if err := r.Fail(target); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	return nil
}

// Targets returns every successfully opened target.
func (r *Recorder) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}

func scheme(target string) string {
	if i := strings.IndexByte(target, ':'); i > 0 {
		return target[:i]
	}
	return target
}
