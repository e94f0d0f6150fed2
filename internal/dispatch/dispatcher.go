// Package dispatch fans an emergency alert out to emergency services,
// personal contacts and local authorities.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/contacts"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/gateway"
	"github.com/setevik/safetywatch/internal/geo"
	"github.com/setevik/safetywatch/internal/metrics"
	"github.com/setevik/safetywatch/internal/reporter"
)

// Channel names one dispatch route.
type Channel string

const (
	ChannelEmergencyServices Channel = "emergency_services"
	ChannelContacts          Channel = "contacts"
	ChannelAuthorities       Channel = "local_authorities"
)

// ChannelResult is what one channel attempted and whether anything failed.
type ChannelResult struct {
	Channel Channel
	Targets []string
	Err     error
}

// Outcome is the result of one dispatch.
type Outcome struct {
	Alert    event.EmergencyAlert
	Channels []ChannelResult
}

// Failed returns the channels that reported an error.
func (o *Outcome) Failed() []Channel {
	var out []Channel
	for _, c := range o.Channels {
		if c.Err != nil {
			out = append(out, c.Channel)
		}
	}
	return out
}

// ContactSource lists the contacts that should receive alerts.
type ContactSource interface {
	Active() []contacts.Contact
}

// AlertRecorder appends alerts to the alert history.
type AlertRecorder interface {
	Append(event.EmergencyAlert) error
}

// Options holds the dialled numbers.
type Options struct {
	EmergencyNumber  string
	AuthorityNumbers []string
}

// Dispatcher sends emergency alerts.
type Dispatcher struct {
	locator  *geo.Locator
	alerts   AlertRecorder
	contacts ContactSource
	gw       gateway.Gateway
	sink     reporter.Sink
	clock    clock.Clock
	metrics  *metrics.Metrics
	opts     Options
}

// New creates a Dispatcher. sink and m may be nil.
func New(locator *geo.Locator, alerts AlertRecorder, cs ContactSource, gw gateway.Gateway, sink reporter.Sink, clk clock.Clock, m *metrics.Metrics, opts Options) *Dispatcher {
	if opts.EmergencyNumber == "" {
		opts.EmergencyNumber = "911"
	}
	if opts.AuthorityNumbers == nil {
		opts.AuthorityNumbers = []string{"911", "112"}
	}
	return &Dispatcher{
		locator:  locator,
		alerts:   alerts,
		contacts: cs,
		gw:       gw,
		sink:     sink,
		clock:    clk,
		metrics:  m,
		opts:     opts,
	}
}

// Dispatch records a new alert and sends it on every channel. Channel
// failures are logged and reported in the Outcome; they never fail the call.
// An error means no alert was created.
func (d *Dispatcher) Dispatch(ctx context.Context, t event.AlertType, info string) (*Outcome, error) {
	t, err := event.ParseAlertType(string(t))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatching %s alert: %w", t, err)
	}

	loc := d.locator.Acquire(ctx)
	now := d.clock.Now()
	alert := event.EmergencyAlert{
		ID:             event.NewID("alert", now),
		Type:           t,
		Timestamp:      now,
		Location:       loc,
		AdditionalInfo: info,
		Status:         event.AlertSent,
	}
	if err := d.alerts.Append(alert); err != nil {
		slog.Error("failed to save alert history", "id", alert.ID, "error", err)
	}
	d.metrics.Alert(string(t))
	slog.Info("emergency alert created", "id", alert.ID, "type", t, "located", loc != nil)

	msg := FormatMessage(alert)
	routes := []struct {
		ch   Channel
		send func(context.Context, event.EmergencyAlert, string) ([]string, error)
	}{
		{ChannelEmergencyServices, d.toEmergencyServices},
		{ChannelContacts, d.toContacts},
		{ChannelAuthorities, d.toAuthorities},
	}

	out := &Outcome{Alert: alert, Channels: make([]ChannelResult, len(routes))}
	var wg sync.WaitGroup
	for i, r := range routes {
		wg.Add(1)
		go func(i int, ch Channel, send func(context.Context, event.EmergencyAlert, string) ([]string, error)) {
			defer wg.Done()
			targets, err := send(ctx, alert, msg)
			out.Channels[i] = ChannelResult{Channel: ch, Targets: targets, Err: err}
			if err != nil {
				d.metrics.ChannelFailure(string(ch))
				slog.Error("alert channel failed", "channel", ch, "id", alert.ID, "error", err)
				return
			}
			slog.Info("alert channel sent", "channel", ch, "id", alert.ID, "targets", len(targets))
		}(i, r.ch, r.send)
	}
	wg.Wait()

	return out, nil
}

// SendDirectEmergencyAlert dispatches an alert and reports the result to the
// user. It returns whether the alert was created.
func (d *Dispatcher) SendDirectEmergencyAlert(ctx context.Context, t event.AlertType, info string) bool {
	_, err := d.Dispatch(ctx, t, info)
	if err != nil {
		slog.Error("failed to send emergency alert", "type", t, "error", err)
		d.notify(ctx, reporter.Notice{
			Title:       "Alert Failed",
			Description: "Failed to send emergency alert. Please try again.",
			Variant:     reporter.VariantDestructive,
		})
		return false
	}

	d.notify(ctx, reporter.Notice{
		Title:       "Emergency Alert Sent",
		Description: "Direct alert has been sent to emergency personnel and contacts.",
		Variant:     reporter.VariantDestructive,
	})
	return true
}

func (d *Dispatcher) notify(ctx context.Context, n reporter.Notice) {
	if d.sink == nil {
		return
	}
	if err := d.sink.Notify(ctx, n); err != nil {
		slog.Warn("notice not delivered", "title", n.Title, "error", err)
	}
}

func (d *Dispatcher) toEmergencyServices(ctx context.Context, _ event.EmergencyAlert, msg string) ([]string, error) {
	return d.open(ctx, []string{
		gateway.Tel(d.opts.EmergencyNumber),
		gateway.SMS(d.opts.EmergencyNumber, msg),
	})
}

func (d *Dispatcher) toContacts(ctx context.Context, a event.EmergencyAlert, msg string) ([]string, error) {
	active := d.contacts.Active()
	if len(active) == 0 {
		slog.Warn("no active emergency contacts", "id", a.ID)
		return nil, nil
	}

	body := contactMessage(msg, a)
	subject := EmailSubject(a.Type)

	var targets []string
	for _, c := range active {
		targets = append(targets, gateway.SMS(c.Phone, body))
	}
	for _, c := range active {
		if c.Email != "" {
			targets = append(targets, gateway.Mailto(c.Email, subject, body))
		}
	}
	return d.open(ctx, targets)
}

func (d *Dispatcher) toAuthorities(ctx context.Context, _ event.EmergencyAlert, msg string) ([]string, error) {
	targets := make([]string, 0, len(d.opts.AuthorityNumbers))
	for _, n := range d.opts.AuthorityNumbers {
		targets = append(targets, gateway.SMS(n, msg))
	}
	return d.open(ctx, targets)
}

// open tries every target and joins the failures.
func (d *Dispatcher) open(ctx context.Context, targets []string) ([]string, error) {
	var errs []error
	for _, t := range targets {
		if err := d.gw.Open(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return targets, errors.Join(errs...)
}
