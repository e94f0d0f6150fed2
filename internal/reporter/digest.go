package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/setevik/safetywatch/internal/event"
)

// DigestSummary holds aggregated safety activity for a digest period.
type DigestSummary struct {
	InstanceID string
	Since      time.Time
	Until      time.Time

	Events    int
	ByStatus  map[string]int // status -> count
	ByKind    map[string]int // indicator kind -> count
	Critical  int
	Responses map[string]int // user response -> count

	Alerts       int
	AlertsByType map[string]int
}

// BuildDigest aggregates events and alerts into a DigestSummary. Only items
// inside [since, until) are counted.
func BuildDigest(instanceID string, events []*event.SafetyEvent, alerts []event.EmergencyAlert, since, until time.Time) *DigestSummary {
	d := &DigestSummary{
		InstanceID:   instanceID,
		Since:        since,
		Until:        until,
		ByStatus:     make(map[string]int),
		ByKind:       make(map[string]int),
		Responses:    make(map[string]int),
		AlertsByType: make(map[string]int),
	}

	in := func(t time.Time) bool {
		return !t.Before(since) && t.Before(until)
	}

	for _, ev := range events {
		if !in(ev.DetectedAt) {
			continue
		}
		d.Events++
		d.ByStatus[string(ev.Status)]++
		for _, k := range ev.Kinds() {
			d.ByKind[string(k)]++
		}
		if ev.MaxSeverity() == event.SevCritical {
			d.Critical++
		}
		if ev.UserResponse != "" {
			d.Responses[string(ev.UserResponse)]++
		}
	}

	for _, a := range alerts {
		if !in(a.Timestamp) {
			continue
		}
		d.Alerts++
		d.AlertsByType[string(a.Type)]++
	}

	return d
}

// FormatDigest formats a DigestSummary as human-readable text suitable for
// ntfy or stdout output.
func FormatDigest(d *DigestSummary) string {
	var b strings.Builder

	dateRange := fmt.Sprintf("%s - %s",
		d.Since.Local().Format("Jan 02"),
		d.Until.Local().Format("Jan 02"))

	fmt.Fprintf(&b, "=== %s ===\n", d.InstanceID)
	fmt.Fprintf(&b, "Period: %s\n\n", dateRange)

	fmt.Fprintf(&b, "Safety Events:    %d", d.Events)
	if d.Events > 0 {
		fmt.Fprintf(&b, " (%s)", formatBreakdown(d.ByKind))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  Critical:       %d\n", d.Critical)
	if d.Events > 0 {
		fmt.Fprintf(&b, "  Outcomes:       %s\n", formatBreakdown(d.ByStatus))
	}
	if len(d.Responses) > 0 {
		fmt.Fprintf(&b, "  Responses:      %s\n", formatBreakdown(d.Responses))
	}

	fmt.Fprintf(&b, "Emergency Alerts: %d", d.Alerts)
	if d.Alerts > 0 {
		fmt.Fprintf(&b, " (%s)", formatBreakdown(d.AlertsByType))
	}
	b.WriteString("\n")

	return b.String()
}

// FormatDigestTitle generates the ntfy title for a digest notification.
func FormatDigestTitle(since, until time.Time) string {
	return fmt.Sprintf("\U0001f4ca safetywatch digest (%s-%s)",
		since.Local().Format("Jan 02"),
		until.Local().Format("Jan 02"))
}

// DigestNotice wraps a digest as a notice.
func DigestNotice(d *DigestSummary) Notice {
	v := VariantDefault
	if d.Alerts > 0 {
		v = VariantDestructive
	}
	return Notice{
		Title:       FormatDigestTitle(d.Since, d.Until),
		Description: FormatDigest(d),
		Variant:     v,
	}
}

// formatBreakdown turns a map[string]int into "foo ×2, bar ×1" sorted by
// count desc, then name.
func formatBreakdown(m map[string]int) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s ×%d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}
