package reporter

import (
	"fmt"
	"strings"

	"github.com/setevik/safetywatch/internal/event"
)

// variantEmoji maps notice variants to display emojis for ntfy titles.
var variantEmoji = map[Variant]string{
	VariantDestructive: "\U0001f6a8", // rotating light
	VariantDefault:     "ℹ️",
}

// variantTags maps notice variants to ntfy tag names.
var variantTags = map[Variant]string{
	VariantDestructive: "rotating_light,sos",
	VariantDefault:     "information_source",
}

// FormatTitle builds the ntfy notification title for a notice.
func FormatTitle(instanceID string, n Notice) string {
	emoji := variantEmoji[n.Variant]
	if emoji == "" {
		emoji = "❗" // exclamation mark
	}
	return fmt.Sprintf("%s [%s] %s", emoji, instanceID, n.Title)
}

// TagsForVariant returns the ntfy tags string for a notice variant.
func TagsForVariant(v Variant) string {
	if tags, ok := variantTags[v]; ok {
		return tags
	}
	return "warning"
}

// FormatEvent renders a safety event as one line for listings.
func FormatEvent(ev *event.SafetyEvent) string {
	kinds := make([]string, 0, len(ev.Indicators))
	for _, k := range ev.Kinds() {
		kinds = append(kinds, string(k))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-20s %-8s %-19s %s",
		ev.DetectedAt.Local().Format("2006-01-02 15:04:05"),
		ev.Status,
		ev.MaxSeverity(),
		strings.Join(kinds, ","),
		ev.ID,
	)
	if ev.UserResponse != "" {
		fmt.Fprintf(&b, "  response=%s", ev.UserResponse)
	}
	if ev.Location != nil {
		fmt.Fprintf(&b, "  at=%.6f,%.6f", ev.Location.Latitude, ev.Location.Longitude)
	}
	return b.String()
}

// FormatAlert renders an emergency alert as one line for listings.
func FormatAlert(a event.EmergencyAlert) string {
	loc := "unknown"
	if a.Location != nil {
		loc = fmt.Sprintf("%.6f,%.6f", a.Location.Latitude, a.Location.Longitude)
	}
	line := fmt.Sprintf("%s  %-8s %-6s %-24s %s",
		a.Timestamp.Local().Format("2006-01-02 15:04:05"),
		a.Type,
		a.Status,
		loc,
		a.ID,
	)
	if a.AdditionalInfo != "" {
		line += "  " + a.AdditionalInfo
	}
	return line
}
