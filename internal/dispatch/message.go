package dispatch

import (
	"fmt"
	"strings"

	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/geo"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// FormatMessage renders the human-readable alert text sent on every channel.
func FormatMessage(a event.EmergencyAlert) string {
	var b strings.Builder

	b.WriteString("🚨 EMERGENCY ALERT 🚨\n\n")
	fmt.Fprintf(&b, "Type: %s\n", strings.ToUpper(string(a.Type)))
	fmt.Fprintf(&b, "Time: %s\n", a.Timestamp.Local().Format(timeLayout))
	b.WriteString(locationLine(a.Location))
	b.WriteString("\n")
	if a.Location != nil {
		fmt.Fprintf(&b, "Map: %s\n", geo.MapURL(*a.Location))
	}

	if a.AdditionalInfo != "" {
		fmt.Fprintf(&b, "\nAdditional Info: %s\n", a.AdditionalInfo)
	}

	b.WriteString("\nThis is an automated emergency alert from safetywatch. Please respond immediately.\n")
	b.WriteString("\n---\nSent via safetywatch")
	return b.String()
}

// EmailSubject is the subject line of alert emails.
func EmailSubject(t event.AlertType) string {
	return "🚨 EMERGENCY ALERT - " + strings.ToUpper(string(t))
}

// contactMessage appends the sender's whereabouts for personal contacts.
func contactMessage(msg string, a event.EmergencyAlert) string {
	where := "Location unavailable"
	if a.Location != nil {
		where = fmt.Sprintf("%.6f, %.6f", a.Location.Latitude, a.Location.Longitude)
	}
	return fmt.Sprintf("%s\n\nMy location: %s\nTime: %s", msg, where, a.Timestamp.Local().Format(timeLayout))
}

func locationLine(loc *event.Location) string {
	if loc == nil {
		return "Location: Unable to determine"
	}
	return fmt.Sprintf("Location: %.6f, %.6f", loc.Latitude, loc.Longitude)
}
