package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/setevik/safetywatch/internal/event"
)

func TestFormatMessageWithLocation(t *testing.T) {
	a := event.EmergencyAlert{
		Type:           event.AlertMedical,
		Timestamp:      time.Date(2026, 2, 19, 14, 32, 5, 0, time.UTC),
		Location:       &event.Location{Latitude: 40.7128, Longitude: -74.006},
		AdditionalInfo: "allergic to penicillin",
	}

	msg := FormatMessage(a)

	checks := []string{
		"🚨 EMERGENCY ALERT 🚨",
		"Type: MEDICAL",
		"Location: 40.712800, -74.006000",
		"Map: https://www.google.com/maps?q=40.712800,-74.006000",
		"Additional Info: allergic to penicillin",
		"Sent via safetywatch",
	}
	for _, want := range checks {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q\ngot:\n%s", want, msg)
		}
	}
}

func TestFormatMessageWithoutLocation(t *testing.T) {
	msg := FormatMessage(event.EmergencyAlert{Type: event.AlertGeneral, Timestamp: time.Now()})

	if !strings.Contains(msg, "Location: Unable to determine") {
		t.Errorf("expected unknown location line, got:\n%s", msg)
	}
	if strings.Contains(msg, "Map:") {
		t.Error("map link must be omitted without a location")
	}
	if strings.Contains(msg, "Additional Info") {
		t.Error("empty additional info must be omitted")
	}
}

func TestEmailSubject(t *testing.T) {
	if got := EmailSubject(event.AlertFire); got != "🚨 EMERGENCY ALERT - FIRE" {
		t.Errorf("EmailSubject = %q", got)
	}
}

func TestContactMessage(t *testing.T) {
	a := event.EmergencyAlert{Timestamp: time.Now()}
	if got := contactMessage("help", a); !strings.Contains(got, "My location: Location unavailable") {
		t.Errorf("contactMessage = %q", got)
	}
}
