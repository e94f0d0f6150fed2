package event

import (
	"fmt"
	"strings"
	"time"
)

// AlertType tags the kind of emergency an alert reports.
type AlertType string

const (
	AlertMedical AlertType = "medical"
	AlertSafety  AlertType = "safety"
	AlertFire    AlertType = "fire"
	AlertPolice  AlertType = "police"
	AlertFall    AlertType = "fall"
	AlertPanic   AlertType = "panic"
	AlertGeneral AlertType = "general"
)

// AlertTypes lists every valid alert type.
var AlertTypes = []AlertType{AlertMedical, AlertSafety, AlertFire, AlertPolice, AlertFall, AlertPanic, AlertGeneral}

// ParseAlertType accepts any of the alert type tags, case-insensitively.
func ParseAlertType(s string) (AlertType, error) {
	t := AlertType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range AlertTypes {
		if v == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown alert type %q", s)
}

// AlertStatus is the delivery status of an alert. Only AlertSent is ever
// assigned today; no delivery receipt exists to advance it.
type AlertStatus string

const (
	AlertSent      AlertStatus = "sent"
	AlertDelivered AlertStatus = "delivered"
	AlertFailed    AlertStatus = "failed"
)

// EmergencyAlert is one dispatch attempt. Immutable after creation except
// Status.
type EmergencyAlert struct {
	ID             string      `json:"id"`
	Type           AlertType   `json:"type"`
	Timestamp      time.Time   `json:"timestamp"`
	Location       *Location   `json:"location"`
	AdditionalInfo string      `json:"additionalInfo"`
	Status         AlertStatus `json:"status"`
}
