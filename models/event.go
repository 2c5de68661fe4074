package models

import "time"

const (
	EventReportCreated       = "report.created"
	EventReportStatusChanged = "report.status_changed"
)

// Event announces a change of the report collection to listeners.
type Event struct {
	Type     string    `json:"type"`
	ReportID string    `json:"report_id"`
	From     Status    `json:"from,omitempty"`
	To       Status    `json:"to"`
	At       time.Time `json:"at"`
}
