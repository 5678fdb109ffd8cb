package events

import (
	"time"

	"github.com/streamwatch/report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportSubmitted    EventType = "report_submitted"
	EventReportTransitioned EventType = "report_transitioned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type        domain.SubjectType `json:"type"`
	ReporterRef *string            `json:"reporter_ref,omitempty"`
	StaffID     *string            `json:"staff_id,omitempty"`
}

// Event represents a committed state change emitted by the lifecycle engine.
// Fanout consumes events strictly after the store write has succeeded.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportSubmittedPayload payload.
type ReportSubmittedPayload struct {
	ExternalKey string              `json:"external_key"`
	Kind        domain.ReportKind   `json:"kind"`
	ReporterRef string              `json:"reporter_ref"`
	Subject     string              `json:"subject"`
	Fields      domain.ReportFields `json:"fields"`
}

// ReportTransitionedPayload payload.
type ReportTransitionedPayload struct {
	ExternalKey string              `json:"external_key"`
	Kind        domain.ReportKind   `json:"kind"`
	ReporterRef string              `json:"reporter_ref"`
	Subject     string              `json:"subject"`
	Action      domain.ReportAction `json:"action"`
	OldStatus   domain.ReportStatus `json:"old_status"`
	NewStatus   domain.ReportStatus `json:"new_status"`
	Note        string              `json:"note,omitempty"`
}
