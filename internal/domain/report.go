package domain

import "time"

// ReportKind distinguishes the two submission entry points.
type ReportKind string

const (
	ReportKindTV  ReportKind = "TV"
	ReportKindVOD ReportKind = "VOD"
)

// ReportStatus enumerates lifecycle states for reports.
type ReportStatus string

const (
	ReportStatusOpen             ReportStatus = "OPEN"
	ReportStatusFixed            ReportStatus = "FIXED"
	ReportStatusCantReplicate    ReportStatus = "CANT_REPLICATE"
	ReportStatusMoreInfoRequired ReportStatus = "MORE_INFO_REQUIRED"
	ReportStatusFollowUpSent     ReportStatus = "FOLLOW_UP_SENT"
	ReportStatusClosed           ReportStatus = "CLOSED"
)

// ReportFields carries the submission form payload. TV reports fill
// ChannelName/ChannelCategory, VOD reports fill Title/ReferenceLink/Quality.
// Fields are immutable after creation; there is no edit path.
type ReportFields struct {
	ChannelName     string `json:"channel_name,omitempty"`
	ChannelCategory string `json:"channel_category,omitempty"`
	Title           string `json:"title,omitempty"`
	ReferenceLink   string `json:"reference_link,omitempty"`
	Quality         string `json:"quality,omitempty"`
	Issue           string `json:"issue"`
}

// Subject returns the short display label for a report.
func (f ReportFields) Subject(kind ReportKind) string {
	switch kind {
	case ReportKindTV:
		if f.ChannelName != "" {
			return f.ChannelName
		}
		return "TV report"
	case ReportKindVOD:
		if f.Title != "" {
			return f.Title
		}
		return "VOD report"
	}
	return "Report"
}

// HistoryEntry is an immutable audit trail record. One entry is appended per
// successful transition, plus one at creation.
type HistoryEntry struct {
	ID        string
	ReportID  string
	Status    ReportStatus
	ActorRef  string
	Note      string
	CreatedAt time.Time
}

// Report is the aggregate for streamed-content issue submissions.
type Report struct {
	ID          string
	ExternalKey string
	Kind        ReportKind
	ReporterRef string
	Fields      ReportFields
	Status      ReportStatus
	History     []HistoryEntry
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// Closed reports accept no further staff-action transitions.
func (r *Report) Closed() bool {
	return r.Status == ReportStatusClosed
}
