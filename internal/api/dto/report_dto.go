package dto

import (
	"time"

	"github.com/streamwatch/report-service/internal/domain"
)

// SubmitTVReportRequest is the TV issue submission payload.
type SubmitTVReportRequest struct {
	ReporterRef     string `json:"reporter_ref"`
	ChannelName     string `json:"channel_name"`
	ChannelCategory string `json:"channel_category"`
	Issue           string `json:"issue"`
}

// SubmitVODReportRequest is the VOD issue submission payload.
type SubmitVODReportRequest struct {
	ReporterRef   string `json:"reporter_ref"`
	Title         string `json:"title"`
	ReferenceLink string `json:"reference_link"`
	Quality       string `json:"quality"`
	Issue         string `json:"issue"`
}

// ReportActionRequest applies a lifecycle action to a report.
type ReportActionRequest struct {
	Action string `json:"action"`
	Note   string `json:"note"`
}

// ReporterReplyRequest records a reporter response to an info request.
type ReporterReplyRequest struct {
	ReporterRef string `json:"reporter_ref"`
	Note        string `json:"note"`
}

// ReportFieldsResponse mirrors the submission form payload.
type ReportFieldsResponse struct {
	ChannelName     string `json:"channel_name,omitempty"`
	ChannelCategory string `json:"channel_category,omitempty"`
	Title           string `json:"title,omitempty"`
	ReferenceLink   string `json:"reference_link,omitempty"`
	Quality         string `json:"quality,omitempty"`
	Issue           string `json:"issue"`
}

// ReportSummary is the list-view projection of a report.
type ReportSummary struct {
	ID          string              `json:"id"`
	ExternalKey string              `json:"external_key"`
	Kind        domain.ReportKind   `json:"kind"`
	ReporterRef string              `json:"reporter_ref"`
	Subject     string              `json:"subject"`
	Status      domain.ReportStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ReportDetailResponse includes fields, history and the legal next actions.
type ReportDetailResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	Kind        domain.ReportKind     `json:"kind"`
	ReporterRef string                `json:"reporter_ref"`
	Fields      ReportFieldsResponse  `json:"fields"`
	Status      domain.ReportStatus   `json:"status"`
	NextActions []domain.ReportAction `json:"next_actions"`
	History     []HistoryResponse     `json:"history"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID        string              `json:"id"`
	Status    domain.ReportStatus `json:"status"`
	ActorRef  string              `json:"actor_ref"`
	Note      string              `json:"note,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// BlockRequest bars a reporter from submitting.
type BlockRequest struct {
	ReporterRef     string `json:"reporter_ref"`
	Reason          string `json:"reason"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// BlockResponse describes an active or expired block.
type BlockResponse struct {
	ID          string     `json:"id"`
	ReporterRef string     `json:"reporter_ref"`
	CreatedBy   string     `json:"created_by"`
	Reason      string     `json:"reason,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LiveboardRowResponse is one active report line on the board.
type LiveboardRowResponse struct {
	ExternalKey string              `json:"external_key"`
	Status      domain.ReportStatus `json:"status"`
	Subject     string              `json:"subject"`
	CreatedAt   time.Time           `json:"created_at"`
}

// LiveboardResponse is the active-report overview split by kind.
type LiveboardResponse struct {
	UpdatedAt time.Time              `json:"updated_at"`
	TV        []LiveboardRowResponse `json:"tv"`
	VOD       []LiveboardRowResponse `json:"vod"`
}
