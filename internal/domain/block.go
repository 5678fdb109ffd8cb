package domain

import "time"

// ReportBlock bars a reporter from submitting new reports. A nil ExpiresAt
// means permanent.
type ReportBlock struct {
	ID          string
	ReporterRef string
	CreatedBy   string
	Reason      string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Active reports whether the block still applies at the given instant.
func (b *ReportBlock) Active(now time.Time) bool {
	if b == nil {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
