package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/events"
	"github.com/streamwatch/report-service/internal/repository"
	apperrors "github.com/streamwatch/report-service/pkg/util"
)

// ReportService owns the report state machine: it validates intents against
// the current report state, persists transitions through the store's
// compare-and-set path and emits one transition event per committed change.
type ReportService struct {
	reports    repository.ReportRepository
	blocks     repository.BlockRepository
	dispatcher events.Dispatcher
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	BlockRepo  repository.BlockRepository
	Dispatcher events.Dispatcher
}

// SubmitInput describes a submission payload.
type SubmitInput struct {
	Kind        domain.ReportKind
	ReporterRef string
	Fields      domain.ReportFields
}

// ActionInput describes a staff or reporter action against a report.
type ActionInput struct {
	ReportID string
	Action   domain.ReportAction
	ActorRef string
	Subject  domain.SubjectType
	Note     string
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		reports:    deps.ReportRepo,
		blocks:     deps.BlockRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Submit creates a new report in status Open with its initial history entry.
func (s *ReportService) Submit(ctx context.Context, input SubmitInput) (*domain.Report, error) {
	if err := validateSubmission(input); err != nil {
		return nil, err
	}

	if s.blocks != nil {
		block, err := s.blocks.ActiveBlock(ctx, input.ReporterRef, time.Now())
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if block.Active(time.Now()) {
			return nil, apperrors.NewForbidden("reporter is blocked from the report system")
		}
	}

	report := &domain.Report{
		ExternalKey: generateReportKey(),
		Kind:        input.Kind,
		ReporterRef: input.ReporterRef,
		Fields:      trimFields(input.Fields),
		Status:      domain.ReportStatusOpen,
		History: []domain.HistoryEntry{{
			Status:   domain.ReportStatusOpen,
			ActorRef: input.ReporterRef,
			Note:     "submitted",
		}},
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportSubmitted,
		ReportID: report.ID,
		Actor:    reporterActor(input.ReporterRef),
		Payload: events.ReportSubmittedPayload{
			ExternalKey: report.ExternalKey,
			Kind:        report.Kind,
			ReporterRef: report.ReporterRef,
			Subject:     report.Fields.Subject(report.Kind),
			Fields:      report.Fields,
		},
	})
	return report, nil
}

// ApplyAction validates the action against the report's current status and
// commits the transition atomically. Illegal actions leave the report
// untouched: no state change, no history entry, no event.
func (s *ReportService) ApplyAction(ctx context.Context, input ActionInput) (*domain.Report, error) {
	if input.Action == domain.ActionSubmit {
		return nil, apperrors.NewValidationError("submit is not an applicable action", nil)
	}

	report, err := s.getReport(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	if input.Action == domain.ActionReporterReplies &&
		input.Subject == domain.SubjectTypeReporter &&
		report.ReporterRef != input.ActorRef {
		return nil, apperrors.NewForbidden("only the reporter may reply to this report")
	}

	committed, err := s.commitTransition(ctx, report, input)
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// commitTransition performs the compare-and-set, retried at most once with a
// fresh read when a concurrent action wins the race.
func (s *ReportService) commitTransition(ctx context.Context, report *domain.Report, input ActionInput) (*domain.Report, error) {
	for attempt := 0; attempt < 2; attempt++ {
		next, ok := domain.ResolveTransition(report.Status, input.Action)
		if !ok {
			return nil, apperrors.NewInvalidTransition(string(input.Action), string(report.Status))
		}

		oldStatus := report.Status
		entry := domain.HistoryEntry{
			Status:   next,
			ActorRef: input.ActorRef,
			Note:     strings.TrimSpace(input.Note),
		}
		err := s.reports.CompareAndSetStatus(ctx, report.ID, oldStatus, next, entry)
		if err == nil {
			fresh, err := s.getReport(ctx, report.ID)
			if err != nil {
				return nil, err
			}
			s.publishEvent(ctx, events.Event{
				Type:     events.EventReportTransitioned,
				ReportID: fresh.ID,
				Actor:    actorFor(input.Subject, input.ActorRef),
				Payload: events.ReportTransitionedPayload{
					ExternalKey: fresh.ExternalKey,
					Kind:        fresh.Kind,
					ReporterRef: fresh.ReporterRef,
					Subject:     fresh.Fields.Subject(fresh.Kind),
					Action:      input.Action,
					OldStatus:   oldStatus,
					NewStatus:   next,
					Note:        entry.Note,
				},
			})
			return fresh, nil
		}

		switch {
		case errors.Is(err, repository.ErrConflict):
			// lost the race; re-read once and re-validate against the
			// post-transition state
			fresh, rerr := s.getReport(ctx, report.ID)
			if rerr != nil {
				return nil, rerr
			}
			report = fresh
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("report", map[string]any{"id": report.ID})
		default:
			return nil, apperrors.NewStoreUnavailable(err)
		}
	}
	return nil, apperrors.NewInvalidTransition(string(input.Action), string(report.Status))
}

// GetReport loads a report with its history.
func (s *ReportService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return s.getReport(ctx, id)
}

// GetReportByKey loads a report by its external key.
func (s *ReportService) GetReportByKey(ctx context.Context, key string) (*domain.Report, error) {
	report, err := s.reports.GetByExternalKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"key": key})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return report, nil
}

// ListActive returns non-closed reports for staff listings and the liveboard.
func (s *ReportService) ListActive(ctx context.Context, limit int) ([]domain.Report, error) {
	reports, err := s.reports.ListActive(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return reports, nil
}

func (s *ReportService) getReport(ctx context.Context, id string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return report, nil
}

func validateSubmission(input SubmitInput) error {
	if strings.TrimSpace(input.ReporterRef) == "" {
		return apperrors.NewValidationError("reporter_ref required", nil)
	}
	if strings.TrimSpace(input.Fields.Issue) == "" {
		return apperrors.NewValidationError("issue required", nil)
	}
	switch input.Kind {
	case domain.ReportKindTV:
		if strings.TrimSpace(input.Fields.ChannelName) == "" {
			return apperrors.NewValidationError("channel_name required for TV reports", nil)
		}
	case domain.ReportKindVOD:
		if strings.TrimSpace(input.Fields.Title) == "" {
			return apperrors.NewValidationError("title required for VOD reports", nil)
		}
	default:
		return apperrors.NewValidationError("unknown report kind", map[string]any{"kind": input.Kind})
	}
	return nil
}

func trimFields(fields domain.ReportFields) domain.ReportFields {
	fields.ChannelName = strings.TrimSpace(fields.ChannelName)
	fields.ChannelCategory = strings.TrimSpace(fields.ChannelCategory)
	fields.Title = strings.TrimSpace(fields.Title)
	fields.ReferenceLink = strings.TrimSpace(fields.ReferenceLink)
	fields.Quality = strings.TrimSpace(fields.Quality)
	fields.Issue = strings.TrimSpace(fields.Issue)
	return fields
}

func generateReportKey() string {
	return "RPT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func reporterActor(reporterRef string) events.Actor {
	return events.Actor{
		Type:        domain.SubjectTypeReporter,
		ReporterRef: &reporterRef,
	}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

func actorFor(subject domain.SubjectType, ref string) events.Actor {
	switch subject {
	case domain.SubjectTypeStaff:
		return staffActor(ref)
	default:
		return reporterActor(ref)
	}
}
