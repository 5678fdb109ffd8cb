package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/events"
	"github.com/streamwatch/report-service/internal/repository"
	apperrors "github.com/streamwatch/report-service/pkg/util"
)

// memReportRepo mimics the store's compare-and-set semantics in memory.
type memReportRepo struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*domain.Report
	byKey   map[string]string
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{
		reports: make(map[string]*domain.Report),
		byKey:   make(map[string]string),
	}
}

func (m *memReportRepo) Create(ctx context.Context, report *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	report.ID = fmt.Sprintf("r-%d", m.seq)
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	for i := range report.History {
		report.History[i].ID = fmt.Sprintf("h-%d-%d", m.seq, i)
		report.History[i].ReportID = report.ID
		report.History[i].CreatedAt = now
	}

	stored := cloneReport(report)
	m.reports[report.ID] = stored
	m.byKey[report.ExternalKey] = report.ID
	return nil
}

func (m *memReportRepo) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneReport(stored), nil
}

func (m *memReportRepo) GetByExternalKey(ctx context.Context, key string) (*domain.Report, error) {
	m.mu.Lock()
	id, ok := m.byKey[key]
	m.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *memReportRepo) ListActive(ctx context.Context, limit int) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Report
	for _, stored := range m.reports {
		if stored.Status == domain.ReportStatusClosed {
			continue
		}
		out = append(out, *cloneReport(stored))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memReportRepo) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReportStatus, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.reports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Status != expected {
		return repository.ErrConflict
	}

	now := time.Now()
	stored.Status = next
	stored.UpdatedAt = now
	if next == domain.ReportStatusClosed {
		stored.ClosedAt = &now
	}
	entry.ID = fmt.Sprintf("h-%s-%d", id, len(stored.History))
	entry.ReportID = id
	entry.Status = next
	entry.CreatedAt = now
	stored.History = append(stored.History, entry)
	return nil
}

func cloneReport(report *domain.Report) *domain.Report {
	clone := *report
	clone.History = append([]domain.HistoryEntry(nil), report.History...)
	if report.ClosedAt != nil {
		closedAt := *report.ClosedAt
		clone.ClosedAt = &closedAt
	}
	return &clone
}

// memBlockRepo stores blocks keyed by reporter ref.
type memBlockRepo struct {
	mu     sync.Mutex
	blocks map[string]*domain.ReportBlock
}

func newMemBlockRepo() *memBlockRepo {
	return &memBlockRepo{blocks: make(map[string]*domain.ReportBlock)}
}

func (m *memBlockRepo) Upsert(ctx context.Context, block *domain.ReportBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if block.ID == "" {
		block.ID = "b-" + block.ReporterRef
	}
	block.CreatedAt = time.Now()
	clone := *block
	m.blocks[block.ReporterRef] = &clone
	return nil
}

func (m *memBlockRepo) Remove(ctx context.Context, reporterRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[reporterRef]; !ok {
		return false, nil
	}
	delete(m.blocks, reporterRef)
	return true, nil
}

func (m *memBlockRepo) ActiveBlock(ctx context.Context, reporterRef string, now time.Time) (*domain.ReportBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, ok := m.blocks[reporterRef]
	if !ok || !block.Active(now) {
		return nil, nil
	}
	clone := *block
	return &clone, nil
}

func (m *memBlockRepo) List(ctx context.Context, now time.Time) ([]domain.ReportBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ReportBlock
	for _, block := range m.blocks {
		if block.Active(now) {
			out = append(out, *block)
		}
	}
	return out, nil
}

// eventRecorder captures dispatched events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) count(eventType events.EventType) int {
	n := 0
	for _, event := range r.all() {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

type reportFixture struct {
	service  *ReportService
	repo     *memReportRepo
	blocks   *memBlockRepo
	recorder *eventRecorder
}

func newReportFixture() *reportFixture {
	repo := newMemReportRepo()
	blocks := newMemBlockRepo()
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventReportSubmitted, recorder.record)
	dispatcher.Subscribe(events.EventReportTransitioned, recorder.record)

	return &reportFixture{
		service: NewReportService(ReportDependencies{
			ReportRepo: repo,
			BlockRepo:  blocks,
			Dispatcher: dispatcher,
		}),
		repo:     repo,
		blocks:   blocks,
		recorder: recorder,
	}
}

func submitTV(t *testing.T, fx *reportFixture, reporterRef string) *domain.Report {
	t.Helper()
	report, err := fx.service.Submit(context.Background(), SubmitInput{
		Kind:        domain.ReportKindTV,
		ReporterRef: reporterRef,
		Fields: domain.ReportFields{
			ChannelName: "Sky Sports News",
			Issue:       "constant buffering",
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return report
}

func TestSubmitCreatesOpenReport(t *testing.T) {
	fx := newReportFixture()
	report := submitTV(t, fx, "user#1")

	if report.Status != domain.ReportStatusOpen {
		t.Errorf("status = %s, want %s", report.Status, domain.ReportStatusOpen)
	}
	if !strings.HasPrefix(report.ExternalKey, "RPT-") {
		t.Errorf("external key = %q, want RPT- prefix", report.ExternalKey)
	}
	if len(report.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(report.History))
	}
	if report.History[0].Status != domain.ReportStatusOpen {
		t.Errorf("initial history status = %s, want %s", report.History[0].Status, domain.ReportStatusOpen)
	}
	if got := fx.recorder.count(events.EventReportSubmitted); got != 1 {
		t.Errorf("submitted events = %d, want 1", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		input SubmitInput
	}{
		{"missing reporter", SubmitInput{Kind: domain.ReportKindTV, Fields: domain.ReportFields{ChannelName: "BBC One", Issue: "frozen"}}},
		{"missing issue", SubmitInput{Kind: domain.ReportKindTV, ReporterRef: "u", Fields: domain.ReportFields{ChannelName: "BBC One"}}},
		{"tv missing channel", SubmitInput{Kind: domain.ReportKindTV, ReporterRef: "u", Fields: domain.ReportFields{Issue: "frozen"}}},
		{"vod missing title", SubmitInput{Kind: domain.ReportKindVOD, ReporterRef: "u", Fields: domain.ReportFields{Issue: "no audio"}}},
		{"unknown kind", SubmitInput{Kind: "RADIO", ReporterRef: "u", Fields: domain.ReportFields{Issue: "static"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newReportFixture()
			if _, err := fx.service.Submit(context.Background(), tt.input); !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Errorf("Submit() error = %v, want VALIDATION_FAILED", err)
			}
			if got := len(fx.recorder.all()); got != 0 {
				t.Errorf("events after rejected submit = %d, want 0", got)
			}
		})
	}
}

func TestSubmitBlockedReporter(t *testing.T) {
	fx := newReportFixture()
	if err := fx.blocks.Upsert(context.Background(), &domain.ReportBlock{ReporterRef: "user#1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	_, err := fx.service.Submit(context.Background(), SubmitInput{
		Kind:        domain.ReportKindTV,
		ReporterRef: "user#1",
		Fields:      domain.ReportFields{ChannelName: "CNN", Issue: "black screen"},
	})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("Submit() error = %v, want FORBIDDEN", err)
	}
}

func TestSubmitExpiredBlockAllowed(t *testing.T) {
	fx := newReportFixture()
	expired := time.Now().Add(-time.Hour)
	if err := fx.blocks.Upsert(context.Background(), &domain.ReportBlock{ReporterRef: "user#1", ExpiresAt: &expired}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	submitTV(t, fx, "user#1")
}

func TestLifecycleScenario(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	report := submitTV(t, fx, "user#1")

	steps := []struct {
		action      domain.ReportAction
		subject     domain.SubjectType
		actorRef    string
		wantStatus  domain.ReportStatus
		wantHistory int
	}{
		{domain.ActionRequestMoreInfo, domain.SubjectTypeStaff, "staff-1", domain.ReportStatusMoreInfoRequired, 2},
		{domain.ActionReporterReplies, domain.SubjectTypeReporter, "user#1", domain.ReportStatusOpen, 3},
		{domain.ActionMarkFixed, domain.SubjectTypeStaff, "staff-1", domain.ReportStatusFixed, 4},
		{domain.ActionClose, domain.SubjectTypeStaff, "staff-1", domain.ReportStatusClosed, 5},
	}

	for _, step := range steps {
		updated, err := fx.service.ApplyAction(ctx, ActionInput{
			ReportID: report.ID,
			Action:   step.action,
			ActorRef: step.actorRef,
			Subject:  step.subject,
		})
		if err != nil {
			t.Fatalf("ApplyAction(%s) error = %v", step.action, err)
		}
		if updated.Status != step.wantStatus {
			t.Fatalf("after %s status = %s, want %s", step.action, updated.Status, step.wantStatus)
		}
		if len(updated.History) != step.wantHistory {
			t.Fatalf("after %s history length = %d, want %d", step.action, len(updated.History), step.wantHistory)
		}
	}

	final, err := fx.service.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if final.ClosedAt == nil {
		t.Error("closed report has no ClosedAt")
	}
	if got := fx.recorder.count(events.EventReportTransitioned); got != len(steps) {
		t.Errorf("transitioned events = %d, want %d", got, len(steps))
	}
}

func TestApplyActionInvalidTransitionLeavesReportUntouched(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	report := submitTV(t, fx, "user#1")

	_, err := fx.service.ApplyAction(ctx, ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionClose,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	})
	if !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("ApplyAction() error = %v, want INVALID_TRANSITION", err)
	}

	fresh, err := fx.service.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if fresh.Status != domain.ReportStatusOpen {
		t.Errorf("status after illegal action = %s, want %s", fresh.Status, domain.ReportStatusOpen)
	}
	if len(fresh.History) != 1 {
		t.Errorf("history length after illegal action = %d, want 1", len(fresh.History))
	}
	if got := fx.recorder.count(events.EventReportTransitioned); got != 0 {
		t.Errorf("transitioned events after illegal action = %d, want 0", got)
	}
}

func TestApplyActionSubmitRejected(t *testing.T) {
	fx := newReportFixture()
	report := submitTV(t, fx, "user#1")

	_, err := fx.service.ApplyAction(context.Background(), ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionSubmit,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("ApplyAction(submit) error = %v, want VALIDATION_FAILED", err)
	}
}

func TestApplyActionNotFound(t *testing.T) {
	fx := newReportFixture()
	_, err := fx.service.ApplyAction(context.Background(), ActionInput{
		ReportID: "missing",
		Action:   domain.ActionMarkFixed,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	})
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("ApplyAction() error = %v, want NOT_FOUND", err)
	}
}

func TestReporterReplyRequiresOwnReport(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	report := submitTV(t, fx, "user#1")

	if _, err := fx.service.ApplyAction(ctx, ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionRequestMoreInfo,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	}); err != nil {
		t.Fatalf("ApplyAction(request info) error = %v", err)
	}

	_, err := fx.service.ApplyAction(ctx, ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionReporterReplies,
		ActorRef: "user#2",
		Subject:  domain.SubjectTypeReporter,
	})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("ApplyAction(reply as stranger) error = %v, want FORBIDDEN", err)
	}
}

// conflictingRepo loses the first compare-and-set on purpose, applying a
// competing transition before reporting the conflict back.
type conflictingRepo struct {
	*memReportRepo
	competing domain.ReportStatus
	fired     bool
}

func (c *conflictingRepo) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReportStatus, entry domain.HistoryEntry) error {
	if !c.fired {
		c.fired = true
		if err := c.memReportRepo.CompareAndSetStatus(ctx, id, expected, c.competing, domain.HistoryEntry{ActorRef: "rival"}); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return c.memReportRepo.CompareAndSetStatus(ctx, id, expected, next, entry)
}

func TestApplyActionRetriesAfterConflict(t *testing.T) {
	base := newMemReportRepo()
	repo := &conflictingRepo{memReportRepo: base, competing: domain.ReportStatusFollowUpSent}
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventReportTransitioned, recorder.record)
	svc := NewReportService(ReportDependencies{ReportRepo: repo, BlockRepo: newMemBlockRepo(), Dispatcher: dispatcher})

	ctx := context.Background()
	report, err := svc.Submit(ctx, SubmitInput{
		Kind:        domain.ReportKindVOD,
		ReporterRef: "user#1",
		Fields:      domain.ReportFields{Title: "Dune", Issue: "no subtitles"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := base.CompareAndSetStatus(ctx, report.ID, domain.ReportStatusOpen, domain.ReportStatusFixed, domain.HistoryEntry{ActorRef: "staff-2"}); err != nil {
		t.Fatalf("seed transition error = %v", err)
	}

	// Close loses the race against a competing SendFollowUp, then succeeds
	// on the retry because Close is also legal from FollowUpSent.
	updated, err := svc.ApplyAction(ctx, ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionClose,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	})
	if err != nil {
		t.Fatalf("ApplyAction() after conflict error = %v", err)
	}
	if updated.Status != domain.ReportStatusClosed {
		t.Errorf("status = %s, want %s", updated.Status, domain.ReportStatusClosed)
	}
	if got := recorder.count(events.EventReportTransitioned); got != 1 {
		t.Errorf("transitioned events = %d, want exactly 1", got)
	}
}

func TestApplyActionConflictThenIllegal(t *testing.T) {
	base := newMemReportRepo()
	repo := &conflictingRepo{memReportRepo: base, competing: domain.ReportStatusFollowUpSent}
	svc := NewReportService(ReportDependencies{ReportRepo: repo, BlockRepo: newMemBlockRepo(), Dispatcher: events.NewInMemoryDispatcher()})

	ctx := context.Background()
	report, err := svc.Submit(ctx, SubmitInput{
		Kind:        domain.ReportKindVOD,
		ReporterRef: "user#1",
		Fields:      domain.ReportFields{Title: "Dune", Issue: "stutter"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// MarkFixed loses the race against SendFollowUp; MarkFixed is illegal
	// from FollowUpSent, so the retry surfaces an invalid transition.
	_, err = svc.ApplyAction(ctx, ActionInput{
		ReportID: report.ID,
		Action:   domain.ActionMarkFixed,
		ActorRef: "staff-1",
		Subject:  domain.SubjectTypeStaff,
	})
	if !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("ApplyAction() error = %v, want INVALID_TRANSITION", err)
	}
}

func TestConcurrentActionsExactlyOneWins(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	report := submitTV(t, fx, "user#1")

	actions := []domain.ReportAction{domain.ActionMarkFixed, domain.ActionMarkCantReplicate}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action domain.ReportAction) {
			defer wg.Done()
			_, errs[i] = fx.service.ApplyAction(ctx, ActionInput{
				ReportID: report.ID,
				Action:   action,
				ActorRef: "staff-1",
				Subject:  domain.SubjectTypeStaff,
			})
		}(i, action)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !apperrors.IsCode(err, "INVALID_TRANSITION") {
			t.Errorf("loser error = %v, want INVALID_TRANSITION", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded actions = %d, want exactly 1", succeeded)
	}

	fresh, err := fx.service.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if len(fresh.History) != 2 {
		t.Errorf("history length = %d, want 2", len(fresh.History))
	}
}

func TestGetReportByKey(t *testing.T) {
	fx := newReportFixture()
	report := submitTV(t, fx, "user#1")

	found, err := fx.service.GetReportByKey(context.Background(), report.ExternalKey)
	if err != nil {
		t.Fatalf("GetReportByKey() error = %v", err)
	}
	if found.ID != report.ID {
		t.Errorf("found id = %s, want %s", found.ID, report.ID)
	}

	if _, err := fx.service.GetReportByKey(context.Background(), "RPT-NOPE"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("GetReportByKey(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestListActiveExcludesClosed(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	first := submitTV(t, fx, "user#1")
	submitTV(t, fx, "user#2")

	for _, action := range []domain.ReportAction{domain.ActionMarkFixed, domain.ActionClose} {
		if _, err := fx.service.ApplyAction(ctx, ActionInput{
			ReportID: first.ID,
			Action:   action,
			ActorRef: "staff-1",
			Subject:  domain.SubjectTypeStaff,
		}); err != nil {
			t.Fatalf("ApplyAction(%s) error = %v", action, err)
		}
	}

	active, err := fx.service.ListActive(ctx, 10)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active reports = %d, want 1", len(active))
	}
	if active[0].ID == first.ID {
		t.Error("closed report still listed as active")
	}
}
