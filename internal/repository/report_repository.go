package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamwatch/report-service/internal/domain"
)

// ErrConflict is returned by CompareAndSetStatus when the report's stored
// status no longer matches the expected status.
var ErrConflict = errors.New("report status conflict")

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Report, error)
	// ListActive returns non-closed reports, oldest first.
	ListActive(ctx context.Context, limit int) ([]domain.Report, error)
	// CompareAndSetStatus atomically moves the report from expected to next
	// and appends the history entry. Returns ErrConflict when the stored
	// status differs from expected, pgx.ErrNoRows when the id is unknown.
	CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReportStatus, entry domain.HistoryEntry) error
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertReport = `
        INSERT INTO reports (external_key, kind, reporter_ref, channel_name, channel_category, title, reference_link, quality, issue, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertReport,
		report.ExternalKey,
		report.Kind,
		report.ReporterRef,
		report.Fields.ChannelName,
		report.Fields.ChannelCategory,
		report.Fields.Title,
		report.Fields.ReferenceLink,
		report.Fields.Quality,
		report.Fields.Issue,
		report.Status,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt); err != nil {
		return err
	}

	if len(report.History) != 1 {
		return errors.New("new report requires exactly one history entry")
	}
	entry := &report.History[0]
	entry.ReportID = report.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	const query = `
        SELECT id, external_key, kind, reporter_ref, channel_name, channel_category, title, reference_link, quality, issue,
               status, created_at, updated_at, closed_at
        FROM reports WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *reportRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Report, error) {
	const query = `
        SELECT id, external_key, kind, reporter_ref, channel_name, channel_category, title, reference_link, quality, issue,
               status, created_at, updated_at, closed_at
        FROM reports WHERE external_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *reportRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Report, error) {
	var report domain.Report
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&report.ID,
		&report.ExternalKey,
		&report.Kind,
		&report.ReporterRef,
		&report.Fields.ChannelName,
		&report.Fields.ChannelCategory,
		&report.Fields.Title,
		&report.Fields.ReferenceLink,
		&report.Fields.Quality,
		&report.Fields.Issue,
		&report.Status,
		&report.CreatedAt,
		&report.UpdatedAt,
		&report.ClosedAt,
	); err != nil {
		return nil, err
	}

	history, err := r.listHistory(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	report.History = history
	return &report, nil
}

func (r *reportRepository) ListActive(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, external_key, kind, reporter_ref, channel_name, channel_category, title, reference_link, quality, issue,
               status, created_at, updated_at, closed_at
        FROM reports WHERE status <> $1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, domain.ReportStatusClosed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Report
	for rows.Next() {
		var report domain.Report
		if err := rows.Scan(
			&report.ID,
			&report.ExternalKey,
			&report.Kind,
			&report.ReporterRef,
			&report.Fields.ChannelName,
			&report.Fields.ChannelCategory,
			&report.Fields.Title,
			&report.Fields.ReferenceLink,
			&report.Fields.Quality,
			&report.Fields.Issue,
			&report.Status,
			&report.CreatedAt,
			&report.UpdatedAt,
			&report.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}

func (r *reportRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReportStatus, entry domain.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var closedAt *time.Time
	if next == domain.ReportStatusClosed {
		now := time.Now()
		closedAt = &now
	}

	const update = `
        UPDATE reports SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := tx.Exec(ctx, update, next, closedAt, id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// distinguish a missing report from a lost race
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reports WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrConflict
	}

	entry.ReportID = id
	entry.Status = next
	if err := insertHistory(ctx, tx, &entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *reportRepository) listHistory(ctx context.Context, reportID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, report_id, status, actor_ref, note, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.Status,
			&entry.ActorRef,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO report_history (report_id, status, actor_ref, note)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.ReportID,
		entry.Status,
		entry.ActorRef,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}
