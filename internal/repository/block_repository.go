package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamwatch/report-service/internal/domain"
)

// BlockRepository persists report-system blocks.
type BlockRepository interface {
	Upsert(ctx context.Context, block *domain.ReportBlock) error
	Remove(ctx context.Context, reporterRef string) (bool, error)
	// ActiveBlock returns the block for the reporter when one applies at
	// the given instant, nil otherwise.
	ActiveBlock(ctx context.Context, reporterRef string, now time.Time) (*domain.ReportBlock, error)
	List(ctx context.Context, now time.Time) ([]domain.ReportBlock, error)
}

type blockRepository struct {
	pool *pgxpool.Pool
}

// NewBlockRepository instantiates repository.
func NewBlockRepository(pool *pgxpool.Pool) BlockRepository {
	return &blockRepository{pool: pool}
}

func (r *blockRepository) Upsert(ctx context.Context, block *domain.ReportBlock) error {
	const query = `
        INSERT INTO report_blocks (reporter_ref, created_by, reason, expires_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (reporter_ref) DO UPDATE
            SET created_by=EXCLUDED.created_by, reason=EXCLUDED.reason,
                expires_at=EXCLUDED.expires_at, created_at=NOW()
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		block.ReporterRef,
		block.CreatedBy,
		block.Reason,
		block.ExpiresAt,
	).Scan(&block.ID, &block.CreatedAt)
}

func (r *blockRepository) Remove(ctx context.Context, reporterRef string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM report_blocks WHERE reporter_ref=$1`, reporterRef)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *blockRepository) ActiveBlock(ctx context.Context, reporterRef string, now time.Time) (*domain.ReportBlock, error) {
	const query = `
        SELECT id, reporter_ref, created_by, reason, expires_at, created_at
        FROM report_blocks
        WHERE reporter_ref=$1 AND (expires_at IS NULL OR expires_at > $2)`
	var block domain.ReportBlock
	if err := r.pool.QueryRow(ctx, query, reporterRef, now).Scan(
		&block.ID,
		&block.ReporterRef,
		&block.CreatedBy,
		&block.Reason,
		&block.ExpiresAt,
		&block.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &block, nil
}

func (r *blockRepository) List(ctx context.Context, now time.Time) ([]domain.ReportBlock, error) {
	const query = `
        SELECT id, reporter_ref, created_by, reason, expires_at, created_at
        FROM report_blocks
        WHERE expires_at IS NULL OR expires_at > $1
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []domain.ReportBlock
	for rows.Next() {
		var block domain.ReportBlock
		if err := rows.Scan(
			&block.ID,
			&block.ReporterRef,
			&block.CreatedBy,
			&block.Reason,
			&block.ExpiresAt,
			&block.CreatedAt,
		); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}
