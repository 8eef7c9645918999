package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"geohunt/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrProgressCompleted = errors.New("progress already completed")

var progressColumns = []string{
	"progress_id",
	"user_telegram_id",
	"hunt_id",
	"current_clue_number",
	"completed_clue_ids",
	"started_at",
	"last_activity_at",
	"completed_at",
	"prize_coupon_code",
	"prize_qr_payload",
}

type progress struct {
	ProgressID        uuid.UUID      `db:"progress_id"`
	UserTelegramID    int64          `db:"user_telegram_id"`
	HuntID            uuid.UUID      `db:"hunt_id"`
	CurrentClueNumber int            `db:"current_clue_number"`
	CompletedClueIDs  pq.StringArray `db:"completed_clue_ids"`
	StartedAt         time.Time      `db:"started_at"`
	LastActivityAt    *time.Time     `db:"last_activity_at"`
	CompletedAt       *time.Time     `db:"completed_at"`
	PrizeCouponCode   *string        `db:"prize_coupon_code"`
	PrizeQRPayload    *string        `db:"prize_qr_payload"`
}

func (p *progress) toModel() (*model.Progress, error) {
	ids := make([]uuid.UUID, len(p.CompletedClueIDs))
	for i, raw := range p.CompletedClueIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid completed clue id %q: %w", raw, err)
		}
		ids[i] = id
	}

	return &model.Progress{
		ProgressID:        p.ProgressID,
		UserTelegramID:    p.UserTelegramID,
		HuntID:            p.HuntID,
		CurrentClueNumber: p.CurrentClueNumber,
		CompletedClueIDs:  ids,
		StartedAt:         p.StartedAt,
		LastActivityAt:    p.LastActivityAt,
		CompletedAt:       p.CompletedAt,
		PrizeCouponCode:   p.PrizeCouponCode,
		PrizeQRPayload:    p.PrizeQRPayload,
	}, nil
}

func clueIDStrings(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// CreateProgress inserts a fresh progress row. When a row already exists for
// the pair, it is returned unchanged with created set to false.
func (r *Repository) CreateProgress(ctx context.Context, p *model.Progress) (*model.Progress, bool, error) {
	query, args, err := squirrel.
		Insert("hunt_progress").
		SetMap(map[string]interface{}{
			"progress_id":         p.ProgressID,
			"user_telegram_id":    p.UserTelegramID,
			"hunt_id":             p.HuntID,
			"current_clue_number": p.CurrentClueNumber,
			"completed_clue_ids":  clueIDStrings(p.CompletedClueIDs),
			"started_at":          p.StartedAt,
			"last_activity_at":    p.LastActivityAt,
		}).
		Suffix("ON CONFLICT (user_telegram_id, hunt_id) DO NOTHING RETURNING " + strings.Join(progressColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build progress insert query: %w", err)
	}

	var row progress
	err = r.db.GetContext(ctx, &row, query, args...)
	if err == nil {
		created, err := row.toModel()
		return created, true, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert progress: %w", err)
	}

	existing, err := r.GetProgress(ctx, p.UserTelegramID, p.HuntID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error) {
	return getProgress(ctx, r.db, telegramID, huntID, false)
}

func getProgress(ctx context.Context, q sqlx.QueryerContext, telegramID int64, huntID uuid.UUID, forUpdate bool) (*model.Progress, error) {
	builder := squirrel.
		Select(progressColumns...).
		From("hunt_progress").
		Where(squirrel.Eq{
			"user_telegram_id": telegramID,
			"hunt_id":          huntID,
		}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var row progress
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return row.toModel()
}

func (r *Repository) TouchProgress(ctx context.Context, telegramID int64, huntID uuid.UUID, at time.Time) error {
	query, args, err := squirrel.
		Update("hunt_progress").
		Set("last_activity_at", at).
		Where(squirrel.Eq{
			"user_telegram_id": telegramID,
			"hunt_id":          huntID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update last activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrProgressNotFound
	}

	return nil
}

// UpdateProgressLocked runs fn against a row-locked snapshot of the
// participant's progress and persists the mutated progress in the same
// transaction. An error from fn rolls everything back.
func (r *Repository) UpdateProgressLocked(
	ctx context.Context,
	telegramID int64,
	huntID uuid.UUID,
	fn func(snap *model.ProgressSnapshot) error,
) (*model.Progress, error) {
	var updated *model.Progress

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		p, err := getProgress(ctx, tx, telegramID, huntID, true)
		if err != nil {
			return err
		}

		h, err := getHunt(ctx, tx, huntID, false)
		if err != nil {
			return err
		}

		total, err := countClues(ctx, tx, huntID)
		if err != nil {
			return err
		}

		snap := &model.ProgressSnapshot{
			Progress:   p,
			Hunt:       h,
			TotalClues: total,
		}

		if !p.IsCompleted() {
			c, err := getClue(ctx, tx, squirrel.Eq{"hunt_id": huntID, "clue_number": p.CurrentClueNumber})
			switch {
			case err == nil:
				snap.CurrentClue = c
			case !errors.Is(err, ErrNotFound):
				return err
			}
		}

		if err := fn(snap); err != nil {
			return err
		}

		query, args, err := squirrel.
			Update("hunt_progress").
			SetMap(map[string]interface{}{
				"current_clue_number": snap.Progress.CurrentClueNumber,
				"completed_clue_ids":  clueIDStrings(snap.Progress.CompletedClueIDs),
				"last_activity_at":    snap.Progress.LastActivityAt,
				"completed_at":        snap.Progress.CompletedAt,
				"prize_coupon_code":   snap.Progress.PrizeCouponCode,
				"prize_qr_payload":    snap.Progress.PrizeQRPayload,
			}).
			Where(squirrel.Eq{
				"progress_id":  p.ProgressID,
				"completed_at": nil,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build progress update query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrProgressCompleted
		}

		updated = snap.Progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *Repository) DeleteProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) error {
	query, args, err := squirrel.
		Delete("hunt_progress").
		Where(squirrel.Eq{
			"user_telegram_id": telegramID,
			"hunt_id":          huntID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrProgressNotFound
	}

	return nil
}
