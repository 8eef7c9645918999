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
)

var redemptionColumns = []string{
	"redemption_id",
	"hunt_id",
	"user_telegram_id",
	"coupon_code",
	"merchant_id",
	"redeemed_at",
}

type redemption struct {
	RedemptionID   uuid.UUID `db:"redemption_id"`
	HuntID         uuid.UUID `db:"hunt_id"`
	UserTelegramID int64     `db:"user_telegram_id"`
	CouponCode     string    `db:"coupon_code"`
	MerchantID     string    `db:"merchant_id"`
	RedeemedAt     time.Time `db:"redeemed_at"`
}

func (r *redemption) toModel() *model.Redemption {
	return &model.Redemption{
		RedemptionID:   r.RedemptionID,
		HuntID:         r.HuntID,
		UserTelegramID: r.UserTelegramID,
		CouponCode:     r.CouponCode,
		MerchantID:     r.MerchantID,
		RedeemedAt:     r.RedeemedAt,
	}
}

// CreateRedemption records a redemption unless one already exists for the
// (hunt, user, coupon) triple. It returns the stored row and whether this
// call created it. The unique constraint is the single point of truth, so
// concurrent scans cannot both succeed.
func (r *Repository) CreateRedemption(ctx context.Context, red *model.Redemption) (*model.Redemption, bool, error) {
	var (
		stored  *model.Redemption
		created bool
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("prize_redemptions").
			SetMap(map[string]interface{}{
				"redemption_id":    red.RedemptionID,
				"hunt_id":          red.HuntID,
				"user_telegram_id": red.UserTelegramID,
				"coupon_code":      red.CouponCode,
				"merchant_id":      red.MerchantID,
				"redeemed_at":      red.RedeemedAt,
			}).
			Suffix("ON CONFLICT (hunt_id, user_telegram_id, coupon_code) DO NOTHING RETURNING " +
				strings.Join(redemptionColumns, ", ")).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build redemption insert query: %w", err)
		}

		var row redemption
		err = tx.GetContext(ctx, &row, query, args...)
		if err == nil {
			stored, created = row.toModel(), true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to insert redemption: %w", err)
		}

		existingQuery, existingArgs, err := squirrel.
			Select(redemptionColumns...).
			From("prize_redemptions").
			Where(squirrel.Eq{
				"hunt_id":          red.HuntID,
				"user_telegram_id": red.UserTelegramID,
				"coupon_code":      red.CouponCode,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build redemption query: %w", err)
		}

		if err := tx.GetContext(ctx, &row, existingQuery, existingArgs...); err != nil {
			return fmt.Errorf("failed to load existing redemption: %w", err)
		}
		stored = row.toModel()
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

func (r *Repository) ListRedemptionsByMerchant(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error) {
	query, args, err := squirrel.
		Select(redemptionColumns...).
		From("prize_redemptions").
		Where(squirrel.Eq{"merchant_id": merchantID}).
		OrderBy("redeemed_at DESC").
		Limit(limit).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []redemption
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}

	out := make([]*model.Redemption, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}

	return out, nil
}
