package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geohunt/internal/model"
	"geohunt/internal/repository"
	"geohunt/pkg/credential"
	"geohunt/pkg/logger"
	"geohunt/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// RedemptionService validates scanned prize credentials for merchants.
// Claims embedded in the payload are never trusted: completion and the
// coupon code are checked against stored progress.
type RedemptionService struct {
	repo    RedemptionRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRedemptionService(repo RedemptionRepository, m *metrics.Metrics) *RedemptionService {
	return &RedemptionService{
		repo:    repo,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedemptionService) Redeem(ctx context.Context, merchantID, scannedPayload string) (*model.RedemptionResult, error) {
	if merchantID == "" {
		return nil, validationError("merchant identity is required")
	}

	result, err := s.redeem(ctx, merchantID, scannedPayload)
	s.count(result, err)
	return result, err
}

func (s *RedemptionService) redeem(ctx context.Context, merchantID, scannedPayload string) (*model.RedemptionResult, error) {
	payload, err := credential.Decode(scannedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	progress, err := s.repo.GetProgress(ctx, payload.UserID, payload.HuntID)
	if err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			return nil, ErrNotStarted
		}
		return nil, fmt.Errorf("redemption store: %w", err)
	}
	if !progress.IsCompleted() {
		return nil, ErrNotStarted
	}
	if progress.PrizeCouponCode == nil || *progress.PrizeCouponCode != payload.CouponCode {
		logger.Logger().Warn("scanned coupon does not match issued prize",
			zap.String("merchant_id", merchantID),
			zap.String("hunt_id", payload.HuntID.String()),
			zap.Int64("telegram_id", payload.UserID))
		return nil, ErrCouponMismatch
	}

	hunt, err := s.repo.GetHunt(ctx, payload.HuntID)
	if err != nil {
		if errors.Is(err, repository.ErrHuntNotFound) {
			return nil, ErrHuntNotFound
		}
		return nil, fmt.Errorf("redemption store: %w", err)
	}

	stored, created, err := s.repo.CreateRedemption(ctx, &model.Redemption{
		RedemptionID:   uuid.New(),
		HuntID:         payload.HuntID,
		UserTelegramID: payload.UserID,
		CouponCode:     payload.CouponCode,
		MerchantID:     merchantID,
		RedeemedAt:     s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("redemption store: %w", err)
	}

	return &model.RedemptionResult{
		Redemption:         stored,
		AlreadyRedeemed:    !created,
		HuntName:           hunt.Name,
		DiscountPercentage: issuedDiscount(progress, hunt),
	}, nil
}

// issuedDiscount reads the discount from the credential stored at
// completion, falling back to the hunt's current setting.
func issuedDiscount(progress *model.Progress, hunt *model.Hunt) int {
	if progress.PrizeQRPayload != nil {
		if issued, err := credential.Decode(*progress.PrizeQRPayload); err == nil && issued.DiscountPercentage > 0 {
			return issued.DiscountPercentage
		}
	}
	if hunt.PrizeDiscountPercentage != nil {
		return *hunt.PrizeDiscountPercentage
	}
	return 0
}

func (s *RedemptionService) History(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error) {
	if limit == 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	redemptions, err := s.repo.ListRedemptionsByMerchant(ctx, merchantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	return redemptions, nil
}

func (s *RedemptionService) count(result *model.RedemptionResult, err error) {
	if s.metrics == nil {
		return
	}

	label := "redeemed"
	switch {
	case err != nil && errors.Is(err, ErrInvalidCredential):
		label = "invalid"
	case err != nil && errors.Is(err, ErrCouponMismatch):
		label = "mismatch"
	case err != nil && errors.Is(err, ErrNotStarted):
		label = "not_completed"
	case err != nil:
		label = "error"
	case result.AlreadyRedeemed:
		label = "already_redeemed"
	}
	s.metrics.Redemptions.WithLabelValues(label).Inc()
}
