package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geohunt/internal/model"

	"github.com/google/uuid"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrHuntNotFound         = errors.New("hunt not found")
	ErrClueNotFound         = errors.New("clue not found")
	ErrClueInUse            = errors.New("participants are still on this clue")
	ErrHuntInactive         = errors.New("hunt is not active")
	ErrNotStarted           = errors.New("hunt not started")
	ErrAlreadyCompleted     = errors.New("hunt already completed")
	ErrIncorrectAnswer      = errors.New("incorrect answer")
	ErrCatalogInconsistency = errors.New("hunt catalog is inconsistent")
	ErrNoPrize              = errors.New("no prize issued for this progress")
	ErrInvalidCredential    = errors.New("invalid credential")
	ErrCouponMismatch       = errors.New("coupon code does not match issued prize")
)

// GeofenceError rejects a submission made too far from the clue location.
type GeofenceError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("submission is %.0fm from the clue location, must be within %.0fm",
		e.DistanceMeters, e.RadiusMeters)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type CatalogServiceI interface {
	ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error)
	GetHunt(ctx context.Context, huntID uuid.UUID, includeAnswers bool) (*model.Hunt, error)
	CreateHunt(ctx context.Context, hunt *model.Hunt) (*model.Hunt, error)
	UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error)
	DeleteHunt(ctx context.Context, huntID uuid.UUID) error
	AddClue(ctx context.Context, clue *model.Clue) (*model.Clue, error)
	UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error)
	DeleteClue(ctx context.Context, clueID uuid.UUID) error
}

type CatalogRepository interface {
	ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error)
	GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error)
	CreateHunt(ctx context.Context, hunt *model.Hunt) error
	UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error)
	DeleteHunt(ctx context.Context, huntID uuid.UUID) error
	ListClues(ctx context.Context, huntID uuid.UUID) ([]*model.Clue, error)
	AddClue(ctx context.Context, clue *model.Clue) error
	UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error)
	DeleteClue(ctx context.Context, clueID uuid.UUID) error
}

type HuntServiceI interface {
	Start(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error)
	CurrentClue(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Clue, *model.ProgressStatus, error)
	Solve(ctx context.Context, telegramID int64, huntID uuid.UUID, sub Submission) (*model.SolveResult, error)
	GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.ProgressStatus, error)
	Stop(ctx context.Context, telegramID int64, huntID uuid.UUID) error
	PrizeImage(ctx context.Context, telegramID int64, huntID uuid.UUID) ([]byte, error)
}

type HuntRepository interface {
	GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error)
	GetClueByNumber(ctx context.Context, huntID uuid.UUID, clueNumber int) (*model.Clue, error)
	CountClues(ctx context.Context, huntID uuid.UUID) (int, error)
	CreateProgress(ctx context.Context, p *model.Progress) (*model.Progress, bool, error)
	GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error)
	TouchProgress(ctx context.Context, telegramID int64, huntID uuid.UUID, at time.Time) error
	UpdateProgressLocked(ctx context.Context, telegramID int64, huntID uuid.UUID, fn func(snap *model.ProgressSnapshot) error) (*model.Progress, error)
	DeleteProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) error
}

type ActivityRepository interface {
	InsertActivity(ctx context.Context, event *model.ActivityEvent) error
}

type RedemptionServiceI interface {
	Redeem(ctx context.Context, merchantID, scannedPayload string) (*model.RedemptionResult, error)
	History(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error)
}

type RedemptionRepository interface {
	GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error)
	GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error)
	CreateRedemption(ctx context.Context, red *model.Redemption) (*model.Redemption, bool, error)
	ListRedemptionsByMerchant(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error)
}
