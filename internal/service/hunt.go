package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geohunt/internal/model"
	"geohunt/internal/repository"
	"geohunt/pkg/credential"
	"geohunt/pkg/geo"
	"geohunt/pkg/logger"
	"geohunt/pkg/metrics"
	"geohunt/pkg/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultGeofenceRadius is how close, in meters, a participant must stand
// to a clue's location for an answer to be accepted.
const DefaultGeofenceRadius = 100.0

type Submission struct {
	Answer    string
	Latitude  float64
	Longitude float64
}

type CredentialIssuer interface {
	Issue(huntID uuid.UUID, userID int64, discount int) (*credential.Credential, error)
	Render(payload string) ([]byte, error)
}

// HuntService owns the per-participant progress state machine:
// not started -> in progress(clue n) -> completed.
type HuntService struct {
	repo     HuntRepository
	issuer   CredentialIssuer
	activity *ActivityRecorder
	notifier notify.PrizeNotifier
	metrics  *metrics.Metrics
	radius   float64
	now      func() time.Time
}

func NewHuntService(
	repo HuntRepository,
	issuer CredentialIssuer,
	activity *ActivityRecorder,
	notifier notify.PrizeNotifier,
	m *metrics.Metrics,
	geofenceRadius float64,
) *HuntService {
	if geofenceRadius <= 0 {
		geofenceRadius = DefaultGeofenceRadius
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &HuntService{
		repo:     repo,
		issuer:   issuer,
		activity: activity,
		notifier: notifier,
		metrics:  m,
		radius:   geofenceRadius,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the hunt for the participant. Starting a hunt that already
// has progress returns the existing progress unchanged.
func (s *HuntService) Start(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error) {
	hunt, err := s.repo.GetHunt(ctx, huntID)
	if err != nil {
		return nil, mapHuntError(err)
	}
	if !hunt.IsActive {
		return nil, ErrHuntInactive
	}

	now := s.now()
	progress, created, err := s.repo.CreateProgress(ctx, &model.Progress{
		ProgressID:        uuid.New(),
		UserTelegramID:    telegramID,
		HuntID:            huntID,
		CurrentClueNumber: 1,
		CompletedClueIDs:  []uuid.UUID{},
		StartedAt:         now,
		LastActivityAt:    &now,
	})
	if err != nil {
		return nil, mapHuntError(err)
	}

	if created {
		if s.metrics != nil {
			s.metrics.HuntsStarted.Inc()
		}
		s.activity.Record(ctx, telegramID, huntID, model.ActivityHuntStarted, nil)
	} else {
		s.activity.Record(ctx, telegramID, huntID, model.ActivityHuntResumed, map[string]any{
			"current_clue_number": progress.CurrentClueNumber,
			"completed":           progress.IsCompleted(),
		})
	}

	return progress, nil
}

// CurrentClue returns the next unsolved clue with its answer withheld.
func (s *HuntService) CurrentClue(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Clue, *model.ProgressStatus, error) {
	progress, err := s.repo.GetProgress(ctx, telegramID, huntID)
	if err != nil {
		return nil, nil, mapHuntError(err)
	}
	if progress.IsCompleted() {
		return nil, nil, ErrAlreadyCompleted
	}

	clue, err := s.repo.GetClueByNumber(ctx, huntID, progress.CurrentClueNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrClueNotFound
		}
		return nil, nil, mapHuntError(err)
	}

	status, err := s.status(ctx, progress)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if err := s.repo.TouchProgress(ctx, telegramID, huntID, now); err != nil {
		return nil, nil, mapHuntError(err)
	}
	progress.LastActivityAt = &now

	s.activity.Record(ctx, telegramID, huntID, model.ActivityClueViewed, map[string]any{
		"clue_number": clue.ClueNumber,
	})

	return clue.WithoutAnswer(), status, nil
}

// Solve checks the submission against the current clue and advances the
// participant's progress. The whole transition runs under a row lock, so
// concurrent submissions advance the progress at most once and the prize
// credential is issued at most once.
func (s *HuntService) Solve(ctx context.Context, telegramID int64, huntID uuid.UUID, sub Submission) (*model.SolveResult, error) {
	position := geo.Point{Latitude: sub.Latitude, Longitude: sub.Longitude}
	if err := position.Validate(); err != nil {
		return nil, validationError("%v", err)
	}

	var (
		hunt       *model.Hunt
		solved     *model.Clue
		totalClues int
		completed  bool
		issued     *credential.Credential
	)

	progress, err := s.repo.UpdateProgressLocked(ctx, telegramID, huntID, func(snap *model.ProgressSnapshot) error {
		p := snap.Progress
		if p.IsCompleted() {
			return ErrAlreadyCompleted
		}

		clue := snap.CurrentClue
		if clue == nil {
			return fmt.Errorf("%w: hunt %s has no clue number %d", ErrCatalogInconsistency, huntID, p.CurrentClueNumber)
		}

		within, distance, err := geo.Within(position, geo.Point{Latitude: clue.Latitude, Longitude: clue.Longitude}, s.radius)
		if err != nil {
			return fmt.Errorf("%w: clue %s: %v", ErrCatalogInconsistency, clue.ClueID, err)
		}
		if !within {
			return &GeofenceError{DistanceMeters: distance, RadiusMeters: s.radius}
		}

		if !MatchAnswer(sub.Answer, clue.Answer) {
			return ErrIncorrectAnswer
		}

		now := s.now()
		p.CompletedClueIDs = append(p.CompletedClueIDs, clue.ClueID)
		p.LastActivityAt = &now

		hunt = snap.Hunt
		solved = clue
		totalClues = snap.TotalClues

		if p.CurrentClueNumber < snap.TotalClues {
			p.CurrentClueNumber++
			return nil
		}

		p.CompletedAt = &now
		completed = true

		if snap.Hunt.HasPrize() {
			cred, err := s.issuer.Issue(huntID, telegramID, *snap.Hunt.PrizeDiscountPercentage)
			if err != nil {
				return fmt.Errorf("failed to issue prize credential: %w", err)
			}
			p.PrizeCouponCode = &cred.CouponCode
			p.PrizeQRPayload = &cred.Payload
			issued = cred
		}

		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, mapHuntError(err)
	}

	if s.metrics != nil {
		s.metrics.CluesSolved.Inc()
	}

	result := &model.SolveResult{
		Progress:       progress,
		Completed:      completed,
		PrizeGenerated: issued != nil,
		TotalClues:     totalClues,
	}

	if completed {
		s.activity.Record(ctx, telegramID, huntID, model.ActivityHuntCompleted, map[string]any{
			"clue_number":     solved.ClueNumber,
			"prize_generated": issued != nil,
		})
		if s.metrics != nil {
			s.metrics.HuntsCompleted.WithLabelValues(fmt.Sprint(issued != nil)).Inc()
		}
		if issued != nil {
			s.deliverPrize(ctx, telegramID, hunt, issued)
		}
		return result, nil
	}

	s.activity.Record(ctx, telegramID, huntID, model.ActivityClueSolved, map[string]any{
		"clue_number": solved.ClueNumber,
	})

	next, err := s.repo.GetClueByNumber(ctx, huntID, progress.CurrentClueNumber)
	switch {
	case err == nil:
		result.NextClue = next.WithoutAnswer()
	case errors.Is(err, repository.ErrNotFound):
		logger.Logger().Error("next clue is missing from catalog",
			zap.String("hunt_id", huntID.String()),
			zap.Int("clue_number", progress.CurrentClueNumber))
	default:
		logger.Logger().Warn("failed to load next clue",
			zap.String("hunt_id", huntID.String()),
			zap.Error(err))
	}

	return result, nil
}

func (s *HuntService) GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.ProgressStatus, error) {
	progress, err := s.repo.GetProgress(ctx, telegramID, huntID)
	if err != nil {
		return nil, mapHuntError(err)
	}
	return s.status(ctx, progress)
}

// Stop abandons the hunt so the participant can start over.
func (s *HuntService) Stop(ctx context.Context, telegramID int64, huntID uuid.UUID) error {
	if err := s.repo.DeleteProgress(ctx, telegramID, huntID); err != nil {
		return mapHuntError(err)
	}
	return nil
}

// PrizeImage renders the stored prize credential as a QR code image.
func (s *HuntService) PrizeImage(ctx context.Context, telegramID int64, huntID uuid.UUID) ([]byte, error) {
	progress, err := s.repo.GetProgress(ctx, telegramID, huntID)
	if err != nil {
		return nil, mapHuntError(err)
	}
	if !progress.IsCompleted() || progress.PrizeQRPayload == nil {
		return nil, ErrNoPrize
	}

	png, err := s.issuer.Render(*progress.PrizeQRPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to render prize: %w", err)
	}
	return png, nil
}

func (s *HuntService) status(ctx context.Context, progress *model.Progress) (*model.ProgressStatus, error) {
	hunt, err := s.repo.GetHunt(ctx, progress.HuntID)
	if err != nil {
		return nil, mapHuntError(err)
	}

	total, err := s.repo.CountClues(ctx, progress.HuntID)
	if err != nil {
		return nil, mapHuntError(err)
	}

	return &model.ProgressStatus{
		Progress:   progress,
		Hunt:       hunt,
		TotalClues: total,
	}, nil
}

func (s *HuntService) deliverPrize(ctx context.Context, telegramID int64, hunt *model.Hunt, cred *credential.Credential) {
	err := s.notifier.SendPrize(ctx, telegramID, notify.Prize{
		HuntName:           hunt.Name,
		CouponCode:         cred.CouponCode,
		DiscountPercentage: *hunt.PrizeDiscountPercentage,
		QRCode:             cred.QRCode,
	})
	if err != nil {
		logger.Logger().Warn("failed to deliver prize",
			zap.Int64("telegram_id", telegramID),
			zap.String("hunt_id", hunt.HuntID.String()),
			zap.Error(err))
	}
}

func (s *HuntService) countRejection(err error) {
	if s.metrics == nil {
		return
	}

	var geoErr *GeofenceError
	reason := ""
	switch {
	case errors.As(err, &geoErr):
		reason = "geofence"
	case errors.Is(err, ErrIncorrectAnswer):
		reason = "incorrect_answer"
	case errors.Is(err, ErrAlreadyCompleted), errors.Is(err, repository.ErrProgressCompleted):
		reason = "already_completed"
	case errors.Is(err, repository.ErrProgressNotFound):
		reason = "not_started"
	default:
		return
	}
	s.metrics.SolveRejections.WithLabelValues(reason).Inc()
}

func mapHuntError(err error) error {
	var geoErr *GeofenceError
	switch {
	case errors.As(err, &geoErr),
		errors.Is(err, ErrAlreadyCompleted),
		errors.Is(err, ErrIncorrectAnswer),
		errors.Is(err, ErrCatalogInconsistency),
		errors.Is(err, ErrValidation):
		return err
	case errors.Is(err, repository.ErrProgressNotFound):
		return ErrNotStarted
	case errors.Is(err, repository.ErrProgressCompleted):
		return ErrAlreadyCompleted
	case errors.Is(err, repository.ErrHuntNotFound):
		return ErrHuntNotFound
	default:
		return fmt.Errorf("progress store: %w", err)
	}
}
