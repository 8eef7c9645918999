package service

import (
	"context"
	"time"

	"geohunt/internal/model"
	"geohunt/pkg/logger"
	"geohunt/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityRecorder appends audit events. Recording is best effort: a
// failure is logged and counted, never returned to the caller.
type ActivityRecorder struct {
	repo    ActivityRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewActivityRecorder(repo ActivityRepository, m *metrics.Metrics) *ActivityRecorder {
	return &ActivityRecorder{
		repo:    repo,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (a *ActivityRecorder) Record(ctx context.Context, telegramID int64, huntID uuid.UUID, activity model.ActivityType, data map[string]any) {
	if a == nil || a.repo == nil {
		return
	}

	event := &model.ActivityEvent{
		UserTelegramID: telegramID,
		HuntID:         huntID,
		ActivityType:   activity,
		ActivityData:   data,
		CreatedAt:      a.now(),
	}

	if err := a.repo.InsertActivity(ctx, event); err != nil {
		logger.Logger().Warn("failed to record activity",
			zap.Int64("telegram_id", telegramID),
			zap.String("hunt_id", huntID.String()),
			zap.String("activity_type", string(activity)),
			zap.Error(err))
		if a.metrics != nil {
			a.metrics.ActivityFailures.Inc()
		}
	}
}
