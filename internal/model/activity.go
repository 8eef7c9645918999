package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityHuntStarted   ActivityType = "hunt_started"
	ActivityHuntResumed   ActivityType = "hunt_resumed"
	ActivityClueViewed    ActivityType = "clue_viewed"
	ActivityClueSolved    ActivityType = "clue_solved"
	ActivityHuntCompleted ActivityType = "hunt_completed"
)

type ActivityEvent struct {
	UserTelegramID int64
	HuntID         uuid.UUID
	ActivityType   ActivityType
	ActivityData   map[string]any
	CreatedAt      time.Time
}
