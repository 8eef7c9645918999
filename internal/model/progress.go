package model

import (
	"time"

	"github.com/google/uuid"
)

type Progress struct {
	ProgressID        uuid.UUID
	UserTelegramID    int64
	HuntID            uuid.UUID
	CurrentClueNumber int
	CompletedClueIDs  []uuid.UUID
	StartedAt         time.Time
	LastActivityAt    *time.Time
	CompletedAt       *time.Time
	PrizeCouponCode   *string
	PrizeQRPayload    *string
}

func (p *Progress) IsCompleted() bool {
	return p.CompletedAt != nil
}

type ProgressStatus struct {
	Progress   *Progress
	Hunt       *Hunt
	TotalClues int
}

type SolveResult struct {
	Progress       *Progress
	NextClue       *Clue
	Completed      bool
	PrizeGenerated bool
	TotalClues     int
}

// ProgressSnapshot is the locked view of one participant's hunt handed to a
// progress transition. Mutations to Progress are persisted on success.
type ProgressSnapshot struct {
	Progress    *Progress
	Hunt        *Hunt
	TotalClues  int
	CurrentClue *Clue
}
