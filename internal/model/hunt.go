package model

import (
	"time"

	"github.com/google/uuid"
)

type Hunt struct {
	HuntID                  uuid.UUID
	Name                    string
	Description             string
	Icon                    string
	IsActive                bool
	PrizeDiscountPercentage *int
	CreatedAt               time.Time
	UpdatedAt               time.Time
	ClueCount               int
	Clues                   []*Clue
}

// HasPrize reports whether completing the hunt issues a credential.
func (h *Hunt) HasPrize() bool {
	return h.PrizeDiscountPercentage != nil && *h.PrizeDiscountPercentage > 0
}

type Clue struct {
	ClueID     uuid.UUID
	HuntID     uuid.UUID
	ClueNumber int
	Title      *string
	ClueText   string
	Answer     string
	Latitude   float64
	Longitude  float64
	Icon       *string
	Hint       *string
}

// WithoutAnswer returns a copy that is safe to hand to a participant.
func (c *Clue) WithoutAnswer() *Clue {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Answer = ""
	return &cp
}

type HuntUpdate struct {
	Name                    *string
	Description             *string
	Icon                    *string
	IsActive                *bool
	PrizeDiscountPercentage *int
	ClearPrize              bool
}

type ClueUpdate struct {
	Title     *string
	ClueText  *string
	Answer    *string
	Latitude  *float64
	Longitude *float64
	Icon      *string
	Hint      *string
}
