package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geohunt/internal/model"
	"geohunt/internal/repository"
	"geohunt/pkg/geo"

	"github.com/google/uuid"
)

type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

func (s *CatalogService) ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error) {
	hunts, err := s.repo.ListHunts(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list hunts: %w", err)
	}
	return hunts, nil
}

// GetHunt returns the hunt with its clues ordered by clue number. Answers
// are withheld unless includeAnswers is set.
func (s *CatalogService) GetHunt(ctx context.Context, huntID uuid.UUID, includeAnswers bool) (*model.Hunt, error) {
	hunt, err := s.repo.GetHunt(ctx, huntID)
	if err != nil {
		return nil, mapCatalogError(err)
	}

	clues, err := s.repo.ListClues(ctx, huntID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clues: %w", err)
	}

	if !includeAnswers {
		for i, c := range clues {
			clues[i] = c.WithoutAnswer()
		}
	}
	hunt.Clues = clues
	hunt.ClueCount = len(clues)

	return hunt, nil
}

func (s *CatalogService) CreateHunt(ctx context.Context, hunt *model.Hunt) (*model.Hunt, error) {
	hunt.Name = strings.TrimSpace(hunt.Name)
	if hunt.Name == "" {
		return nil, validationError("hunt name is required")
	}
	if err := validateDiscount(hunt.PrizeDiscountPercentage); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if hunt.HuntID == uuid.Nil {
		hunt.HuntID = uuid.New()
	}
	hunt.CreatedAt = now
	hunt.UpdatedAt = now

	if err := s.repo.CreateHunt(ctx, hunt); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, validationError("hunt %s already exists", hunt.HuntID)
		}
		return nil, fmt.Errorf("failed to create hunt: %w", err)
	}

	return hunt, nil
}

func (s *CatalogService) UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validationError("hunt name cannot be empty")
		}
		upd.Name = &name
	}
	if !upd.ClearPrize {
		if err := validateDiscount(upd.PrizeDiscountPercentage); err != nil {
			return nil, err
		}
	}

	hunt, err := s.repo.UpdateHunt(ctx, huntID, upd)
	if err != nil {
		return nil, mapCatalogError(err)
	}
	return hunt, nil
}

func (s *CatalogService) DeleteHunt(ctx context.Context, huntID uuid.UUID) error {
	if err := s.repo.DeleteHunt(ctx, huntID); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

// AddClue appends a clue at the end of the hunt; the store assigns the
// clue number so numbering stays dense.
func (s *CatalogService) AddClue(ctx context.Context, clue *model.Clue) (*model.Clue, error) {
	if strings.TrimSpace(clue.ClueText) == "" {
		return nil, validationError("clue text is required")
	}
	if strings.TrimSpace(clue.Answer) == "" {
		return nil, validationError("answer is required")
	}
	if err := (geo.Point{Latitude: clue.Latitude, Longitude: clue.Longitude}).Validate(); err != nil {
		return nil, validationError("%v", err)
	}

	if clue.ClueID == uuid.Nil {
		clue.ClueID = uuid.New()
	}

	if err := s.repo.AddClue(ctx, clue); err != nil {
		return nil, mapCatalogError(err)
	}
	return clue, nil
}

func (s *CatalogService) UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error) {
	if upd.ClueText != nil && strings.TrimSpace(*upd.ClueText) == "" {
		return nil, validationError("clue text cannot be empty")
	}
	if upd.Answer != nil && strings.TrimSpace(*upd.Answer) == "" {
		return nil, validationError("answer cannot be empty")
	}
	if upd.Latitude != nil || upd.Longitude != nil {
		p := geo.Point{}
		if upd.Latitude != nil {
			p.Latitude = *upd.Latitude
		}
		if upd.Longitude != nil {
			p.Longitude = *upd.Longitude
		}
		if err := p.Validate(); err != nil {
			return nil, validationError("%v", err)
		}
	}

	clue, err := s.repo.UpdateClue(ctx, clueID, upd)
	if err != nil {
		return nil, mapCatalogError(err)
	}
	return clue, nil
}

func (s *CatalogService) DeleteClue(ctx context.Context, clueID uuid.UUID) error {
	if err := s.repo.DeleteClue(ctx, clueID); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

func validateDiscount(discount *int) error {
	if discount == nil {
		return nil
	}
	if *discount <= 0 || *discount > 100 {
		return validationError("prize discount must be between 1 and 100, got %d", *discount)
	}
	return nil
}

func mapCatalogError(err error) error {
	switch {
	case errors.Is(err, repository.ErrHuntNotFound):
		return ErrHuntNotFound
	case errors.Is(err, repository.ErrNotFound):
		return ErrClueNotFound
	case errors.Is(err, repository.ErrClueInUse):
		return ErrClueInUse
	default:
		return fmt.Errorf("catalog store: %w", err)
	}
}
