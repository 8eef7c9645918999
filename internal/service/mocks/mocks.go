package mocks

import (
	"context"

	"geohunt/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Hunt), args.Error(1)
}

func (m *MockCatalogRepository) GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error) {
	args := m.Called(ctx, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *MockCatalogRepository) CreateHunt(ctx context.Context, hunt *model.Hunt) error {
	args := m.Called(ctx, hunt)
	return args.Error(0)
}

func (m *MockCatalogRepository) UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error) {
	args := m.Called(ctx, huntID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *MockCatalogRepository) DeleteHunt(ctx context.Context, huntID uuid.UUID) error {
	args := m.Called(ctx, huntID)
	return args.Error(0)
}

func (m *MockCatalogRepository) ListClues(ctx context.Context, huntID uuid.UUID) ([]*model.Clue, error) {
	args := m.Called(ctx, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Clue), args.Error(1)
}

func (m *MockCatalogRepository) AddClue(ctx context.Context, clue *model.Clue) error {
	args := m.Called(ctx, clue)
	return args.Error(0)
}

func (m *MockCatalogRepository) UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error) {
	args := m.Called(ctx, clueID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Clue), args.Error(1)
}

func (m *MockCatalogRepository) DeleteClue(ctx context.Context, clueID uuid.UUID) error {
	args := m.Called(ctx, clueID)
	return args.Error(0)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) InsertActivity(ctx context.Context, event *model.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRedemptionRepository struct {
	mock.Mock
}

func (m *MockRedemptionRepository) GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error) {
	args := m.Called(ctx, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *MockRedemptionRepository) GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error) {
	args := m.Called(ctx, telegramID, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Progress), args.Error(1)
}

func (m *MockRedemptionRepository) CreateRedemption(ctx context.Context, red *model.Redemption) (*model.Redemption, bool, error) {
	args := m.Called(ctx, red)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Redemption), args.Bool(1), args.Error(2)
}

func (m *MockRedemptionRepository) ListRedemptionsByMerchant(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error) {
	args := m.Called(ctx, merchantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Redemption), args.Error(1)
}
