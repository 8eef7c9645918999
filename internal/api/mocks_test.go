package api

import (
	"context"

	"geohunt/internal/model"
	"geohunt/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCatalogService struct {
	mock.Mock
}

func (m *mockCatalogService) ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Hunt), args.Error(1)
}

func (m *mockCatalogService) GetHunt(ctx context.Context, huntID uuid.UUID, includeAnswers bool) (*model.Hunt, error) {
	args := m.Called(ctx, huntID, includeAnswers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *mockCatalogService) CreateHunt(ctx context.Context, hunt *model.Hunt) (*model.Hunt, error) {
	args := m.Called(ctx, hunt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *mockCatalogService) UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error) {
	args := m.Called(ctx, huntID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hunt), args.Error(1)
}

func (m *mockCatalogService) DeleteHunt(ctx context.Context, huntID uuid.UUID) error {
	return m.Called(ctx, huntID).Error(0)
}

func (m *mockCatalogService) AddClue(ctx context.Context, clue *model.Clue) (*model.Clue, error) {
	args := m.Called(ctx, clue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Clue), args.Error(1)
}

func (m *mockCatalogService) UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error) {
	args := m.Called(ctx, clueID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Clue), args.Error(1)
}

func (m *mockCatalogService) DeleteClue(ctx context.Context, clueID uuid.UUID) error {
	return m.Called(ctx, clueID).Error(0)
}

type mockHuntService struct {
	mock.Mock
}

func (m *mockHuntService) Start(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error) {
	args := m.Called(ctx, telegramID, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Progress), args.Error(1)
}

func (m *mockHuntService) CurrentClue(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.Clue, *model.ProgressStatus, error) {
	args := m.Called(ctx, telegramID, huntID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Clue), args.Get(1).(*model.ProgressStatus), args.Error(2)
}

func (m *mockHuntService) Solve(ctx context.Context, telegramID int64, huntID uuid.UUID, sub service.Submission) (*model.SolveResult, error) {
	args := m.Called(ctx, telegramID, huntID, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SolveResult), args.Error(1)
}

func (m *mockHuntService) GetProgress(ctx context.Context, telegramID int64, huntID uuid.UUID) (*model.ProgressStatus, error) {
	args := m.Called(ctx, telegramID, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgressStatus), args.Error(1)
}

func (m *mockHuntService) Stop(ctx context.Context, telegramID int64, huntID uuid.UUID) error {
	return m.Called(ctx, telegramID, huntID).Error(0)
}

func (m *mockHuntService) PrizeImage(ctx context.Context, telegramID int64, huntID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, telegramID, huntID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockRedemptionService struct {
	mock.Mock
}

func (m *mockRedemptionService) Redeem(ctx context.Context, merchantID, scannedPayload string) (*model.RedemptionResult, error) {
	args := m.Called(ctx, merchantID, scannedPayload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedemptionResult), args.Error(1)
}

func (m *mockRedemptionService) History(ctx context.Context, merchantID string, limit uint64) ([]*model.Redemption, error) {
	args := m.Called(ctx, merchantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Redemption), args.Error(1)
}
