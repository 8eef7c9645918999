package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"geohunt/internal/model"
	"geohunt/internal/repository"
	"geohunt/pkg/credential"

	"github.com/google/uuid"
)

type progressKey struct {
	telegramID int64
	huntID     uuid.UUID
}

// memStore mimics the Postgres store: one mutex stands in for the row lock.
type memStore struct {
	mu       sync.Mutex
	hunts    map[uuid.UUID]*model.Hunt
	clues    map[uuid.UUID][]*model.Clue
	progress map[progressKey]*model.Progress
}

func newMemStore() *memStore {
	return &memStore{
		hunts:    make(map[uuid.UUID]*model.Hunt),
		clues:    make(map[uuid.UUID][]*model.Clue),
		progress: make(map[progressKey]*model.Progress),
	}
}

func (m *memStore) addHunt(h *model.Hunt, clues ...*model.Clue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hunts[h.HuntID] = h
	for _, c := range clues {
		c.HuntID = h.HuntID
		if c.ClueID == uuid.Nil {
			c.ClueID = uuid.New()
		}
	}
	sort.Slice(clues, func(i, j int) bool { return clues[i].ClueNumber < clues[j].ClueNumber })
	m.clues[h.HuntID] = clues
}

func (m *memStore) GetHunt(_ context.Context, huntID uuid.UUID) (*model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hunt(huntID)
}

func (m *memStore) hunt(huntID uuid.UUID) (*model.Hunt, error) {
	h, ok := m.hunts[huntID]
	if !ok {
		return nil, repository.ErrHuntNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memStore) GetClueByNumber(_ context.Context, huntID uuid.UUID, clueNumber int) (*model.Clue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clue(huntID, clueNumber)
}

func (m *memStore) clue(huntID uuid.UUID, clueNumber int) (*model.Clue, error) {
	for _, c := range m.clues[huntID] {
		if c.ClueNumber == clueNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CountClues(_ context.Context, huntID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clues[huntID]), nil
}

func (m *memStore) CreateProgress(_ context.Context, p *model.Progress) (*model.Progress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey{p.UserTelegramID, p.HuntID}
	if existing, ok := m.progress[key]; ok {
		return copyProgress(existing), false, nil
	}
	m.progress[key] = copyProgress(p)
	return copyProgress(p), true, nil
}

func (m *memStore) GetProgress(_ context.Context, telegramID int64, huntID uuid.UUID) (*model.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressKey{telegramID, huntID}]
	if !ok {
		return nil, repository.ErrProgressNotFound
	}
	return copyProgress(p), nil
}

func (m *memStore) TouchProgress(_ context.Context, telegramID int64, huntID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressKey{telegramID, huntID}]
	if !ok {
		return repository.ErrProgressNotFound
	}
	p.LastActivityAt = &at
	return nil
}

func (m *memStore) UpdateProgressLocked(_ context.Context, telegramID int64, huntID uuid.UUID, fn func(*model.ProgressSnapshot) error) (*model.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.progress[progressKey{telegramID, huntID}]
	if !ok {
		return nil, repository.ErrProgressNotFound
	}
	h, err := m.hunt(huntID)
	if err != nil {
		return nil, err
	}

	snap := &model.ProgressSnapshot{
		Progress:   copyProgress(stored),
		Hunt:       h,
		TotalClues: len(m.clues[huntID]),
	}
	if !stored.IsCompleted() {
		if c, err := m.clue(huntID, stored.CurrentClueNumber); err == nil {
			snap.CurrentClue = c
		}
	}

	if err := fn(snap); err != nil {
		return nil, err
	}
	if stored.IsCompleted() {
		return nil, repository.ErrProgressCompleted
	}

	m.progress[progressKey{telegramID, huntID}] = copyProgress(snap.Progress)
	return snap.Progress, nil
}

func (m *memStore) DeleteProgress(_ context.Context, telegramID int64, huntID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey{telegramID, huntID}
	if _, ok := m.progress[key]; !ok {
		return repository.ErrProgressNotFound
	}
	delete(m.progress, key)
	return nil
}

func copyProgress(p *model.Progress) *model.Progress {
	cp := *p
	cp.CompletedClueIDs = append([]uuid.UUID(nil), p.CompletedClueIDs...)
	return &cp
}

type memActivity struct {
	mu     sync.Mutex
	events []*model.ActivityEvent
}

func (a *memActivity) InsertActivity(_ context.Context, event *model.ActivityEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *memActivity) types() []model.ActivityType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.ActivityType, len(a.events))
	for i, e := range a.events {
		out[i] = e.ActivityType
	}
	return out
}

type countingIssuer struct {
	*credential.Issuer
	issued atomic.Int32
}

func newCountingIssuer() *countingIssuer {
	return &countingIssuer{Issuer: credential.NewIssuer(stubRenderer{})}
}

func (c *countingIssuer) Issue(huntID uuid.UUID, userID int64, discount int) (*credential.Credential, error) {
	c.issued.Add(1)
	return c.Issuer.Issue(huntID, userID, discount)
}

type stubRenderer struct{}

func (stubRenderer) Render(payload string) ([]byte, error) {
	return []byte("qr:" + payload), nil
}
