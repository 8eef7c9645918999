package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"geohunt/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var huntColumns = []string{
	"hunt_id",
	"name",
	"description",
	"icon",
	"is_active",
	"prize_discount_percentage",
	"created_at",
	"updated_at",
}

var clueColumns = []string{
	"clue_id",
	"hunt_id",
	"clue_number",
	"title",
	"clue_text",
	"answer",
	"latitude",
	"longitude",
	"icon",
	"hint",
}

type hunt struct {
	HuntID                  uuid.UUID `db:"hunt_id"`
	Name                    string    `db:"name"`
	Description             string    `db:"description"`
	Icon                    string    `db:"icon"`
	IsActive                bool      `db:"is_active"`
	PrizeDiscountPercentage *int      `db:"prize_discount_percentage"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
	ClueCount               int       `db:"clue_count"`
}

func (h *hunt) toModel() *model.Hunt {
	return &model.Hunt{
		HuntID:                  h.HuntID,
		Name:                    h.Name,
		Description:             h.Description,
		Icon:                    h.Icon,
		IsActive:                h.IsActive,
		PrizeDiscountPercentage: h.PrizeDiscountPercentage,
		CreatedAt:               h.CreatedAt,
		UpdatedAt:               h.UpdatedAt,
		ClueCount:               h.ClueCount,
	}
}

type clue struct {
	ClueID     uuid.UUID `db:"clue_id"`
	HuntID     uuid.UUID `db:"hunt_id"`
	ClueNumber int       `db:"clue_number"`
	Title      *string   `db:"title"`
	ClueText   string    `db:"clue_text"`
	Answer     string    `db:"answer"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	Icon       *string   `db:"icon"`
	Hint       *string   `db:"hint"`
}

func (c *clue) toModel() *model.Clue {
	return &model.Clue{
		ClueID:     c.ClueID,
		HuntID:     c.HuntID,
		ClueNumber: c.ClueNumber,
		Title:      c.Title,
		ClueText:   c.ClueText,
		Answer:     c.Answer,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Icon:       c.Icon,
		Hint:       c.Hint,
	}
}

func (r *Repository) ListHunts(ctx context.Context, activeOnly bool) ([]*model.Hunt, error) {
	clueCount := squirrel.
		Select("COUNT(*)").
		From("hunt_clues").
		Where("hunt_clues.hunt_id = hunts.hunt_id")

	builder := squirrel.
		Select(huntColumns...).
		Column(squirrel.Alias(clueCount, "clue_count")).
		From("hunts").
		OrderBy("created_at", "hunt_id").
		PlaceholderFormat(squirrel.Dollar)
	if activeOnly {
		builder = builder.Where(squirrel.Eq{"is_active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []hunt
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list hunts: %w", err)
	}

	hunts := make([]*model.Hunt, len(rows))
	for i := range rows {
		hunts[i] = rows[i].toModel()
	}

	return hunts, nil
}

func (r *Repository) GetHunt(ctx context.Context, huntID uuid.UUID) (*model.Hunt, error) {
	return getHunt(ctx, r.db, huntID, false)
}

func getHunt(ctx context.Context, q sqlx.QueryerContext, huntID uuid.UUID, forUpdate bool) (*model.Hunt, error) {
	builder := squirrel.
		Select(huntColumns...).
		From("hunts").
		Where(squirrel.Eq{"hunt_id": huntID}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var h hunt
	if err := sqlx.GetContext(ctx, q, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHuntNotFound
		}
		return nil, fmt.Errorf("failed to get hunt: %w", err)
	}

	return h.toModel(), nil
}

func (r *Repository) CreateHunt(ctx context.Context, h *model.Hunt) error {
	query, args, err := squirrel.
		Insert("hunts").
		SetMap(map[string]interface{}{
			"hunt_id":                   h.HuntID,
			"name":                      h.Name,
			"description":               h.Description,
			"icon":                      h.Icon,
			"is_active":                 h.IsActive,
			"prize_discount_percentage": h.PrizeDiscountPercentage,
			"created_at":                h.CreatedAt,
			"updated_at":                h.UpdatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build hunt insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert hunt: %w", err)
	}

	return nil
}

func (r *Repository) UpdateHunt(ctx context.Context, huntID uuid.UUID, upd model.HuntUpdate) (*model.Hunt, error) {
	set := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Icon != nil {
		set["icon"] = *upd.Icon
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.ClearPrize {
		set["prize_discount_percentage"] = nil
	} else if upd.PrizeDiscountPercentage != nil {
		set["prize_discount_percentage"] = *upd.PrizeDiscountPercentage
	}

	query, args, err := squirrel.
		Update("hunts").
		SetMap(set).
		Where(squirrel.Eq{"hunt_id": huntID}).
		Suffix("RETURNING " + strings.Join(huntColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build hunt update query: %w", err)
	}

	var h hunt
	if err := r.db.GetContext(ctx, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHuntNotFound
		}
		return nil, fmt.Errorf("failed to update hunt: %w", err)
	}

	return h.toModel(), nil
}

// DeleteHunt removes the hunt; clues, progress and redemptions cascade.
func (r *Repository) DeleteHunt(ctx context.Context, huntID uuid.UUID) error {
	query, args, err := squirrel.
		Delete("hunts").
		Where(squirrel.Eq{"hunt_id": huntID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build hunt delete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete hunt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrHuntNotFound
	}

	return nil
}

func (r *Repository) ListClues(ctx context.Context, huntID uuid.UUID) ([]*model.Clue, error) {
	query, args, err := squirrel.
		Select(clueColumns...).
		From("hunt_clues").
		Where(squirrel.Eq{"hunt_id": huntID}).
		OrderBy("clue_number").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []clue
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list clues: %w", err)
	}

	clues := make([]*model.Clue, len(rows))
	for i := range rows {
		clues[i] = rows[i].toModel()
	}

	return clues, nil
}

func (r *Repository) GetClue(ctx context.Context, clueID uuid.UUID) (*model.Clue, error) {
	return getClue(ctx, r.db, squirrel.Eq{"clue_id": clueID})
}

func (r *Repository) GetClueByNumber(ctx context.Context, huntID uuid.UUID, clueNumber int) (*model.Clue, error) {
	return getClue(ctx, r.db, squirrel.Eq{"hunt_id": huntID, "clue_number": clueNumber})
}

func getClue(ctx context.Context, q sqlx.QueryerContext, where squirrel.Eq) (*model.Clue, error) {
	query, args, err := squirrel.
		Select(clueColumns...).
		From("hunt_clues").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var c clue
	if err := sqlx.GetContext(ctx, q, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clue: %w", err)
	}

	return c.toModel(), nil
}

func (r *Repository) CountClues(ctx context.Context, huntID uuid.UUID) (int, error) {
	return countClues(ctx, r.db, huntID)
}

func countClues(ctx context.Context, q sqlx.QueryerContext, huntID uuid.UUID) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("hunt_clues").
		Where(squirrel.Eq{"hunt_id": huntID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count clues: %w", err)
	}

	return count, nil
}

// AddClue appends the clue to its hunt, assigning the next dense clue number.
func (r *Repository) AddClue(ctx context.Context, c *model.Clue) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		// serialises concurrent appends to the same hunt
		if _, err := getHunt(ctx, tx, c.HuntID, true); err != nil {
			return err
		}

		count, err := countClues(ctx, tx, c.HuntID)
		if err != nil {
			return err
		}
		c.ClueNumber = count + 1

		query, args, err := squirrel.
			Insert("hunt_clues").
			SetMap(map[string]interface{}{
				"clue_id":     c.ClueID,
				"hunt_id":     c.HuntID,
				"clue_number": c.ClueNumber,
				"title":       c.Title,
				"clue_text":   c.ClueText,
				"answer":      c.Answer,
				"latitude":    c.Latitude,
				"longitude":   c.Longitude,
				"icon":        c.Icon,
				"hint":        c.Hint,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build clue insert query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert clue: %w", err)
		}

		return nil
	})
}

func (r *Repository) UpdateClue(ctx context.Context, clueID uuid.UUID, upd model.ClueUpdate) (*model.Clue, error) {
	set := map[string]interface{}{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.ClueText != nil {
		set["clue_text"] = *upd.ClueText
	}
	if upd.Answer != nil {
		set["answer"] = *upd.Answer
	}
	if upd.Latitude != nil {
		set["latitude"] = *upd.Latitude
	}
	if upd.Longitude != nil {
		set["longitude"] = *upd.Longitude
	}
	if upd.Icon != nil {
		set["icon"] = *upd.Icon
	}
	if upd.Hint != nil {
		set["hint"] = *upd.Hint
	}
	if len(set) == 0 {
		return r.GetClue(ctx, clueID)
	}

	query, args, err := squirrel.
		Update("hunt_clues").
		SetMap(set).
		Where(squirrel.Eq{"clue_id": clueID}).
		Suffix("RETURNING " + strings.Join(clueColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build clue update query: %w", err)
	}

	var c clue
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update clue: %w", err)
	}

	return c.toModel(), nil
}

// DeleteClue removes a clue and shifts the following clues down so the
// hunt keeps a gap-free 1..N numbering.
func (r *Repository) DeleteClue(ctx context.Context, clueID uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		c, err := getClue(ctx, tx, squirrel.Eq{"clue_id": clueID})
		if err != nil {
			return err
		}

		if _, err := getHunt(ctx, tx, c.HuntID, true); err != nil {
			return err
		}

		total, err := countClues(ctx, tx, c.HuntID)
		if err != nil {
			return err
		}
		// participants standing on the last clue would be left past the end
		if c.ClueNumber == total {
			waiting, err := countOpenProgressAt(ctx, tx, c.HuntID, c.ClueNumber)
			if err != nil {
				return err
			}
			if waiting > 0 {
				return ErrClueInUse
			}
		}

		deleteQuery, deleteArgs, err := squirrel.
			Delete("hunt_clues").
			Where(squirrel.Eq{"clue_id": clueID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build clue delete query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return fmt.Errorf("failed to delete clue: %w", err)
		}

		shiftQuery, shiftArgs, err := squirrel.
			Update("hunt_clues").
			Set("clue_number", squirrel.Expr("clue_number - 1")).
			Where(squirrel.And{
				squirrel.Eq{"hunt_id": c.HuntID},
				squirrel.Gt{"clue_number": c.ClueNumber},
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build renumber query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, shiftQuery, shiftArgs...); err != nil {
			return fmt.Errorf("failed to renumber clues: %w", err)
		}

		// keep unfinished participants on the same clue after renumbering
		progressQuery, progressArgs, err := squirrel.
			Update("hunt_progress").
			Set("current_clue_number", squirrel.Expr("current_clue_number - 1")).
			Where(squirrel.And{
				squirrel.Eq{"hunt_id": c.HuntID},
				squirrel.Eq{"completed_at": nil},
				squirrel.Gt{"current_clue_number": c.ClueNumber},
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build progress renumber query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, progressQuery, progressArgs...); err != nil {
			return fmt.Errorf("failed to renumber progress: %w", err)
		}

		return nil
	})
}

func countOpenProgressAt(ctx context.Context, q sqlx.QueryerContext, huntID uuid.UUID, clueNumber int) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("hunt_progress").
		Where(squirrel.Eq{
			"hunt_id":             huntID,
			"completed_at":        nil,
			"current_clue_number": clueNumber,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count open progress: %w", err)
	}

	return count, nil
}
