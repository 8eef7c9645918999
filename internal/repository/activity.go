package repository

import (
	"context"
	"fmt"

	"geohunt/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
)

func (r *Repository) InsertActivity(ctx context.Context, event *model.ActivityEvent) error {
	var data interface{}
	if len(event.ActivityData) > 0 {
		raw, err := json.Marshal(event.ActivityData)
		if err != nil {
			return fmt.Errorf("failed to encode activity data: %w", err)
		}
		data = string(raw)
	}

	query, args, err := squirrel.
		Insert("hunt_activity").
		Columns("user_telegram_id", "hunt_id", "activity_type", "activity_data", "created_at").
		Values(event.UserTelegramID, event.HuntID, string(event.ActivityType), data, event.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build activity insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}
