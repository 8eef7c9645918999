package repository

import (
	"context"
	"fmt"

	"geohunt/pkg/logger"

	"go.uber.org/zap"
)

var schemaTables = []string{
	`CREATE TABLE IF NOT EXISTS hunts (
		hunt_id     UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon        TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS hunt_clues (
		clue_id     UUID PRIMARY KEY,
		hunt_id     UUID NOT NULL REFERENCES hunts(hunt_id) ON DELETE CASCADE,
		clue_number INTEGER NOT NULL CHECK (clue_number > 0),
		title       TEXT,
		clue_text   TEXT NOT NULL,
		answer      TEXT NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		icon        TEXT,
		hint        TEXT,
		CONSTRAINT hunt_clues_number_key UNIQUE (hunt_id, clue_number) DEFERRABLE INITIALLY DEFERRED
	)`,
	`CREATE TABLE IF NOT EXISTS hunt_progress (
		progress_id         UUID PRIMARY KEY,
		user_telegram_id    BIGINT NOT NULL,
		hunt_id             UUID NOT NULL REFERENCES hunts(hunt_id) ON DELETE CASCADE,
		current_clue_number INTEGER NOT NULL DEFAULT 1,
		completed_clue_ids  TEXT[] NOT NULL DEFAULT '{}',
		started_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at        TIMESTAMPTZ,
		CONSTRAINT hunt_progress_user_hunt_key UNIQUE (user_telegram_id, hunt_id)
	)`,
	`CREATE TABLE IF NOT EXISTS hunt_activity (
		activity_id      BIGSERIAL PRIMARY KEY,
		user_telegram_id BIGINT NOT NULL,
		hunt_id          UUID NOT NULL,
		activity_type    TEXT NOT NULL,
		activity_data    JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS prize_redemptions (
		redemption_id    UUID PRIMARY KEY,
		hunt_id          UUID NOT NULL REFERENCES hunts(hunt_id) ON DELETE CASCADE,
		user_telegram_id BIGINT NOT NULL,
		coupon_code      TEXT NOT NULL,
		merchant_id      TEXT NOT NULL,
		redeemed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT prize_redemptions_credential_key UNIQUE (hunt_id, user_telegram_id, coupon_code)
	)`,
}

// Columns added after the first deployment. Runtime queries assume they exist.
var schemaColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"hunts", "prize_discount_percentage", "INTEGER CHECK (prize_discount_percentage BETWEEN 1 AND 100)"},
	{"hunt_progress", "last_activity_at", "TIMESTAMPTZ"},
	{"hunt_progress", "prize_coupon_code", "TEXT"},
	{"hunt_progress", "prize_qr_payload", "TEXT"},
}

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS hunt_activity_user_hunt_idx ON hunt_activity (user_telegram_id, hunt_id)`,
	`CREATE INDEX IF NOT EXISTS prize_redemptions_merchant_idx ON prize_redemptions (merchant_id, redeemed_at DESC)`,
}

// EnsureSchema brings the database up to the current schema. It is safe to
// run on every start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	log := logger.Logger()

	for _, stmt := range schemaTables {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, c := range schemaColumns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.table, c.column, c.ddl)
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", c.table, c.column, err)
		}
	}

	for _, stmt := range schemaIndexes {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Info("database schema is up to date",
		zap.Int("tables", len(schemaTables)),
		zap.Int("optional_columns", len(schemaColumns)))

	return nil
}
