package db

import (
	"context"
	"fmt"
)

// Миграции применяются по порядку; каждая идемпотентна
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		telegram_id BIGINT UNIQUE,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		location TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		price_min DOUBLE PRECISION,
		price_max DOUBLE PRECISION,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'removed')),
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		looking_for_categories TEXT[] NOT NULL DEFAULT '{}',
		looking_for_conditions TEXT[] NOT NULL DEFAULT '{}',
		looking_for_price_min DOUBLE PRECISION,
		looking_for_price_max DOUBLE PRECISION,
		looking_for_text TEXT NOT NULL DEFAULT '',
		image_urls TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_candidates ON items (created_at DESC)
		WHERE status = 'published' AND is_available AND NOT is_hidden`,
	`CREATE TABLE IF NOT EXISTS item_likes (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS item_rejections (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		my_item_id UUID REFERENCES items(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_item_rejections ON item_rejections
		(user_id, item_id, COALESCE(my_item_id, '00000000-0000-0000-0000-000000000000'::uuid))`,
	`CREATE TABLE IF NOT EXISTS user_blocks (
		blocker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		blocked_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (blocker_id, blocked_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked ON user_blocks (blocked_id)`,
	`CREATE TABLE IF NOT EXISTS trade_conversations (
		id UUID PRIMARY KEY,
		requester_id UUID NOT NULL REFERENCES users(id),
		owner_id UUID NOT NULL REFERENCES users(id),
		requester_item_ids UUID[] NOT NULL,
		owner_item_ids UUID[] NOT NULL,
		requester_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		owner_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'completed', 'rejected', 'cancelled')),
		message TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		CHECK (requester_id <> owner_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_requester ON trade_conversations (requester_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_owner ON trade_conversations (owner_id, status)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES trade_conversations(id) ON DELETE CASCADE,
		reviewer_id UUID NOT NULL REFERENCES users(id),
		reviewee_id UUID NOT NULL REFERENCES users(id),
		rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment VARCHAR(140) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (conversation_id, reviewer_id)
	)`,
}

// RunMigrations создает схему базы данных
func (r *Repository) RunMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ошибка миграции #%d: %w", i+1, err)
		}
	}
	return nil
}
