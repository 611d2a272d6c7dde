package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup. Statements are idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		stripe_customer_id TEXT,
		restaurant_owner_id BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_stripe_customer
		ON users(stripe_customer_id) WHERE stripe_customer_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_users_restaurant_owner
		ON users(restaurant_owner_id) WHERE restaurant_owner_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS user_permissions (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission TEXT NOT NULL,
		granted_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, permission)
	)`,

	`CREATE TABLE IF NOT EXISTS restaurants (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL UNIQUE REFERENCES users(id),
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		theme TEXT NOT NULL DEFAULT 'classic',
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		logo_url TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'EUR',
		waiter_code TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS menu_categories (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_categories_restaurant ON menu_categories(restaurant_id)`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES menu_categories(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		available BOOLEAN NOT NULL DEFAULT TRUE,
		position INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant ON menu_items(restaurant_id)`,

	`CREATE TABLE IF NOT EXISTS menu_specials (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		item_id BIGINT REFERENCES menu_items(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL DEFAULT 0,
		starts_on TIMESTAMPTZ NOT NULL,
		ends_on TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		reference TEXT NOT NULL UNIQUE,
		table_label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'received',
		total_cents BIGINT NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_restaurant_status ON orders(restaurant_id, status)`,

	`CREATE TABLE IF NOT EXISTS order_lines (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		item_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		quantity INT NOT NULL,
		price_cents BIGINT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id BIGSERIAL PRIMARY KEY,
		provider TEXT NOT NULL,
		external_id TEXT NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id),
		email TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_external ON subscriptions(provider, external_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id)`,
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
