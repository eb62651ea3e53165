// Package dbtest opens isolated SQLite databases carrying the application
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gosha22008/orders-backend/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// schema mirrors the goose migrations with SQLite column types.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL DEFAULT 'buyer',
		is_active BOOLEAN NOT NULL DEFAULT 0,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE confirm_email_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		key TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE password_reset_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE shops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		url TEXT,
		state BOOLEAN NOT NULL DEFAULT 1,
		user_id TEXT UNIQUE REFERENCES users(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE categories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE shop_categories (
		shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (shop_id, category_id)
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		UNIQUE (name, category_id)
	)`,
	`CREATE TABLE product_infos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		external_id INTEGER NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		price NUMERIC NOT NULL,
		price_rrc NUMERIC NOT NULL DEFAULT 0,
		UNIQUE (product_id, shop_id, external_id)
	)`,
	`CREATE TABLE parameters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE product_parameters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_info_id INTEGER NOT NULL REFERENCES product_infos(id) ON DELETE CASCADE,
		parameter_id INTEGER NOT NULL REFERENCES parameters(id) ON DELETE CASCADE,
		value TEXT NOT NULL DEFAULT '',
		UNIQUE (product_info_id, parameter_id)
	)`,
	`CREATE TABLE contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		phone TEXT NOT NULL,
		city TEXT NOT NULL,
		street TEXT NOT NULL,
		house TEXT NOT NULL,
		structure TEXT,
		building TEXT,
		apartment TEXT
	)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'basket',
		contact_id INTEGER REFERENCES contacts(id) ON DELETE SET NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_orders_user_basket ON orders(user_id) WHERE status = 'basket'`,
	`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_info_id INTEGER NOT NULL REFERENCES product_infos(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		UNIQUE (order_id, product_info_id)
	)`,
	`CREATE TABLE import_jobs (
		id TEXT PRIMARY KEY,
		shop_user_id TEXT NOT NULL,
		shop_id INTEGER,
		shop_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		source TEXT NOT NULL,
		feed TEXT NOT NULL,
		categories_imported INTEGER NOT NULL DEFAULT 0,
		goods_imported INTEGER NOT NULL DEFAULT 0,
		parameters_imported INTEGER NOT NULL DEFAULT 0,
		listings_replaced INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`,
}

var opened atomic.Uint64

// Open returns a fresh in-memory database private to the call with the full schema
// applied. The connection is closed when the test finishes.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	// Each call gets its own database, even within a single test.
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, opened.Add(1))

	conn, err := gorm.Open(sqlite.Open(dsn), db.Options(nil))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// A single connection keeps the shared-cache database alive and avoids
	// SQLITE_LOCKED between concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return conn
}

// Client wraps Open in a db.Client for code that takes the transaction runner.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.FromGorm(Open(t))
}
