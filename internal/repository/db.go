package repository

import (
	"context"
	"database/sql"
)

// Схема журнала: две таблицы, actions и notifications.
// Журнал append-only, чистится фоновыми задачами через DeleteOlderThan.
const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id            SERIAL PRIMARY KEY,
	target        TEXT NOT NULL,
	kind          TEXT NOT NULL,
	deposit_id    TEXT NOT NULL DEFAULT '',
	amount        BIGINT NOT NULL DEFAULT 0,
	stable_amount BIGINT NOT NULL DEFAULT 0,
	unit          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS actions_unit_idx ON actions (unit);
CREATE INDEX IF NOT EXISTS actions_target_idx ON actions (target, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id        SERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	type      TEXT NOT NULL,
	severity  TEXT NOT NULL,
	target    TEXT,
	message   TEXT NOT NULL,
	meta      JSONB
);
CREATE INDEX IF NOT EXISTS notifications_ts_idx ON notifications (timestamp DESC);
`

// InitSchema создает таблицы журнала, если их еще нет
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
