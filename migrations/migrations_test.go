package migrations_test

import (
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/straye-as/enquiry-api/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gorm.io/driver/sqlite"
)

func tables(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose%' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrations_UpAndDown(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	t.Cleanup(func() { goose.SetBaseFS(nil) })
	require.NoError(t, goose.SetDialect("sqlite3"))

	require.NoError(t, goose.Up(db, "."))
	assert.Contains(t, tables(t, db), "enquiries")
	assert.Contains(t, tables(t, db), "notifications")
	assert.Len(t, tables(t, db), 17)

	key := "FOLLOW_UP_REMINDER:abc:2026-01-02"
	_, err = db.Exec(`INSERT INTO roles (id, created_at, updated_at, name, display_name) VALUES ('r1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 'admin', 'Admin')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, created_at, updated_at, name, is_active) VALUES ('u1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 'A', true)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO notification_types (id, created_at, updated_at, name, category, send_email, send_in_app, is_active) VALUES ('t1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 'FOLLOW_UP_REMINDER', 'follow_up', true, true, true)`)
	require.NoError(t, err)
	insert := `INSERT INTO notifications (id, created_at, updated_at, type_id, recipient_id, title, message, scheduled_for, dedupe_key) VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 't1', 'u1', 'x', 'y', CURRENT_TIMESTAMP, ?)`
	_, err = db.Exec(insert, "n1", key)
	require.NoError(t, err)
	_, err = db.Exec(insert, "n2", key)
	assert.Error(t, err, "dedupe keys are unique")

	require.NoError(t, goose.Reset(db, "."))
	assert.Empty(t, tables(t, db))
}
