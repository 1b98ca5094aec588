package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// rowChangeFunction publishes a row change on the row_changes channel.
// Trigger arguments name columns to leave out of the payload, keeping it
// under the NOTIFY size limit; subscribers re-fetch those columns.
const rowChangeFunction = `CREATE OR REPLACE FUNCTION notify_row_change() RETURNS trigger AS $$
DECLARE
    rec RECORD;
BEGIN
    IF TG_OP = 'DELETE' THEN
        rec := OLD;
    ELSE
        rec := NEW;
    END IF;
    PERFORM pg_notify('row_changes', json_build_object(
        'table', TG_TABLE_NAME,
        'op', TG_OP,
        'row', to_jsonb(rec) - TG_ARGV
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;`

func trigger(table string, excluded ...string) []string {
	args := "'-'"
	if len(excluded) > 0 {
		args = ""
		for i, col := range excluded {
			if i > 0 {
				args += ", "
			}
			args += "'" + col + "'"
		}
	}
	name := table + "_row_change"
	return []string{
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s;`, name, table),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
            FOR EACH ROW EXECUTE FUNCTION notify_row_change(%s);`, name, table, args),
	}
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            display_name TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL CHECK (kind IN ('private', 'group')),
            name TEXT,
            avatar_url TEXT,
            last_activity_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS room_members (
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (room_id, user_id)
        );`,
		`CREATE INDEX IF NOT EXISTS room_members_user_idx ON room_members (user_id);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            author_id TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            edited BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_for_everyone BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_for TEXT[] NOT NULL DEFAULT '{}'
        );`,
		`CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages (room_id, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS friendships (
            id TEXT PRIMARY KEY,
            requester_id TEXT NOT NULL,
            addressee_id TEXT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('pending', 'accepted')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (requester_id <> addressee_id)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS friendships_pair_idx
            ON friendships (LEAST(requester_id, addressee_id), GREATEST(requester_id, addressee_id));`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY,
            recipient_id TEXT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('friend_request', 'message', 'system', 'calendar')),
            sender_id TEXT,
            title TEXT NOT NULL,
            body TEXT NOT NULL,
            link TEXT,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (recipient_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS whiteboards (
            room_id TEXT PRIMARY KEY REFERENCES rooms(id) ON DELETE CASCADE,
            snapshot BYTEA NOT NULL DEFAULT ''::bytea,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_by TEXT NOT NULL DEFAULT ''
        );`,
		rowChangeFunction,
	}
	migrations = append(migrations, trigger("messages", "content")...)
	migrations = append(migrations, trigger("friendships")...)
	migrations = append(migrations, trigger("notifications", "title", "body")...)
	migrations = append(migrations, trigger("whiteboards", "snapshot")...)

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
