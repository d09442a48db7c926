// Package postgres persists session progress, choice analytics, and
// engine events. It backs the interpreter's progress-store and
// event-sink collaborators.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// EventRow represents an engine event stored in Postgres.
type EventRow struct {
	EventID    int64          `json:"event_id"`
	Timestamp  time.Time      `json:"ts"`
	Level      string         `json:"level"`
	Event      string         `json:"event"`
	Message    *string        `json:"msg,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	StoryID    string         `json:"story_id"`
	SessionKey *string        `json:"session_key,omitempty"`
}

// Client manages the Postgres connection for one story.
type Client struct {
	db      *sql.DB
	storyID string
}

// New creates a new Postgres client using environment variables.
func New(storyID string) (*Client, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "chatstory")
	dbname := getEnv("PGDATABASE", "chatstory")
	password := os.Getenv("PGPASSWORD")

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			host, port, user, dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		storyID: storyID,
	}

	if err := client.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS progresses (
			story_id    TEXT NOT NULL,
			session_key TEXT NOT NULL,
			scene_id    TEXT NOT NULL,
			flags       JSONB NOT NULL DEFAULT '{}',
			completed   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (story_id, session_key)
		);
		CREATE TABLE IF NOT EXISTS choice_events (
			event_id    BIGSERIAL PRIMARY KEY,
			story_id    TEXT NOT NULL,
			session_key TEXT NOT NULL,
			scene_id    TEXT NOT NULL,
			choice_id   TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_choice_events_scene ON choice_events(story_id, scene_id);
		CREATE TABLE IF NOT EXISTS events (
			event_id    BIGSERIAL PRIMARY KEY,
			ts          TIMESTAMPTZ NOT NULL,
			level       TEXT NOT NULL,
			event       TEXT NOT NULL,
			msg         TEXT,
			fields      JSONB,
			story_id    TEXT NOT NULL,
			session_key TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_story ON events(story_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// LoadPosition implements the interpreter's progress-store contract.
func (c *Client) LoadPosition(sessionKey string) (sceneID string, flags map[string]any, completed bool, found bool, err error) {
	query := `
		SELECT scene_id, flags, completed
		FROM progresses
		WHERE story_id = $1 AND session_key = $2
	`
	var flagsJSON []byte
	row := c.db.QueryRow(query, c.storyID, sessionKey)
	if err := row.Scan(&sceneID, &flagsJSON, &completed); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, false, false, nil
		}
		return "", nil, false, false, err
	}

	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &flags); err != nil {
			return "", nil, false, false, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}
	return sceneID, flags, completed, true, nil
}

// SavePosition upserts a session's progress. New flags merge over
// stored ones; existing keys are overwritten, absent keys survive.
func (c *Client) SavePosition(sessionKey, sceneID string, flags map[string]any, completed bool) error {
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	if flags == nil {
		flagsJSON = []byte("{}")
	}

	query := `
		INSERT INTO progresses (story_id, session_key, scene_id, flags, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (story_id, session_key) DO UPDATE SET
			scene_id   = EXCLUDED.scene_id,
			flags      = progresses.flags || EXCLUDED.flags,
			completed  = EXCLUDED.completed,
			updated_at = now()
	`
	_, err = c.db.Exec(query, c.storyID, sessionKey, sceneID, flagsJSON, completed)
	return err
}

// RecordChoiceTaken implements the interpreter's analytics sink.
func (c *Client) RecordChoiceTaken(sessionKey, sceneID, choiceID string) error {
	query := `
		INSERT INTO choice_events (story_id, session_key, scene_id, choice_id)
		VALUES ($1, $2, $3, $4)
	`
	_, err := c.db.Exec(query, c.storyID, sessionKey, sceneID, choiceID)
	return err
}

// AppendEvent inserts an engine event into the database.
func (c *Client) AppendEvent(ts time.Time, level, event, msg string, fields map[string]any, sessionKey string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	var sessionPtr *string
	if sessionKey != "" {
		sessionPtr = &sessionKey
	}

	query := `
		INSERT INTO events (ts, level, event, msg, fields, story_id, session_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.storyID, sessionPtr)
	return err
}

// QueryEvents returns the last N engine events in descending order by
// timestamp.
func (c *Client) QueryEvents(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, story_id, session_key
		FROM events
		WHERE story_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.storyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, sessionKey sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.StoryID, &sessionKey); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if sessionKey.Valid {
			e.SessionKey = &sessionKey.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
