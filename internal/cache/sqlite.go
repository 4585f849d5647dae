package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "analyses.db"

// Store is the durable analysis cache. Each row holds the full analysis
// JSON for one root tweet, upserted on re-analysis.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the analysis database under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open analysis database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS analyzed_tweets (
		tweet_id TEXT PRIMARY KEY,
		author_handle TEXT NOT NULL,
		post_url TEXT NOT NULL,
		analysis_json TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	return err
}

// Get retrieves the stored analysis JSON for a root tweet id.
func (s *Store) Get(ctx context.Context, tweetID string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis_json FROM analyzed_tweets WHERE tweet_id = ?`, tweetID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query analysis for %s: %w", tweetID, err)
	}
	return payload, true, nil
}

// Put stores or refreshes the analysis for a root tweet id.
func (s *Store) Put(ctx context.Context, tweetID, authorHandle, postURL string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyzed_tweets (tweet_id, author_handle, post_url, analysis_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tweet_id) DO UPDATE SET
			author_handle = excluded.author_handle,
			post_url = excluded.post_url,
			analysis_json = excluded.analysis_json,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		tweetID, authorHandle, postURL, payload)
	if err != nil {
		return fmt.Errorf("store analysis for %s: %w", tweetID, err)
	}
	return nil
}

// Delete removes the stored analysis for a root tweet id.
func (s *Store) Delete(ctx context.Context, tweetID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM analyzed_tweets WHERE tweet_id = ?`, tweetID)
	return err
}
