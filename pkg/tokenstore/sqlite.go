package tokenstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/edstream/pkg/log"
)

// SQLite wraps a Memory store and persists the stream token per service host
// so a restarted client can open the stream without renewing first.
type SQLite struct {
	*Memory
	db   *sql.DB
	host string
}

// OpenSQLite opens (creating if needed) the token cache at path and loads
// the cached stream token for host.
func OpenSQLite(path, host, bearer string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating token cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening token cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS stream_tokens (
			host TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating stream_tokens table: %w", err)
	}

	s := &SQLite{Memory: NewMemory(bearer), db: db, host: host}

	var token string
	err = db.QueryRow("SELECT token FROM stream_tokens WHERE host = ?", host).Scan(&token)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("loading cached stream token: %w", err)
	default:
		_ = s.Memory.SetStreamToken(token)
		log.ForService("tokenstore").Debugf("loaded cached stream token for %s", host)
	}

	return s, nil
}

// SetStreamToken updates the in-memory token and persists it.
func (s *SQLite) SetStreamToken(token string) error {
	if err := s.Memory.SetStreamToken(token); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO stream_tokens (host, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(host) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		s.host, token, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("persisting stream token: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
