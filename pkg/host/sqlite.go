package host

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "tabsync/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteStore keeps one row per key.
//
// SQLite has no cross-process change notification, so ReliableWatch is
// false and channels on this store poll. Useful when several processes
// share one database file and a directory of loose files is unwanted.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func OpenSQLite(path string, log logx.Logger) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (s *sqliteStore) Get(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, ErrStoreClosed
	}
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sqliteStore) Set(key, value string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(
		`INSERT INTO kv(key, value, at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, at=excluded.at`,
		key, value, time.Now().UnixMilli(),
	)
	return err
}

func (s *sqliteStore) Watch(buffer int) (<-chan Change, func(), error) {
	_ = buffer
	return nil, nil, ErrWatchUnsupported
}

func (s *sqliteStore) ReliableWatch() bool { return false }

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
