package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB is the default local store: a single file next to the service.
type SQLiteDB struct {
	Conn   *sql.DB
	Ctx    context.Context
	Cancel context.CancelFunc
	Path   string
}

func NewSQLiteDB(path string) *SQLiteDB {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	return &SQLiteDB{
		Ctx:    ctx,
		Cancel: cancel,
		Path:   path,
	}
}

func (s *SQLiteDB) Connect() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(s.Path))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	s.Conn = conn
	return s.Conn.PingContext(s.Ctx)
}

func (s *SQLiteDB) Disconnect() error {
	s.Cancel()
	if s.Conn != nil {
		return s.Conn.Close()
	}
	return nil
}

func (s *SQLiteDB) GetContext() context.Context {
	return s.Ctx
}
