package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Pool limits for the single wizard session: one writer for autosave and
// submission, one for migrations or history reads at startup.
const (
	maxOpenConns    = 2
	maxIdleConns    = 1
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

type PostgresDB struct {
	Conn   *sql.DB
	Ctx    context.Context
	Cancel context.CancelFunc
	URL    string
}

func NewPostgresDB(url string) *PostgresDB {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostgresDB{
		Ctx:    ctx,
		Cancel: cancel,
		URL:    url,
	}
}

// Connect validates the DSN before dialing, so a malformed POSTGRES_URL
// fails without a network round trip.
func (p *PostgresDB) Connect() error {
	if p.URL == "" {
		return fmt.Errorf("postgres: POSTGRES_URL is empty")
	}
	connector, err := pq.NewConnector(p.URL)
	if err != nil {
		return fmt.Errorf("postgres: invalid url: %w", err)
	}

	conn := sql.OpenDB(connector)
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(p.Ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("postgres: ping: %w", err)
	}
	p.Conn = conn
	return nil
}

func (p *PostgresDB) Disconnect() error {
	p.Cancel()
	if p.Conn != nil {
		return p.Conn.Close()
	}
	return nil
}

func (p *PostgresDB) GetContext() context.Context {
	return p.Ctx
}
