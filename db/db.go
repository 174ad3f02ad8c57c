package db

import "context"

type DBType string

const (
	Postgres DBType = "postgres"
	Mongo    DBType = "mongo"
	SQLite   DBType = "sqlite"
	Redis    DBType = "redis"
	Memory   DBType = "memory"
)

// DB is a connection to one of the storage backends.
type DB interface {
	Connect() error
	Disconnect() error
	GetContext() context.Context
}
