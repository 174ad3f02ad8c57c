package repository

import (
	"context"
	"errors"
	"time"

	"uebergabe/models"
)

var ErrNotFound = errors.New("history entry not found")

// ProtocolRepository stores the single current draft and the history of
// protocols keyed by document id.
type ProtocolRepository interface {
	SaveDraft(ctx context.Context, doc *models.Document) error
	// LoadDraft returns nil, nil when no draft is stored.
	LoadDraft(ctx context.Context) (*models.Document, error)
	DeleteDraft(ctx context.Context) error

	// UpsertHistoryEntry creates or updates the entry for doc.ID. An existing
	// creation time is kept, and so is an existing artifact reference when
	// artifactRef is nil.
	UpsertHistoryEntry(ctx context.Context, doc *models.Document, status models.Status, artifactRef *string) (*models.HistoryEntry, error)
	// ListHistory returns all entries, most recently updated first.
	ListHistory(ctx context.Context) ([]*models.HistoryEntry, error)
	GetHistoryEntry(ctx context.Context, id string) (*models.HistoryEntry, error)
	DeleteHistoryEntry(ctx context.Context, id string) error
}

const draftSlot = "current"

// Clock returns the current time; tests replace it to get stable ordering.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() time.Time {
	if c == nil {
		return systemClock()
	}
	return c().UTC()
}
