package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"uebergabe/models"
)

// sqlQueries holds one dialect's statements. The upsert must implement the
// merge rules of models.MergeHistoryEntry in SQL.
type sqlQueries struct {
	saveDraft   string
	loadDraft   string
	deleteDraft string
	upsert      string
	list        string
	get         string
	delete      string
}

// SQLProtocolRepo is the database/sql implementation shared by the postgres
// and sqlite backends.
type SQLProtocolRepo struct {
	DB    *sql.DB
	Clock Clock
	q     sqlQueries
}

const historyColumns = `id, date, address, party_summary, status, created_at, updated_at, completed_at, artifact_ref, document`

func (r *SQLProtocolRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, r.q.saveDraft, draftSlot, string(data), r.Clock.now()); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *SQLProtocolRepo) LoadDraft(ctx context.Context) (*models.Document, error) {
	var data []byte
	err := r.DB.QueryRowContext(ctx, r.q.loadDraft, draftSlot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &doc, nil
}

func (r *SQLProtocolRepo) DeleteDraft(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, r.q.deleteDraft, draftSlot); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (r *SQLProtocolRepo) UpsertHistoryEntry(ctx context.Context, doc *models.Document, status models.Status, artifactRef *string) (*models.HistoryEntry, error) {
	e := models.NewHistoryEntry(doc, status, artifactRef, r.Clock.now())
	data, err := json.Marshal(&e.Document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, r.q.upsert,
		e.ID, e.Date, e.Address, e.PartySummary, string(e.Status),
		e.CreatedAt, e.UpdatedAt, e.CompletedAt, e.ArtifactRef, string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert history entry: %w", err)
	}
	return r.GetHistoryEntry(ctx, e.ID)
}

func (r *SQLProtocolRepo) ListHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, r.q.list)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []*models.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLProtocolRepo) GetHistoryEntry(ctx context.Context, id string) (*models.HistoryEntry, error) {
	e, err := scanHistoryEntry(r.DB.QueryRowContext(ctx, r.q.get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *SQLProtocolRepo) DeleteHistoryEntry(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, r.q.delete, id)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(row rowScanner) (*models.HistoryEntry, error) {
	var (
		e           models.HistoryEntry
		status      string
		completedAt sql.NullTime
		artifactRef sql.NullString
		data        []byte
	)
	err := row.Scan(&e.ID, &e.Date, &e.Address, &e.PartySummary, &status,
		&e.CreatedAt, &e.UpdatedAt, &completedAt, &artifactRef, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	e.Status = models.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	if artifactRef.Valid {
		ref := artifactRef.String
		e.ArtifactRef = &ref
	}
	if err := json.Unmarshal(data, &e.Document); err != nil {
		return nil, fmt.Errorf("decode history document: %w", err)
	}
	return &e, nil
}
