package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"uebergabe/models"
)

// RedisProtocolRepo keeps the draft under one key and the history in one
// hash field per document id.
type RedisProtocolRepo struct {
	Client *redis.Client
	Prefix string
	Clock  Clock
}

func NewRedisProtocolRepo(client *redis.Client, prefix string) *RedisProtocolRepo {
	if prefix == "" {
		prefix = "uebergabe"
	}
	return &RedisProtocolRepo{Client: client, Prefix: prefix}
}

func (r *RedisProtocolRepo) draftKey() string { return r.Prefix + ":draft:" + draftSlot }
func (r *RedisProtocolRepo) historyKey() string { return r.Prefix + ":history" }

func (r *RedisProtocolRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(models.DraftRecord{Document: *doc, SavedAt: r.Clock.now()})
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := r.Client.Set(ctx, r.draftKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *RedisProtocolRepo) LoadDraft(ctx context.Context) (*models.Document, error) {
	data, err := r.Client.Get(ctx, r.draftKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var rec models.DraftRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &rec.Document, nil
}

func (r *RedisProtocolRepo) DeleteDraft(ctx context.Context) error {
	if err := r.Client.Del(ctx, r.draftKey()).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// UpsertHistoryEntry merges inside a WATCH transaction so a concurrent
// writer cannot lose the creation time or the artifact reference.
func (r *RedisProtocolRepo) UpsertHistoryEntry(ctx context.Context, doc *models.Document, status models.Status, artifactRef *string) (*models.HistoryEntry, error) {
	key := r.historyKey()
	var merged *models.HistoryEntry

	txf := func(tx *redis.Tx) error {
		prev, err := r.getEntry(ctx, tx, doc.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		merged = models.MergeHistoryEntry(prev, doc, status, artifactRef, r.Clock.now())
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, merged.ID, data)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.Client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upsert history entry: %w", err)
		}
		return merged, nil
	}
	return nil, fmt.Errorf("upsert history entry: %w", redis.TxFailedErr)
}

func (r *RedisProtocolRepo) ListHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	all, err := r.Client.HGetAll(ctx, r.historyKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]*models.HistoryEntry, 0, len(all))
	for id, raw := range all {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", id, err)
		}
		entries = append(entries, &e)
	}
	sortByRecency(entries)
	return entries, nil
}

func (r *RedisProtocolRepo) GetHistoryEntry(ctx context.Context, id string) (*models.HistoryEntry, error) {
	return r.getEntry(ctx, r.Client, id)
}

func (r *RedisProtocolRepo) getEntry(ctx context.Context, c redis.Cmdable, id string) (*models.HistoryEntry, error) {
	raw, err := c.HGet(ctx, r.historyKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	var e models.HistoryEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode history entry: %w", err)
	}
	return &e, nil
}

func (r *RedisProtocolRepo) DeleteHistoryEntry(ctx context.Context, id string) error {
	n, err := r.Client.HDel(ctx, r.historyKey(), id).Result()
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sortByRecency orders entries most recently updated first, ties by id.
func sortByRecency(entries []*models.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
