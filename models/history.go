package models

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// HistoryEntry is the persisted lifecycle record of a document. It embeds a
// full copy of the document so completed protocols stay readable.
type HistoryEntry struct {
	ID           string     `json:"id" bson:"_id" db:"id"`
	Date         string     `json:"date" bson:"date" db:"date"`
	Address      string     `json:"address" bson:"address" db:"address"`
	PartySummary string     `json:"party_summary" bson:"party_summary" db:"party_summary"`
	Status       Status     `json:"status" bson:"status" db:"status"` // draft | completed
	CreatedAt    time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at" db:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty" db:"completed_at"`
	ArtifactRef  *string    `json:"artifact_ref,omitempty" bson:"artifact_ref,omitempty" db:"artifact_ref"`
	Document     Document   `json:"document" bson:"document" db:"document"`
}

// DraftRecord is the single current draft slot.
type DraftRecord struct {
	Document Document  `json:"document" bson:"document"`
	SavedAt  time.Time `json:"saved_at" bson:"saved_at"`
}

// NewHistoryEntry derives the entry fields from doc. Callers merging into an
// existing entry should use MergeHistoryEntry.
func NewHistoryEntry(doc *Document, status Status, artifactRef *string, now time.Time) *HistoryEntry {
	e := &HistoryEntry{
		ID:           doc.ID,
		Date:         doc.Date,
		Address:      doc.Address,
		PartySummary: doc.PartySummary(),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
		ArtifactRef:  artifactRef,
		Document:     *doc.Clone(),
	}
	if status == StatusCompleted {
		t := now
		e.CompletedAt = &t
	}
	return e
}

// MergeHistoryEntry applies an upsert on top of prev (which may be nil):
// creation time survives, and so do an existing artifact reference and
// completion time when the update does not carry new ones. A completed
// entry is final; draft writes leave it as it is.
func MergeHistoryEntry(prev *HistoryEntry, doc *Document, status Status, artifactRef *string, now time.Time) *HistoryEntry {
	if prev != nil && prev.Status == StatusCompleted && status != StatusCompleted {
		kept := *prev
		return &kept
	}
	e := NewHistoryEntry(doc, status, artifactRef, now)
	if prev == nil {
		return e
	}
	e.CreatedAt = prev.CreatedAt
	if e.ArtifactRef == nil {
		e.ArtifactRef = prev.ArtifactRef
	}
	if status == StatusCompleted && prev.CompletedAt != nil {
		e.CompletedAt = prev.CompletedAt
	}
	return e
}
