package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/redis/go-redis/v9"

	"uebergabe/db"
	"uebergabe/db/postgres"
	"uebergabe/db/sqlite"
	"uebergabe/models"
)

// tickingClock advances one second per call so updates order deterministically.
func tickingClock() Clock {
	t := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func testDocument(address string) *models.Document {
	doc := models.NewDocument(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	doc.Address = address
	doc.Parties[0].Name = "Anna"
	doc.Parties[1].Name = "Bernd"
	img, _ := models.NewImage(pngPixel, "Strom.png")
	doc.Meters.Main[0].Image = img
	return doc
}

// 1x1 transparent png
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func runRepositoryContract(t *testing.T, repo ProtocolRepository) {
	ctx := context.Background()

	t.Run("draft round trip", func(t *testing.T) {
		if d, err := repo.LoadDraft(ctx); err != nil || d != nil {
			t.Fatalf("want empty draft slot, got %v %v", d, err)
		}
		doc := testDocument("Hauptstr. 1")
		if err := repo.SaveDraft(ctx, doc); err != nil {
			t.Fatalf("save draft: %v", err)
		}
		got, err := repo.LoadDraft(ctx)
		if err != nil || got == nil {
			t.Fatalf("load draft: %v %v", got, err)
		}
		if got.ID != doc.ID || got.Address != "Hauptstr. 1" || len(got.Keys) != 2 {
			t.Fatalf("draft mismatch: %+v", got)
		}
		if got.Meters.Main[0].Image == nil || got.Meters.Main[0].Image.Name != "Strom.png" {
			t.Fatalf("image lost in draft: %+v", got.Meters.Main[0])
		}

		doc.Address = "Nebenstr. 2"
		if err := repo.SaveDraft(ctx, doc); err != nil {
			t.Fatalf("overwrite draft: %v", err)
		}
		if got, _ := repo.LoadDraft(ctx); got.Address != "Nebenstr. 2" {
			t.Fatalf("want overwritten draft, got %q", got.Address)
		}
		if err := repo.DeleteDraft(ctx); err != nil {
			t.Fatalf("delete draft: %v", err)
		}
		if d, _ := repo.LoadDraft(ctx); d != nil {
			t.Fatalf("draft still present after delete")
		}
	})

	t.Run("history upsert merge", func(t *testing.T) {
		doc := testDocument("Ringweg 5")
		first, err := repo.UpsertHistoryEntry(ctx, doc, models.StatusDraft, nil)
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if first.Status != models.StatusDraft || first.CompletedAt != nil || first.PartySummary != "Anna, Bernd" {
			t.Fatalf("first entry: %+v", first)
		}

		ref := "https://drive.example/1"
		done, err := repo.UpsertHistoryEntry(ctx, doc, models.StatusCompleted, &ref)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if !done.CreatedAt.Equal(first.CreatedAt) {
			t.Fatalf("created_at changed: %v -> %v", first.CreatedAt, done.CreatedAt)
		}
		if done.CompletedAt == nil || done.ArtifactRef == nil || *done.ArtifactRef != ref {
			t.Fatalf("completion not recorded: %+v", done)
		}
		if !done.UpdatedAt.After(first.UpdatedAt) {
			t.Fatalf("updated_at did not advance")
		}

		again, err := repo.UpsertHistoryEntry(ctx, doc, models.StatusCompleted, nil)
		if err != nil {
			t.Fatalf("re-complete: %v", err)
		}
		if again.ArtifactRef == nil || *again.ArtifactRef != ref {
			t.Fatalf("artifact ref lost on nil update: %+v", again.ArtifactRef)
		}
		if again.CompletedAt == nil || !again.CompletedAt.Equal(*done.CompletedAt) {
			t.Fatalf("completed_at moved: %v -> %v", done.CompletedAt, again.CompletedAt)
		}

		got, err := repo.GetHistoryEntry(ctx, doc.ID)
		if err != nil || got.Document.Address != "Ringweg 5" {
			t.Fatalf("get: %+v %v", got, err)
		}

		late := doc.Clone()
		late.Address = "Nachtrag 9"
		if _, err := repo.UpsertHistoryEntry(ctx, late, models.StatusDraft, nil); err != nil {
			t.Fatalf("late draft write: %v", err)
		}
		got, err = repo.GetHistoryEntry(ctx, doc.ID)
		if err != nil {
			t.Fatalf("get after late draft write: %v", err)
		}
		if got.Status != models.StatusCompleted || got.CompletedAt == nil || got.Document.Address != "Ringweg 5" {
			t.Fatalf("completed entry was downgraded: status %s, address %q", got.Status, got.Document.Address)
		}
	})

	t.Run("history list and delete", func(t *testing.T) {
		a, b := testDocument("A-Weg"), testDocument("B-Weg")
		if _, err := repo.UpsertHistoryEntry(ctx, a, models.StatusDraft, nil); err != nil {
			t.Fatalf("upsert a: %v", err)
		}
		if _, err := repo.UpsertHistoryEntry(ctx, b, models.StatusDraft, nil); err != nil {
			t.Fatalf("upsert b: %v", err)
		}
		// touching a again moves it to the front
		if _, err := repo.UpsertHistoryEntry(ctx, a, models.StatusDraft, nil); err != nil {
			t.Fatalf("touch a: %v", err)
		}
		list, err := repo.ListHistory(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) < 2 || list[0].ID != a.ID || list[1].ID != b.ID {
			t.Fatalf("want a then b first, got %v", ids(list))
		}

		if err := repo.DeleteHistoryEntry(ctx, a.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetHistoryEntry(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteHistoryEntry(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound for second delete, got %v", err)
		}
	})
}

func ids(entries []*models.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMemoryProtocolRepo(t *testing.T) {
	repo := NewMemoryProtocolRepo()
	repo.Clock = tickingClock()
	runRepositoryContract(t, repo)
}

func TestSQLiteProtocolRepo(t *testing.T) {
	conn := sqlite.NewSQLiteDB(filepath.Join(t.TempDir(), "protocols.db"))
	if err := conn.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()
	if err := db.RunMigrations(conn.Conn, db.SQLite, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewSQLiteProtocolRepo(conn.Conn)
	repo.Clock = tickingClock()
	runRepositoryContract(t, repo)
}

func TestPostgresProtocolRepo(t *testing.T) {
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	conn := postgres.NewPostgresDB(url)
	if err := conn.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()
	if err := db.RunMigrations(conn.Conn, db.Postgres, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.Conn.Exec(`TRUNCATE protocol_draft, protocol_history`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	repo := NewPostgresProtocolRepo(conn.Conn)
	repo.Clock = tickingClock()
	runRepositoryContract(t, repo)
}

func TestRedisProtocolRepo(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	repo := NewRedisProtocolRepo(client, "uebergabe-test-"+models.NewID())
	repo.Clock = tickingClock()
	defer client.Del(context.Background(), repo.draftKey(), repo.historyKey())
	runRepositoryContract(t, repo)
}

func TestMongoProtocolRepo(t *testing.T) {
	url := os.Getenv("TEST_MONGO_URL")
	if url == "" {
		t.Skip("TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)
	name := "uebergabe_test_" + time.Now().Format("20060102150405")
	defer client.Database(name).Drop(ctx)

	repo := NewMongoProtocolRepo(client, name)
	repo.Clock = tickingClock()
	runRepositoryContract(t, repo)
}
