package utils

import (
	"context"
	"testing"
)

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("https://files.example/Uebergabeprotokoll_2024-05-01_Objekt.pdf")
	if err != nil {
		t.Fatalf("object key: %v", err)
	}
	if key != "Uebergabeprotokoll_2024-05-01_Objekt.pdf" {
		t.Fatalf("got %q", key)
	}
	if _, err := ObjectKey("https://files.example/"); err == nil {
		t.Fatalf("want error for url without key")
	}
}

func TestArtifactStorePublicURL(t *testing.T) {
	s := NewArtifactStore(R2Settings{PublicURL: "https://files.example/"})
	if got := s.PublicURL("a b.pdf"); got != "https://files.example/a%20b.pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestArtifactStoreRequiresSettings(t *testing.T) {
	s := NewArtifactStore(R2Settings{Bucket: "b"})
	if _, err := s.Upload(context.Background(), []byte("x"), "f.pdf"); err == nil {
		t.Fatalf("want missing settings error")
	}
}
