package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"uebergabe/geocode"
	"uebergabe/handlers"
	"uebergabe/models"
	"uebergabe/repository"
	"uebergabe/utils"
	"uebergabe/wizard"
)

type noRenderer struct{}

func (noRenderer) Generate(ctx context.Context, doc *models.Document) (*utils.Artifact, error) {
	return nil, utils.ErrChromeUnavailable
}

func newRouter(t *testing.T, tokenHash string) (http.Handler, repository.ProtocolRepository) {
	t.Helper()
	repo := repository.NewMemoryProtocolRepo()
	s := wizard.NewSession(wizard.Options{Repo: repo, Renderer: noRenderer{}, AutosaveDelay: time.Millisecond})
	t.Cleanup(s.Close)
	sg := geocode.NewSuggester(geocode.NewClient("http://127.0.0.1:0", "test"), time.Millisecond, nil)
	t.Cleanup(sg.Close)

	return SetupRoutes(Handlers{
		Session: &handlers.SessionHandler{Session: s},
		History: &handlers.HistoryHandler{Repo: repo, Session: s},
		Geocode: &handlers.GeocodeHandler{Suggester: sg},
		Render:  &handlers.RenderHandler{Renderer: noRenderer{}},
	}, tokenHash), repo
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h, _ := newRouter(t, string(hash))

	if rec := serve(h, http.MethodGet, "/session", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/session", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 with wrong token, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/session", "s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("want 200 with token, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodOptions, "/session", ""); rec.Code != http.StatusOK {
		t.Fatalf("want preflight to pass without token, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("want open health check, got %d", rec.Code)
	}
}

func TestOpenWithoutHash(t *testing.T) {
	h, _ := newRouter(t, "")
	rec := serve(h, http.MethodGet, "/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("want CORS header, got %q", got)
	}
}

func TestRouting(t *testing.T) {
	h, repo := newRouter(t, "")
	doc := models.NewDocument(time.Now())
	if _, err := repo.UpsertHistoryEntry(context.Background(), doc, models.StatusDraft, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/history", http.StatusOK},
		{http.MethodGet, "/history/" + doc.ID, http.StatusOK},
		{http.MethodGet, "/history/missing", http.StatusNotFound},
		{http.MethodPost, "/history/" + doc.ID + "/resume", http.StatusOK},
		{http.MethodPost, "/session/pdf", http.StatusServiceUnavailable},
		{http.MethodGet, "/geocode?q=x", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, c := range cases {
		if rec := serve(h, c.method, c.target, ""); rec.Code != c.want {
			t.Fatalf("%s %s: want %d, got %d", c.method, c.target, c.want, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if got := clientIP(req); got != "10.0.0.7" {
		t.Fatalf("want 10.0.0.7, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("want forwarded ip, got %q", got)
	}
}
