package wizard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"uebergabe/models"
	"uebergabe/repository"
	"uebergabe/utils"
)

// 1x1 png
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

type fakeRenderer struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRenderer) Generate(ctx context.Context, doc *models.Document) (*utils.Artifact, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &utils.Artifact{PDF: []byte("%PDF-1.3 fake"), Filename: utils.ArtifactFilename(doc), Pages: 2}, nil
}

type fakeSubmitter struct {
	mu    sync.Mutex
	docs  []*models.Document
	err   error
	reply string
}

func (f *fakeSubmitter) Submit(ctx context.Context, pdf []byte, filename string, doc *models.Document) (*utils.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &utils.SubmitResult{ArtifactURL: f.reply}, nil
}

// failingRepo wraps a repository and fails every draft write.
type failingRepo struct {
	repository.ProtocolRepository
	attempts atomic.Int32
}

func (f *failingRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	f.attempts.Add(1)
	return errors.New("disk full")
}

// stallingRepo holds the first draft write until release is closed.
type stallingRepo struct {
	repository.ProtocolRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *stallingRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.ProtocolRepository.SaveDraft(ctx, doc)
}

func newTestSession(t *testing.T, repo repository.ProtocolRepository, r Renderer, s Submitter) *Session {
	t.Helper()
	return NewSession(Options{
		Repo:          repo,
		Renderer:      r,
		Submitter:     s,
		AutosaveDelay: 10 * time.Millisecond,
		SavePath:      t.TempDir(),
	})
}

func TestStepNavigation(t *testing.T) {
	s := newTestSession(t, repository.NewMemoryProtocolRepo(), &fakeRenderer{}, &fakeSubmitter{})
	if s.Prev() != StepMeta {
		t.Fatalf("prev at first step must stay")
	}
	for i := 0; i < 10; i++ {
		s.Next()
	}
	if got := s.State().Step; got != StepPreview {
		t.Fatalf("want preview, got %s", got)
	}
	if err := s.Goto(Step(9)); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("want ErrInvalidStep, got %v", err)
	}
	if err := s.Goto(StepKeys); err != nil || s.State().StepName != "keys" {
		t.Fatalf("goto keys: %v %s", err, s.State().StepName)
	}
}

func TestAutosaveDebouncesAndRestores(t *testing.T) {
	repo := repository.NewMemoryProtocolRepo()
	s := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{})

	for _, a := range []string{"H", "Ha", "Hauptstr. 1"} {
		if _, err := s.Apply(SetAddress(a)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	s.Close()

	draft, err := repo.LoadDraft(context.Background())
	if err != nil || draft == nil || draft.Address != "Hauptstr. 1" {
		t.Fatalf("want latest draft saved, got %+v %v", draft, err)
	}
	entry, err := repo.GetHistoryEntry(context.Background(), draft.ID)
	if err != nil || entry.Status != models.StatusDraft {
		t.Fatalf("want draft history entry, got %+v %v", entry, err)
	}

	restored := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{})
	if err := restored.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := restored.Document(); got.ID != draft.ID || got.Address != "Hauptstr. 1" {
		t.Fatalf("draft not restored: %+v", got)
	}
}

func TestAutosaveErrorsAreSwallowed(t *testing.T) {
	repo := &failingRepo{ProtocolRepository: repository.NewMemoryProtocolRepo()}
	s := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{})
	if _, err := s.Apply(SetRemarks("x")); err != nil {
		t.Fatalf("edit must succeed even if persistence fails: %v", err)
	}
	s.Close()
	if repo.attempts.Load() != 1 {
		t.Fatalf("want one save attempt, got %d", repo.attempts.Load())
	}
	if s.Document().Remarks != "x" {
		t.Fatalf("in-memory edit lost")
	}
}

func TestSignDefaultsNameAndAppends(t *testing.T) {
	s := newTestSession(t, repository.NewMemoryProtocolRepo(), &fakeRenderer{}, &fakeSubmitter{})
	if _, err := s.Sign(models.RoleSeller, "", nil); !errors.Is(err, ErrEmptySignature) {
		t.Fatalf("want ErrEmptySignature, got %v", err)
	}
	if _, err := s.Sign(models.RoleSeller, "", []byte("scribble")); !errors.Is(err, models.ErrInvalidImage) {
		t.Fatalf("want ErrInvalidImage, got %v", err)
	}
	if _, err := s.Sign(models.RoleSeller, "", pngPixel); err != nil {
		t.Fatalf("sign: %v", err)
	}
	doc, err := s.Sign(models.RoleBuyer, "Bernd", pngPixel)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(doc.Signatures) != 2 || doc.Signatures[0].Name != "Verkäufer" || doc.Signatures[1].Name != "Bernd" {
		t.Fatalf("signatures: %+v", doc.Signatures)
	}
	if doc.Signatures[0].Timestamp.IsZero() {
		t.Fatalf("timestamp missing")
	}
	s.Close()
}

func TestSubmitPreconditionsBeforeAnyWork(t *testing.T) {
	r := &fakeRenderer{}
	sub := &fakeSubmitter{}
	s := newTestSession(t, repository.NewMemoryProtocolRepo(), r, sub)

	if _, err := s.Submit(context.Background(), true); !errors.Is(err, ErrNoSignatures) {
		t.Fatalf("want ErrNoSignatures, got %v", err)
	}
	if _, err := s.Sign(models.RoleSeller, "A", pngPixel); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Submit(context.Background(), false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("want ErrNotConfirmed, got %v", err)
	}
	if r.calls.Load() != 0 || len(sub.docs) != 0 {
		t.Fatalf("no render or network work may happen before preconditions pass")
	}
	s.Close()
}

func TestSubmitCompletesAndClearsDraft(t *testing.T) {
	repo := repository.NewMemoryProtocolRepo()
	sub := &fakeSubmitter{reply: "https://drive.example/p.pdf"}
	s := newTestSession(t, repo, &fakeRenderer{}, sub)
	ctx := context.Background()

	if _, err := s.Apply(SetAddress("Hauptstr. 1")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.Sign(models.RoleSeller, "A", pngPixel); err != nil {
		t.Fatalf("sign: %v", err)
	}
	s.Close()
	id := s.Document().ID

	out, err := s.Submit(ctx, true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.ArtifactURL != "https://drive.example/p.pdf" || out.Pages != 2 {
		t.Fatalf("outcome: %+v", out)
	}
	entry, err := repo.GetHistoryEntry(ctx, id)
	if err != nil || entry.Status != models.StatusCompleted || entry.CompletedAt == nil {
		t.Fatalf("want completed entry, got %+v %v", entry, err)
	}
	if entry.ArtifactRef == nil || *entry.ArtifactRef != out.ArtifactURL {
		t.Fatalf("artifact ref: %v", entry.ArtifactRef)
	}
	if d, _ := repo.LoadDraft(ctx); d != nil {
		t.Fatalf("draft must be deleted after submission")
	}
	if s.Document().ID == id {
		t.Fatalf("session must move on to a fresh protocol")
	}
	if _, err := os.Stat(filepath.Join(s.opts.SavePath, out.Filename)); err != nil {
		t.Fatalf("local copy missing: %v", err)
	}

	if _, err := s.Resume(ctx, id); !errors.Is(err, ErrCompleted) {
		t.Fatalf("completed protocols are read-only, got %v", err)
	}
}

func TestSubmitFailureLeavesDraft(t *testing.T) {
	repo := repository.NewMemoryProtocolRepo()
	s := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{err: errors.New("server status 500")})
	ctx := context.Background()

	if _, err := s.Sign(models.RoleSeller, "A", pngPixel); err != nil {
		t.Fatalf("sign: %v", err)
	}
	s.Close()
	id := s.Document().ID

	if _, err := s.Submit(ctx, true); !errors.Is(err, ErrSubmission) {
		t.Fatalf("want ErrSubmission, got %v", err)
	}
	draft, _ := repo.LoadDraft(ctx)
	if draft == nil || draft.ID != id || len(draft.Signatures) != 1 {
		t.Fatalf("draft must be untouched, got %+v", draft)
	}
	if s.Document().ID != id {
		t.Fatalf("session must keep the document for a retry")
	}
}

func TestBusyFlagRejectsConcurrentExport(t *testing.T) {
	r := &fakeRenderer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestSession(t, repository.NewMemoryProtocolRepo(), r, &fakeSubmitter{})

	done := make(chan error, 1)
	go func() {
		_, err := s.GeneratePDF(context.Background())
		done <- err
	}()
	<-r.started
	if !s.State().GeneratingPDF {
		t.Fatalf("busy flag not visible in state")
	}
	if _, err := s.GeneratePDF(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	close(r.block)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if s.State().GeneratingPDF {
		t.Fatalf("busy flag not cleared")
	}
}

func TestRenderErrorSurfaces(t *testing.T) {
	s := newTestSession(t, repository.NewMemoryProtocolRepo(), &fakeRenderer{err: utils.ErrChromeUnavailable}, &fakeSubmitter{})
	if _, err := s.GeneratePDF(context.Background()); !errors.Is(err, utils.ErrChromeUnavailable) {
		t.Fatalf("want ErrChromeUnavailable, got %v", err)
	}
}

func TestResumeDraftEntry(t *testing.T) {
	repo := repository.NewMemoryProtocolRepo()
	ctx := context.Background()
	old := models.NewDocument(time.Now())
	old.Address = "Altbau 3"
	if _, err := repo.UpsertHistoryEntry(ctx, old, models.StatusDraft, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{})
	doc, err := s.Resume(ctx, old.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if doc.ID != old.ID || doc.Address != "Altbau 3" || s.State().Step != StepMeta {
		t.Fatalf("resumed: %+v", doc)
	}
	s.Close()
	if d, _ := repo.LoadDraft(ctx); d == nil || d.ID != old.ID {
		t.Fatalf("resumed protocol must become the draft")
	}
	if _, err := s.Resume(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSubmitWaitsForRunningAutosave(t *testing.T) {
	mem := repository.NewMemoryProtocolRepo()
	repo := &stallingRepo{ProtocolRepository: mem, entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(t, repo, &fakeRenderer{}, &fakeSubmitter{})
	ctx := context.Background()

	if _, err := s.Sign(models.RoleSeller, "A", pngPixel); err != nil {
		t.Fatalf("sign: %v", err)
	}
	id := s.Document().ID
	select {
	case <-repo.entered:
	case <-time.After(time.Second):
		t.Fatalf("autosave never started")
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, true)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("submit never returned")
	}

	if d, _ := mem.LoadDraft(ctx); d != nil && d.ID == id {
		t.Fatalf("submitted protocol came back as draft")
	}
	entry, err := mem.GetHistoryEntry(ctx, id)
	if err != nil || entry.Status != models.StatusCompleted {
		t.Fatalf("want completed entry, got %+v %v", entry, err)
	}
}

func TestLocalCopyStaysInSavePath(t *testing.T) {
	root := t.TempDir()
	s := NewSession(Options{
		Repo:      repository.NewMemoryProtocolRepo(),
		Renderer:  &fakeRenderer{},
		Submitter: &fakeSubmitter{},
		SavePath:  filepath.Join(root, "pdfs"),
	})
	defer s.Close()

	if _, err := s.Apply(SetDate("/../../escaped")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	art, err := s.GeneratePDF(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "pdfs", art.Filename)); err != nil {
		t.Fatalf("local copy not in save path: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "pdfs" {
		t.Fatalf("want only the save dir under root, got %v", entries)
	}
}
