// Package wizard drives one protocol through its editing steps, signing,
// export and submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"uebergabe/models"
	"uebergabe/repository"
	"uebergabe/schedule"
	"uebergabe/utils"
)

var (
	ErrBusy           = errors.New("another export or submission is in progress")
	ErrNoSignatures   = errors.New("at least one signature is required")
	ErrNotConfirmed   = errors.New("submission must be confirmed")
	ErrCompleted      = errors.New("protocol is completed and read-only")
	ErrEmptySignature = errors.New("signature is empty")
	ErrInvalidStep    = errors.New("invalid step")
	ErrSubmission     = errors.New("submission failed")
)

type Step int

const (
	StepMeta Step = iota
	StepKeys
	StepMeters
	StepInventory
	StepPreview
)

var stepNames = []string{"meta", "keys", "meters", "inventory", "preview"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Valid() bool { return s >= StepMeta && s <= StepPreview }

// Renderer turns a document into a paged PDF.
type Renderer interface {
	Generate(ctx context.Context, doc *models.Document) (*utils.Artifact, error)
}

// Submitter delivers a finished protocol to the intake endpoint.
type Submitter interface {
	Submit(ctx context.Context, pdf []byte, filename string, doc *models.Document) (*utils.SubmitResult, error)
}

// Archiver keeps a copy of the rendered PDF and returns where it lives.
type Archiver interface {
	Upload(ctx context.Context, pdf []byte, key string) (string, error)
}

type Options struct {
	Repo      repository.ProtocolRepository
	Renderer  Renderer
	Submitter Submitter
	Archiver  Archiver // optional

	AutosaveDelay time.Duration
	SavePath      string // local copy of every generated PDF; empty disables
	Logger        *zap.Logger
	Now           func() time.Time
}

// State is what a client needs to draw the wizard.
type State struct {
	Step          Step             `json:"step"`
	StepName      string           `json:"step_name"`
	Steps         []string         `json:"steps"`
	GeneratingPDF bool             `json:"generating_pdf"`
	Submitting    bool             `json:"submitting"`
	Document      *models.Document `json:"document"`
}

// SubmitOutcome reports a completed submission.
type SubmitOutcome struct {
	DocumentID  string               `json:"document_id"`
	Filename    string               `json:"filename"`
	Pages       int                  `json:"pages"`
	ArtifactURL string               `json:"artifact_url,omitempty"`
	Entry       *models.HistoryEntry `json:"entry,omitempty"`
}

// Session holds the single document being edited.
type Session struct {
	opts Options
	log  *zap.Logger

	mu   sync.Mutex
	doc  *models.Document
	step Step

	generatingPDF atomic.Bool
	submitting    atomic.Bool

	autosave *schedule.Debouncer
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = time.Second
	}
	s := &Session{
		opts:     opts,
		log:      opts.Logger.With(zap.String("service", "wizard")),
		autosave: schedule.NewDebouncer(opts.AutosaveDelay),
	}
	s.doc = models.NewDocument(opts.Now())
	return s
}

// Start restores the stored draft, if there is one.
func (s *Session) Start(ctx context.Context) error {
	draft, err := s.opts.Repo.LoadDraft(ctx)
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		s.log.Info("no draft stored, starting a new protocol")
		return nil
	}
	s.mu.Lock()
	s.doc = draft
	s.step = StepMeta
	s.mu.Unlock()
	s.log.Info("draft restored", zap.String("document_id", draft.ID))
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Step:          s.step,
		StepName:      s.step.String(),
		Steps:         stepNames,
		GeneratingPDF: s.generatingPDF.Load(),
		Submitting:    s.submitting.Load(),
		Document:      s.doc.Clone(),
	}
}

// Document returns a copy of the current document.
func (s *Session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *Session) Next() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step < StepPreview {
		s.step++
	}
	return s.step
}

func (s *Session) Prev() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > StepMeta {
		s.step--
	}
	return s.step
}

func (s *Session) Goto(step Step) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
	return nil
}

// Apply runs e against the current document and schedules an autosave.
func (s *Session) Apply(e Edit) (*models.Document, error) {
	s.mu.Lock()
	next, err := e(s.doc)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.doc = next
	out := next.Clone()
	s.mu.Unlock()

	s.scheduleAutosave()
	return out, nil
}

// Sign appends a signature. The name falls back to the role label.
func (s *Session) Sign(role models.Role, name string, png []byte) (*models.Document, error) {
	if len(png) == 0 {
		return nil, ErrEmptySignature
	}
	if _, err := models.NewImage(png, "signature"); err != nil {
		return nil, err
	}
	if name == "" {
		name = role.Label()
	}
	sig := models.Signature{Role: role, Name: name, Data: png, Timestamp: s.opts.Now()}
	return s.Apply(func(doc *models.Document) (*models.Document, error) {
		next := doc.Clone()
		next.Signatures = append(next.Signatures, sig)
		return next, nil
	})
}

// New abandons the current document for a fresh one. The old one stays in
// history as a draft.
func (s *Session) New() *models.Document {
	s.autosave.Flush()
	s.mu.Lock()
	s.doc = models.NewDocument(s.opts.Now())
	s.step = StepMeta
	out := s.doc.Clone()
	s.mu.Unlock()
	s.scheduleAutosave()
	return out
}

// Resume loads a draft history entry back into the session.
func (s *Session) Resume(ctx context.Context, id string) (*models.Document, error) {
	entry, err := s.opts.Repo.GetHistoryEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.StatusCompleted {
		return nil, ErrCompleted
	}
	s.autosave.Flush()
	s.mu.Lock()
	s.doc = entry.Document.Clone()
	s.step = StepMeta
	out := s.doc.Clone()
	s.mu.Unlock()
	s.scheduleAutosave()
	s.log.Info("protocol resumed", zap.String("document_id", id))
	return out, nil
}

// GeneratePDF renders the current document for download.
func (s *Session) GeneratePDF(ctx context.Context) (*utils.Artifact, error) {
	if !s.generatingPDF.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.generatingPDF.Store(false)

	art, err := s.opts.Renderer.Generate(ctx, s.Document())
	if err != nil {
		return nil, err
	}
	s.saveLocalCopy(art)
	return art, nil
}

// Submit renders, archives and transmits the protocol, then marks it
// completed and clears the draft. On failure the draft is left as it was.
func (s *Session) Submit(ctx context.Context, confirmed bool) (*SubmitOutcome, error) {
	doc := s.Document()
	if len(doc.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	if !confirmed {
		return nil, ErrNotConfirmed
	}
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.submitting.Store(false)

	log := s.log.With(zap.String("document_id", doc.ID))

	art, err := s.opts.Renderer.Generate(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.saveLocalCopy(art)

	var ref string
	if s.opts.Archiver != nil {
		url, err := s.opts.Archiver.Upload(ctx, art.PDF, art.Filename)
		if err != nil {
			log.Warn("archive upload failed", zap.Error(err))
		} else {
			ref = url
		}
	}

	res, err := s.opts.Submitter.Submit(ctx, art.PDF, art.Filename, doc)
	if err != nil {
		log.Error("submission failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if res.ArtifactURL != "" {
		ref = res.ArtifactURL
	}

	// waits out a running autosave; nothing may write the draft back after it is removed
	s.autosave.Stop()

	out := &SubmitOutcome{DocumentID: doc.ID, Filename: art.Filename, Pages: art.Pages, ArtifactURL: ref}
	var refPtr *string
	if ref != "" {
		refPtr = &ref
	}
	entry, err := s.opts.Repo.UpsertHistoryEntry(ctx, doc, models.StatusCompleted, refPtr)
	if err != nil {
		log.Error("mark protocol completed", zap.Error(err))
	}
	out.Entry = entry
	if err := s.opts.Repo.DeleteDraft(ctx); err != nil {
		log.Error("delete draft", zap.Error(err))
	}

	s.mu.Lock()
	if s.doc.ID == doc.ID {
		s.doc = models.NewDocument(s.opts.Now())
		s.step = StepMeta
	}
	s.mu.Unlock()

	log.Info("protocol completed", zap.Int("pages", art.Pages), zap.Bool("has_link", ref != ""))
	return out, nil
}

// Close writes any pending autosave.
func (s *Session) Close() {
	s.autosave.Flush()
}

func (s *Session) scheduleAutosave() {
	s.autosave.Schedule(s.persist)
}

// persist saves the draft and its history entry. Failures are logged and
// never reach the editor.
func (s *Session) persist() {
	doc := s.Document()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.opts.Repo.SaveDraft(ctx, doc); err != nil {
		s.log.Warn("autosave draft failed", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	if _, err := s.opts.Repo.UpsertHistoryEntry(ctx, doc, models.StatusDraft, nil); err != nil {
		s.log.Warn("autosave history failed", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	s.log.Debug("draft saved", zap.String("document_id", doc.ID))
}

func (s *Session) saveLocalCopy(art *utils.Artifact) {
	if s.opts.SavePath == "" {
		return
	}
	if err := os.MkdirAll(s.opts.SavePath, 0o755); err != nil {
		s.log.Warn("create pdf dir", zap.Error(err))
		return
	}
	name := filepath.Base(art.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		s.log.Warn("unusable pdf filename", zap.String("filename", art.Filename))
		return
	}
	path := filepath.Join(s.opts.SavePath, name)
	if err := os.WriteFile(path, art.PDF, 0o644); err != nil {
		s.log.Warn("save local pdf copy", zap.String("path", path), zap.Error(err))
		return
	}
	s.log.Info("pdf saved", zap.String("path", path))
}
