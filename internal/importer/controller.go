package importer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// State of the import pipeline.
type State string

const (
	StateInput      State = "input"
	StateExtracting State = "extracting"
	StatePreview    State = "preview"
	StateImporting  State = "importing"
	StateDone       State = "done"
)

// SessionStore keeps the review state across restarts. Optional.
type SessionStore interface {
	SaveSession(ctx context.Context, snap SessionSnapshot) error
	LoadSession(ctx context.Context) (*SessionSnapshot, error)
	DeleteSession(ctx context.Context) error
}

// Options wires a Controller.
type Options struct {
	Extractor  *Extractor
	Reconciler *Reconciler
	Executor   *Executor
	Catalog    Catalog
	Store      SessionStore // nil disables persistence

	ExtractTimeout time.Duration
	CommitTimeout  time.Duration

	// OnImported runs after a successful commit that changed the catalog.
	OnImported func(*domain.ImportResult)

	Log logger.Logger
}

// Controller owns the single import session and sequences
// Input -> Extracting -> Preview -> Importing -> Done.
//
// The lock is not held during extraction and commit; the Extracting and
// Importing states reject every other action instead.
type Controller struct {
	mu sync.Mutex

	state   State
	rawText string
	lastErr error
	session *Session
	result  *domain.ImportResult

	opts Options
	log  logger.Logger
}

func NewController(opts Options) *Controller {
	if opts.Reconciler == nil {
		opts.Reconciler = NewReconciler(nil)
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 90 * time.Second
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 30 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{state: StateInput, opts: opts, log: log}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit runs extraction on rawText. Allowed only in Input. On failure the
// controller stays in Input with the text kept and the error recorded.
func (c *Controller) Submit(ctx context.Context, rawText string) error {
	c.mu.Lock()
	if c.state != StateInput {
		err := &InvalidTransitionError{State: c.state, Action: "extract"}
		c.mu.Unlock()
		return err
	}

	c.rawText = rawText
	c.session = nil
	c.result = nil

	if strings.TrimSpace(rawText) == "" {
		c.lastErr = &EmptyInputError{}
		c.mu.Unlock()
		return c.lastErr
	}

	c.lastErr = nil
	c.state = StateExtracting
	c.mu.Unlock()

	c.log.Info("import extraction started", logger.Int("chars", len(rawText)))

	// Transport timeouts end the call, not the operator disconnecting.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ExtractTimeout)
	defer cancel()

	var (
		sections []domain.Section
		ex       *Extraction
		err      error
	)
	sections, err = c.opts.Catalog.ListSections(callCtx)
	if err != nil {
		err = &CatalogUnavailableError{Err: err}
	} else {
		ex, err = c.opts.Extractor.Extract(callCtx, rawText)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state = StateInput
		c.lastErr = err
		c.log.Warn("import extraction failed", logger.String("kind", Kind(err)), logger.Error(err))
		return err
	}

	mapping := c.opts.Reconciler.Reconcile(ex.Candidates, sections)
	c.session = NewSession(rawText, ex, mapping, sections)
	c.state = StatePreview
	c.persistLocked(ctx)

	c.log.Info("import preview ready",
		logger.String("session_id", c.session.ID()),
		logger.Int("candidates", c.session.Len()),
		logger.Int("labels", len(mapping)),
	)
	return nil
}

// mutate runs fn on the session while in Preview and saves the result.
func (c *Controller) mutate(ctx context.Context, action string, fn func(s *Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePreview || c.session == nil {
		return &InvalidTransitionError{State: c.state, Action: action}
	}
	if err := fn(c.session); err != nil {
		return err
	}
	c.session.seedMissing(c.opts.Reconciler)
	c.persistLocked(ctx)
	return nil
}

func (c *Controller) Select(ctx context.Context, idx int) error {
	return c.mutate(ctx, "select", func(s *Session) error { return s.Select(idx) })
}

func (c *Controller) Deselect(ctx context.Context, idx int) error {
	return c.mutate(ctx, "deselect", func(s *Session) error { return s.Deselect(idx) })
}

func (c *Controller) SelectAll(ctx context.Context) error {
	return c.mutate(ctx, "select all", func(s *Session) error { s.SelectAll(); return nil })
}

func (c *Controller) SelectNone(ctx context.Context) error {
	return c.mutate(ctx, "select none", func(s *Session) error { s.SelectNone(); return nil })
}

func (c *Controller) Edit(ctx context.Context, idx int, field Field, value string) error {
	return c.mutate(ctx, "edit", func(s *Session) error { return s.Edit(idx, field, value) })
}

// AddCandidate appends a manually entered candidate and returns its index.
func (c *Controller) AddCandidate(ctx context.Context, cand domain.LinkCandidate) (int, error) {
	var idx int
	err := c.mutate(ctx, "add", func(s *Session) error {
		var err error
		idx, err = s.Add(cand)
		return err
	})
	return idx, err
}

func (c *Controller) Remove(ctx context.Context, idx int) error {
	return c.mutate(ctx, "remove", func(s *Session) error { return s.Remove(idx) })
}

// SetEditing opens idx for editing, or closes editing when idx is NoEditing.
func (c *Controller) SetEditing(ctx context.Context, idx int) error {
	return c.mutate(ctx, "edit", func(s *Session) error {
		if idx == NoEditing {
			s.EndEdit()
			return nil
		}
		return s.BeginEdit(idx)
	})
}

func (c *Controller) SetMapping(ctx context.Context, label string, target domain.MappingTarget) error {
	return c.mutate(ctx, "change mapping", func(s *Session) error { return s.SetMapping(label, target) })
}

// Commit imports the selected candidates. It works on a copy of the
// selection and mapping taken before the call. On failure the controller
// returns to Preview with the review state unchanged.
func (c *Controller) Commit(ctx context.Context) (*domain.ImportResult, error) {
	c.mu.Lock()
	if c.state != StatePreview || c.session == nil {
		err := &InvalidTransitionError{State: c.state, Action: "commit"}
		c.mu.Unlock()
		return nil, err
	}

	selected := c.session.Selected()
	if len(selected) == 0 {
		c.lastErr = &EmptySelectionError{}
		c.mu.Unlock()
		return nil, c.lastErr
	}
	mapping := c.session.ResolvedMapping()
	sessionID := c.session.ID()

	c.lastErr = nil
	c.state = StateImporting
	c.mu.Unlock()

	c.log.Info("import commit started", logger.String("session_id", sessionID), logger.Int("selected", len(selected)))

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CommitTimeout)
	defer cancel()

	result, err := c.opts.Executor.Commit(callCtx, selected, mapping)

	c.mu.Lock()
	if err != nil {
		c.state = StatePreview
		c.lastErr = err
		c.mu.Unlock()
		c.log.Error("import commit failed", logger.String("session_id", sessionID), logger.Error(err))
		return nil, err
	}

	c.state = StateDone
	c.result = result
	c.deleteStoredLocked(ctx)
	c.mu.Unlock()

	c.log.Info("import done", logger.String("session_id", sessionID), logger.String("summary", result.Summary))

	if c.opts.OnImported != nil && (result.Imported > 0 || result.Created() > 0) {
		c.opts.OnImported(result)
	}
	return result, nil
}

// Reset discards the session, the raw text and any result. Not allowed
// while a call is in flight.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateExtracting || c.state == StateImporting {
		return &InvalidTransitionError{State: c.state, Action: "start over"}
	}

	c.state = StateInput
	c.rawText = ""
	c.lastErr = nil
	c.session = nil
	c.result = nil
	c.deleteStoredLocked(ctx)

	c.log.Info("import reset")
	return nil
}

// Restore resumes a saved review. Only valid in Input with no text typed.
func (c *Controller) Restore(snap SessionSnapshot) error {
	s, err := RestoreSession(snap)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInput || c.rawText != "" {
		return &InvalidTransitionError{State: c.state, Action: "restore"}
	}

	c.session = s
	c.rawText = s.RawText()
	c.state = StatePreview

	c.log.Info("import session restored", logger.String("session_id", s.ID()), logger.Int("candidates", s.Len()))
	return nil
}

// persistLocked saves the session. Failures are logged only.
func (c *Controller) persistLocked(ctx context.Context) {
	if c.opts.Store == nil || c.session == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.opts.Store.SaveSession(saveCtx, c.session.Snapshot()); err != nil {
		c.log.Warn("import session not saved", logger.String("session_id", c.session.ID()), logger.Error(err))
	}
}

func (c *Controller) deleteStoredLocked(ctx context.Context) {
	if c.opts.Store == nil {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.opts.Store.DeleteSession(delCtx); err != nil {
		c.log.Warn("saved import session not deleted", logger.Error(err))
	}
}
