// Package engine is the host side of quill: it owns the registered backends
// and Quills and runs documents through them.
//
// An Engine is an explicit value; callers create as many as they need.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/agentic-research/quill/internal/backend"
	"github.com/agentic-research/quill/internal/document"
	"github.com/agentic-research/quill/internal/glue"
	"github.com/agentic-research/quill/internal/logger"
	"github.com/agentic-research/quill/internal/pipeline"
	"github.com/agentic-research/quill/internal/quill"
)

var (
	ErrDuplicateQuill    = errors.New("quill already registered")
	ErrUnknownQuill      = errors.New("quill not registered")
	ErrUnsupportedFormat = errors.New("output format not supported")
)

// ErrUnknownBackend is returned when a Quill names a backend the engine
// does not have.
var ErrUnknownBackend = backend.ErrUnknownBackend

type Engine struct {
	backends *backend.Registry

	mu     sync.RWMutex
	quills map[string]*quill.Quill
}

func New() *Engine {
	return &Engine{
		backends: backend.NewRegistry(),
		quills:   make(map[string]*quill.Quill),
	}
}

func (e *Engine) RegisterBackend(b backend.Backend) error {
	if err := e.backends.Register(b); err != nil {
		return err
	}
	logger.Debug("engine: backend %s registered", b.ID())
	return nil
}

// Backends exposes the registry, e.g. for quill.WithBackends.
func (e *Engine) Backends() *backend.Registry { return e.backends }

// RegisterQuill adds q. Its backend must be registered and must accept
// its glue.
func (e *Engine) RegisterQuill(q *quill.Quill) error {
	b, ok := e.backends.Lookup(q.Backend())
	if !ok {
		return fmt.Errorf("quill %s: %w: %s", q.Name(), ErrUnknownBackend, q.Backend())
	}
	if err := backend.CheckGlue(b, q.GlueFile()); err != nil {
		return fmt.Errorf("quill %s: %w", q.Name(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.quills[q.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateQuill, q.Name())
	}
	e.quills[q.Name()] = q
	logger.Debug("engine: quill %s registered (backend %s)", q.Name(), q.Backend())
	return nil
}

// Unregister drops the named Quill and reports whether it was present.
func (e *Engine) Unregister(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.quills[name]
	delete(e.quills, name)
	return ok
}

func (e *Engine) Quill(name string) (*quill.Quill, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, ok := e.quills[name]
	return q, ok
}

// Quills returns registered Quill names, sorted.
func (e *Engine) Quills() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.quills))
	for name := range e.quills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Workflow prepares the named Quill for rendering.
func (e *Engine) Workflow(name string) (*Workflow, error) {
	q, ok := e.Quill(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuill, name)
	}
	b, ok := e.backends.Lookup(q.Backend())
	if !ok {
		return nil, fmt.Errorf("quill %s: %w: %s", name, ErrUnknownBackend, q.Backend())
	}
	r, err := pipeline.Glue(q)
	if err != nil {
		return nil, err
	}
	return &Workflow{quill: q, backend: b, glue: r}, nil
}

// WorkflowFor picks the Quill named by the document's QUILL tag.
func (e *Engine) WorkflowFor(doc *document.Parsed) (*Workflow, error) {
	return e.Workflow(doc.QuillTag())
}

// Workflow renders documents with one Quill and its backend. It holds no
// per-document state and may be used concurrently.
type Workflow struct {
	quill   *quill.Quill
	backend backend.Backend
	glue    glue.Renderer
}

// Artifact is a compiled document.
type Artifact struct {
	Bytes  []byte
	Format backend.OutputFormat
	// RunID correlates log lines of one render.
	RunID string
}

func (w *Workflow) Quill() *quill.Quill { return w.quill }

// Process defaults, validates and renders doc to backend source text.
func (w *Workflow) Process(doc *document.Parsed) (string, error) {
	return pipeline.Render(w.quill, doc.Fields(), w.glue)
}

// Render processes doc and compiles it. An empty format selects the
// backend's first supported format.
func (w *Workflow) Render(ctx context.Context, doc *document.Parsed, format backend.OutputFormat) (*Artifact, error) {
	if format == "" {
		formats := w.backend.SupportedFormats()
		if len(formats) == 0 {
			return nil, fmt.Errorf("backend %s: %w", w.backend.ID(), ErrUnsupportedFormat)
		}
		format = formats[0]
	}
	if !backend.Supports(w.backend, format) {
		return nil, fmt.Errorf("backend %s: %w: %s", w.backend.ID(), ErrUnsupportedFormat, format)
	}

	runID := uuid.NewString()
	logger.Info("render %s: quill %s, backend %s, format %s", runID, w.quill.Name(), w.backend.ID(), format)

	src, err := w.Process(doc)
	if err != nil {
		logger.Debug("render %s: %v", runID, err)
		return nil, err
	}
	out, err := w.backend.Compile(ctx, src, w.quill.Files(), format)
	if err != nil {
		logger.Debug("render %s: compile: %v", runID, err)
		return nil, err
	}
	logger.Info("render %s: %d bytes", runID, len(out))
	return &Artifact{Bytes: out, Format: format, RunID: runID}, nil
}
