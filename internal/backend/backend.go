// Package backend defines the capability contract a compilation backend
// offers to bundle assembly, and a registry of backends keyed by id.
package backend

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/quillerr"
)

var (
	ErrDuplicateBackend = errors.New("backend already registered")
	ErrUnknownBackend   = errors.New("backend not registered")
)

// OutputFormat names an artifact format, e.g. "pdf" or "txt".
type OutputFormat string

// Capabilities is the part of a backend bundle assembly depends on.
type Capabilities interface {
	ID() string
	SupportedFormats() []OutputFormat
	// GlueExtensionTypes lists accepted glue file extensions including the
	// leading dot. An empty list disables custom glue.
	GlueExtensionTypes() []string
	AllowAutoGlue() bool
}

// Backend compiles rendered glue plus the bundle's files into an artifact.
type Backend interface {
	Capabilities
	Compile(ctx context.Context, glue string, files *filetree.Tree, format OutputFormat) ([]byte, error)
}

// Supports reports whether caps can produce format.
func Supports(caps Capabilities, format OutputFormat) bool {
	return slices.Contains(caps.SupportedFormats(), format)
}

// CheckGlue applies the glue rules: a declared glue file must carry one of
// the backend's extensions, and a missing one requires auto glue.
func CheckGlue(caps Capabilities, glueFile string) error {
	if glueFile == "" {
		if !caps.AllowAutoGlue() {
			return &quillerr.ConfigError{
				Kind:     quillerr.ErrAutoGlueNotSupported,
				Key:      "glue_file",
				Expected: fmt.Sprintf("a glue file for backend %q", caps.ID()),
			}
		}
		return nil
	}
	ext := path.Ext(glueFile)
	if !slices.Contains(caps.GlueExtensionTypes(), ext) {
		return &quillerr.ConfigError{
			Kind:     quillerr.ErrUnsupportedGlueExtension,
			Key:      "glue_file",
			Expected: "one of [" + strings.Join(caps.GlueExtensionTypes(), ", ") + "]",
			Found:    orQuoted(ext, glueFile),
		}
	}
	return nil
}

func orQuoted(ext, file string) string {
	if ext == "" {
		return fmt.Sprintf("no extension on %q", file)
	}
	return ext
}

// Diagnostic is one message reported by a backend compiler.
type Diagnostic struct {
	Severity string
	Message  string
	Path     string
	Line     int
}

func (d Diagnostic) String() string {
	loc := d.Path
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.Path, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Severity, d.Message)
}

// CompilationError is returned by Compile when the backend rejects its input.
type CompilationError struct {
	Backend     string
	Diagnostics []Diagnostic
}

func (e *CompilationError) Error() string {
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = d.String()
	}
	return fmt.Sprintf("backend %s: compilation failed: %s", e.Backend, strings.Join(parts, "; "))
}

// Registry maps backend ids to backends. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b. Registering an id twice fails.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[b.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBackend, b.ID())
	}
	r.backends[b.ID()] = b
	return nil
}

func (r *Registry) Lookup(id string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[id]
	return b, ok
}

// Capabilities looks up id for manifest parsing.
func (r *Registry) Capabilities(id string) (Capabilities, bool) {
	b, ok := r.Lookup(id)
	if !ok {
		return nil, false
	}
	return b, true
}

// IDs returns registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.backends))
	for id := range r.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
