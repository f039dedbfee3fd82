// Package quill assembles Quills: template bundles made of a file tree, a
// manifest, and a field schema.
//
// Every load path reduces its input to a filetree.Tree and hands it to New,
// so a bundle read from disk, from a billy filesystem, or from a JSON wire
// description is validated identically and yields identical state.
package quill

import (
	"errors"
	"unicode/utf8"

	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/logger"
	"github.com/agentic-research/quill/internal/manifest"
	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/schema"
	"github.com/agentic-research/quill/internal/value"
)

// Quill is an assembled bundle. It is never modified after New returns, so
// one Quill may serve any number of concurrent compilations. Accessors hand
// out copies of mutable state.
type Quill struct {
	name        string
	backend     string
	description string
	version     string
	author      string
	glueFile    string
	glue        *string
	example     *string

	schema        value.Value
	defaults      *value.Map
	examples      *value.Map
	metadata      *value.Map
	backendConfig *value.Map

	files    *filetree.Tree
	warnings []quillerr.Warning
}

type options struct {
	lookup manifest.CapabilityLookup
}

// Option configures assembly.
type Option func(*options)

// WithBackends lets the manifest parser check glue rules against the
// backend's capabilities when lookup knows it.
func WithBackends(lookup manifest.CapabilityLookup) Option {
	return func(o *options) { o.lookup = lookup }
}

// New assembles a Quill from root. defaultName is accepted so every load
// path shares one signature; the manifest name is mandatory and always used.
func New(root *filetree.Tree, defaultName string, opts ...Option) (*Quill, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	// The Quill owns its files; later changes to the caller's tree do not
	// reach it.
	root = root.Clone()

	data, ok := root.GetFile(manifest.FileName)
	if !ok {
		return nil, &quillerr.StructureError{Kind: quillerr.ErrMissingManifest, Path: manifest.FileName}
	}
	cfg, warnings, err := manifest.Parse(data, o.lookup)
	if err != nil {
		return nil, err
	}
	if defaultName != "" && defaultName != cfg.Name {
		logger.Debug("quill %s: caller name %q ignored", cfg.Name, defaultName)
	}

	q := &Quill{
		name:          cfg.Name,
		backend:       cfg.Backend,
		description:   cfg.Description,
		version:       cfg.Version,
		author:        cfg.Author,
		glueFile:      cfg.GlueFile,
		backendConfig: cfg.BackendConfig,
		files:         root,
		warnings:      warnings,
	}

	if cfg.GlueFile != "" {
		text, err := readText(root, cfg.GlueFile, "glue")
		if err != nil {
			return nil, err
		}
		q.glue = &text
	}
	if cfg.ExampleFile != "" {
		text, err := readText(root, cfg.ExampleFile, "example")
		if err != nil {
			return nil, err
		}
		q.example = &text
	}

	if cfg.SchemaFile != "" {
		text, err := readText(root, cfg.SchemaFile, "schema")
		if err != nil {
			return nil, err
		}
		doc, err := value.FromJSON([]byte(text))
		if err != nil {
			return nil, &quillerr.ConfigError{Kind: quillerr.ErrInvalidManifest, Key: "json_schema_file", Err: err}
		}
		if doc.Kind() != value.KindMapping {
			return nil, &quillerr.ConfigError{
				Kind:     quillerr.ErrInvalidManifest,
				Key:      "json_schema_file",
				Expected: "object",
				Found:    doc.TypeName(),
			}
		}
		q.schema = doc
	} else {
		q.schema = schema.Build(cfg.Fields)
	}

	q.defaults = schema.Defaults(q.schema)
	q.examples = schema.Examples(q.schema)
	q.metadata = buildMetadata(cfg)

	logger.Debug("quill %s: assembled (backend %s, %d files, %d defaults)",
		q.name, q.backend, len(root.Files()), q.defaults.Len())
	return q, nil
}

func buildMetadata(cfg *manifest.Config) *value.Map {
	m := value.NewMap()
	m.Set("backend", value.String(cfg.Backend))
	m.Set("description", value.String(cfg.Description))
	if cfg.Version != "" {
		m.Set("version", value.String(cfg.Version))
	}
	if cfg.Author != "" {
		m.Set("author", value.String(cfg.Author))
	}
	cfg.Metadata.Range(func(k string, v value.Value) bool {
		if !m.Has(k) {
			m.Set(k, v.Clone())
		}
		return true
	})
	return m
}

// readText loads a file the manifest refers to.
func readText(root *filetree.Tree, p, role string) (string, error) {
	n, err := root.Lookup(p)
	if err != nil {
		var se *quillerr.StructureError
		if errors.As(err, &se) {
			return "", &quillerr.StructureError{Kind: se.Kind, Path: p, Role: role}
		}
		return "", &quillerr.StructureError{Kind: quillerr.ErrMissingFile, Path: p, Role: role}
	}
	if n.IsDir() {
		return "", &quillerr.StructureError{Kind: quillerr.ErrMissingFile, Path: p, Role: role, Err: errors.New("is a directory")}
	}
	if !utf8.Valid(n.Contents) {
		return "", &quillerr.StructureError{Kind: quillerr.ErrInvalidEncoding, Path: p, Role: role}
	}
	return string(n.Contents), nil
}

func (q *Quill) Name() string        { return q.name }
func (q *Quill) Backend() string     { return q.backend }
func (q *Quill) Description() string { return q.description }
func (q *Quill) Version() string     { return q.version }
func (q *Quill) Author() string      { return q.author }

// GlueFile is the manifest's glue path, empty when glue is generated.
func (q *Quill) GlueFile() string { return q.glueFile }

// Glue returns the glue template text, if the bundle has one.
func (q *Quill) Glue() (string, bool) {
	if q.glue == nil {
		return "", false
	}
	return *q.glue, true
}

// Example returns the example document text, if the bundle has one.
func (q *Quill) Example() (string, bool) {
	if q.example == nil {
		return "", false
	}
	return *q.example, true
}

func (q *Quill) Schema() value.Value { return q.schema.Clone() }

// Defaults maps field name to default value, in schema property order.
func (q *Quill) Defaults() *value.Map { return q.defaults.Clone() }

// WithDefaults returns a copy of fields with every missing default added.
// It reads the cached defaults in place.
func (q *Quill) WithDefaults(fields *value.Map) *value.Map {
	out := fields.Clone()
	q.defaults.Range(func(name string, def value.Value) bool {
		if !out.Has(name) {
			out.Set(name, def.Clone())
		}
		return true
	})
	return out
}

// Validate checks fields against the cached schema.
func (q *Quill) Validate(fields *value.Map) error {
	return schema.Validate(q.schema, fields)
}

// Examples maps field name to a sequence of example values.
func (q *Quill) Examples() *value.Map { return q.examples.Clone() }

func (q *Quill) Metadata() *value.Map      { return q.metadata.Clone() }
func (q *Quill) BackendConfig() *value.Map { return q.backendConfig.Clone() }

// Files returns a copy of the bundle's file tree.
func (q *Quill) Files() *filetree.Tree { return q.files.Clone() }

// Warnings are the non-fatal conditions met during assembly.
func (q *Quill) Warnings() []quillerr.Warning {
	return append([]quillerr.Warning(nil), q.warnings...)
}
