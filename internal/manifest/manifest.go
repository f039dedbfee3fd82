// Package manifest parses Quill.toml into a validated Config.
//
// A manifest has a [Quill] section (name, backend, description, and
// optional version, author, glue_file, example_file, json_schema_file; any
// other key becomes metadata), an optional [fields] table of field schemas,
// and an optional table named after the backend id holding backend
// settings.
//
// Glue rules are checked here when the backend's capabilities are known.
// Whether the backend is registered at all is left to the caller.
package manifest

import (
	"errors"
	"fmt"

	"github.com/agentic-research/quill/internal/backend"
	"github.com/agentic-research/quill/internal/logger"
	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

// FileName is the manifest's path at the bundle root.
const FileName = "Quill.toml"

const (
	sectionQuill  = "Quill"
	sectionFields = "fields"
)

var knownQuillKeys = map[string]bool{
	"name":             true,
	"backend":          true,
	"description":      true,
	"version":          true,
	"author":           true,
	"glue_file":        true,
	"example_file":     true,
	"json_schema_file": true,
}

// Config is the parsed manifest.
type Config struct {
	Name        string
	Description string
	Backend     string
	Version     string
	Author      string
	GlueFile    string
	ExampleFile string
	SchemaFile  string
	// Fields are in declaration order. Empty when SchemaFile is set.
	Fields        []FieldSchema
	Metadata      *value.Map
	BackendConfig *value.Map
}

// CapabilityLookup resolves a backend id. It may be nil.
type CapabilityLookup func(id string) (backend.Capabilities, bool)

// Parse decodes and validates a manifest.
func Parse(data []byte, lookup CapabilityLookup) (*Config, []quillerr.Warning, error) {
	doc, err := value.FromTOML(data)
	if err != nil {
		return nil, nil, &quillerr.ConfigError{Kind: quillerr.ErrInvalidManifest, Err: err}
	}
	root, _ := doc.AsMap()

	section, ok := root.Get(sectionQuill)
	if !ok {
		return nil, nil, &quillerr.StructureError{
			Kind: quillerr.ErrMissingName,
			Path: FileName,
			Err:  errors.New("missing [Quill] section"),
		}
	}
	quill, ok := section.AsMap()
	if !ok {
		return nil, nil, typeErr(sectionQuill, "table", section)
	}

	cfg := &Config{Metadata: value.NewMap(), BackendConfig: value.NewMap()}
	if cfg.Name, err = optString(quill, "name", sectionQuill); err != nil {
		return nil, nil, err
	}
	if cfg.Name == "" {
		return nil, nil, &quillerr.StructureError{Kind: quillerr.ErrMissingName, Path: FileName}
	}
	if cfg.Backend, err = requiredString(quill, "backend"); err != nil {
		return nil, nil, err
	}
	if cfg.Description, err = requiredString(quill, "description"); err != nil {
		return nil, nil, err
	}
	for _, opt := range []struct {
		key string
		dst *string
	}{
		{"version", &cfg.Version},
		{"author", &cfg.Author},
		{"glue_file", &cfg.GlueFile},
		{"example_file", &cfg.ExampleFile},
		{"json_schema_file", &cfg.SchemaFile},
	} {
		if *opt.dst, err = optString(quill, opt.key, sectionQuill); err != nil {
			return nil, nil, err
		}
	}
	quill.Range(func(k string, v value.Value) bool {
		if !knownQuillKeys[k] {
			cfg.Metadata.Set(k, v.Clone())
		}
		return true
	})

	if raw, ok := root.Get(sectionFields); ok {
		tbl, ok := raw.AsMap()
		if !ok {
			return nil, nil, typeErr(sectionFields, "table", raw)
		}
		for _, name := range tbl.Keys() {
			v, _ := tbl.Get(name)
			f, err := parseField(name, v)
			if err != nil {
				return nil, nil, err
			}
			cfg.Fields = append(cfg.Fields, f)
		}
	}

	if raw, ok := root.Get(cfg.Backend); ok && cfg.Backend != sectionQuill && cfg.Backend != sectionFields {
		tbl, ok := raw.AsMap()
		if !ok {
			return nil, nil, typeErr(cfg.Backend, "table", raw)
		}
		cfg.BackendConfig = tbl.Clone()
	}

	if lookup != nil {
		if caps, ok := lookup(cfg.Backend); ok {
			if err := backend.CheckGlue(caps, cfg.GlueFile); err != nil {
				return nil, nil, err
			}
		}
	}

	var warnings []quillerr.Warning
	if cfg.SchemaFile != "" && len(cfg.Fields) > 0 {
		w := quillerr.Warning{
			Code: quillerr.WarnSchemaOverridden,
			Message: fmt.Sprintf("quill %s: [fields] ignored, schema is read from %s",
				cfg.Name, cfg.SchemaFile),
		}
		logger.Warn("%s", w.Message)
		warnings = append(warnings, w)
		cfg.Fields = nil
	}
	return cfg, warnings, nil
}

func requiredString(tbl *value.Map, key string) (string, error) {
	s, err := optString(tbl, key, sectionQuill)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &quillerr.ConfigError{
			Kind:     quillerr.ErrMissingField,
			Key:      sectionQuill + "." + key,
			Expected: "non-empty string",
		}
	}
	return s, nil
}

func optString(tbl *value.Map, key, parent string) (string, error) {
	v, ok := tbl.Get(key)
	if !ok {
		return "", nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", typeErr(parent+"."+key, "string", v)
	}
	return s, nil
}

func typeErr(key, expected string, found value.Value) error {
	return &quillerr.ConfigError{
		Kind:     quillerr.ErrInvalidManifest,
		Key:      key,
		Expected: expected,
		Found:    found.TypeName(),
	}
}
