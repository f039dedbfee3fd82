// Package quillerr defines the error taxonomy shared by bundle assembly,
// manifest parsing, validation and rendering.
//
// Every typed error unwraps to one of the sentinel kinds below, so callers
// branch with errors.Is and read details with errors.As.
package quillerr

import (
	"errors"
	"fmt"
	"strings"
)

// Structure kinds abort assembly; no partial Quill is ever returned.
var (
	ErrMissingManifest = errors.New("missing manifest")
	ErrMissingName     = errors.New("missing name")
	ErrInvalidNode     = errors.New("invalid node")
	ErrInvalidPath     = errors.New("invalid path")
	ErrMissingFile     = errors.New("missing referenced file")
	ErrInvalidEncoding = errors.New("invalid encoding")
	ErrIO              = errors.New("i/o failure")
)

// Config kinds are raised while parsing the manifest.
var (
	ErrInvalidManifest          = errors.New("invalid manifest")
	ErrMissingField             = errors.New("missing manifest field")
	ErrInvalidFieldType         = errors.New("invalid field type")
	ErrDefaultTypeMismatch      = errors.New("default does not match field type")
	ErrUnsupportedGlueExtension = errors.New("unsupported glue extension")
	ErrAutoGlueNotSupported     = errors.New("auto glue not supported")
)

// Per-document kinds.
var (
	ErrValidation = errors.New("validation failed")
	ErrRender     = errors.New("render failed")
)

// StructureError reports a malformed bundle.
type StructureError struct {
	Kind error
	Path string
	// Role names what a referenced file was for: "glue", "example" or "schema".
	Role string
	Err  error
}

func (e *StructureError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Role != "" {
		fmt.Fprintf(&b, ": %s file", e.Role)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %q", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StructureError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConfigError reports a manifest that parsed but is semantically wrong.
type ConfigError struct {
	Kind     error
	Key      string
	Expected string
	Found    string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Key != "" {
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	if e.Expected != "" || e.Found != "" {
		fmt.Fprintf(&b, ": expected %s, found %s", orNone(e.Expected), orNone(e.Found))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
