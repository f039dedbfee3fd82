package quillerr

import (
	"fmt"
	"strings"
)

// Issue codes.
const (
	CodeMissingRequired = "missing_required"
	CodeTypeMismatch    = "type_mismatch"
	CodeInvalidFormat   = "invalid_format"
	CodeNotInEnum       = "not_in_enum"
)

// Issue is one offending field found during validation.
type Issue struct {
	Path     string
	Code     string
	Expected string
	Found    string
}

func (i Issue) String() string {
	switch i.Code {
	case CodeMissingRequired:
		return fmt.Sprintf("%s: missing required field", i.Path)
	case CodeNotInEnum:
		return fmt.Sprintf("%s: value %s is not one of %s", i.Path, i.Found, i.Expected)
	default:
		return fmt.Sprintf("%s: expected %s, found %s", i.Path, i.Expected, i.Found)
	}
}

// ValidationError collects every issue found in one document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Missing returns the paths reported as missing required fields, in the
// order they were found.
func (e *ValidationError) Missing() []string {
	var out []string
	for _, is := range e.Issues {
		if is.Code == CodeMissingRequired {
			out = append(out, is.Path)
		}
	}
	return out
}

// RenderError wraps a template failure. It never wraps ErrValidation.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("%s: %v", ErrRender, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrRender, e.Template, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// Warning is a non-fatal condition surfaced alongside a successful result.
type Warning struct {
	Code    string
	Message string
}

// WarnSchemaOverridden marks a [fields] section discarded in favour of an
// external schema file.
const WarnSchemaOverridden = "field_schema_overridden"

func (w Warning) String() string { return w.Code + ": " + w.Message }
