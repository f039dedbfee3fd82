// Package text is a plain-text backend: the compiled artifact is the
// rendered glue itself. It accepts .txt and .md glue and allows auto glue.
package text

import (
	"context"
	"fmt"

	"github.com/agentic-research/quill/internal/backend"
	"github.com/agentic-research/quill/internal/filetree"
)

const (
	ID = "text"

	FormatTXT backend.OutputFormat = "txt"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) ID() string                               { return ID }
func (*Backend) SupportedFormats() []backend.OutputFormat { return []backend.OutputFormat{FormatTXT} }
func (*Backend) GlueExtensionTypes() []string             { return []string{".txt", ".md"} }
func (*Backend) AllowAutoGlue() bool                      { return true }

func (b *Backend) Compile(ctx context.Context, glue string, _ *filetree.Tree, format backend.OutputFormat) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !backend.Supports(b, format) {
		return nil, &backend.CompilationError{
			Backend:     ID,
			Diagnostics: []backend.Diagnostic{{Severity: "error", Message: fmt.Sprintf("unsupported format %q", format)}},
		}
	}
	return []byte(glue), nil
}
