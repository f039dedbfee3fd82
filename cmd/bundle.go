package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/quill/internal/backend/text"
	"github.com/agentic-research/quill/internal/document"
	"github.com/agentic-research/quill/internal/engine"
	"github.com/agentic-research/quill/internal/logger"
	"github.com/agentic-research/quill/internal/quill"
	"github.com/agentic-research/quill/internal/store"
)

// newEngine returns an engine with the built-in backends registered.
func newEngine() (*engine.Engine, error) {
	e := engine.New()
	if err := e.RegisterBackend(text.New()); err != nil {
		return nil, err
	}
	return e, nil
}

// loadBundle assembles the bundle at p: a directory, a .json file in the
// wire format, or DB#NAME for a bundle saved with "quill store put".
func loadBundle(e *engine.Engine, p string) (*quill.Quill, error) {
	opt := quill.WithBackends(e.Backends().Capabilities)

	info, err := os.Stat(p)
	if err != nil {
		if db, name, ok := strings.Cut(p, "#"); ok {
			return loadStored(db, name, opt)
		}
		return nil, err
	}

	var q *quill.Quill
	switch {
	case info.IsDir():
		q, err = quill.FromDir(p, opt)
	case strings.EqualFold(filepath.Ext(p), ".json"):
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil, rerr
		}
		q, err = quill.FromJSON(data, opt)
	default:
		return nil, fmt.Errorf("%s: expected a bundle directory or a .json bundle", p)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p, err)
	}
	logger.Debug("loaded quill %s from %s", q.Name(), p)
	return q, nil
}

func loadStored(db, name string, opt quill.Option) (*quill.Quill, error) {
	if _, err := os.Stat(db); err != nil {
		return nil, err
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	tree, err := st.Tree(context.Background(), name)
	if err != nil {
		return nil, err
	}
	q, err := quill.New(tree, name, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s#%s: %w", db, name, err)
	}
	return q, nil
}

// loadRegistered loads the bundle and registers it with a fresh engine.
func loadRegistered(p string) (*engine.Engine, *quill.Quill, error) {
	e, err := newEngine()
	if err != nil {
		return nil, nil, err
	}
	q, err := loadBundle(e, p)
	if err != nil {
		return nil, nil, err
	}
	if err := e.RegisterQuill(q); err != nil {
		return nil, nil, err
	}
	return e, q, nil
}

func readDocument(p string) (*document.Parsed, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return doc, nil
}
