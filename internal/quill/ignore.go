package quill

import (
	"bufio"
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/quill/internal/quillerr"
)

// IgnoreFile lists paths excluded when reading a bundle from a filesystem.
const IgnoreFile = ".quillignore"

var defaultIgnore = ignoreRules{".git/", ".gitignore", IgnoreFile, "target/", "node_modules/"}

// ignoreRules are gitignore-like patterns: "dir/" matches a directory and
// everything under it, a plain name matches that name at any depth, and
// "*", "?" and "[...]" glob against the whole path or its last element.
type ignoreRules []string

func loadIgnore(fsys billy.Filesystem) (ignoreRules, error) {
	data, err := util.ReadFile(fsys, IgnoreFile)
	if os.IsNotExist(err) {
		return defaultIgnore, nil
	}
	if err != nil {
		return nil, &quillerr.StructureError{Kind: quillerr.ErrIO, Path: IgnoreFile, Err: err}
	}
	return parseIgnore(string(data)), nil
}

func parseIgnore(content string) ignoreRules {
	var rules ignoreRules
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	return rules
}

func (r ignoreRules) ignored(rel string) bool {
	for _, p := range r {
		if matchIgnore(p, rel) {
			return true
		}
	}
	return false
}

func matchIgnore(pattern, rel string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		return rel == dir || strings.HasPrefix(rel, dir+"/")
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return rel == pattern || strings.HasSuffix(rel, "/"+pattern)
	}
	if ok, _ := path.Match(pattern, rel); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(rel))
	return ok
}
