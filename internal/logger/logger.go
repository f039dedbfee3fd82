// Package logger is the process-wide log sink for quill. It wraps the
// standard log package; debug and info lines are only emitted in verbose
// mode, warnings always are.
package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	std     = log.New(os.Stderr, "quill: ", log.LstdFlags)
)

// SetVerbose enables or disables debug and info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output. Tests use this to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

func Debug(format string, args ...any) {
	emit(true, "[DEBUG] ", format, args)
}

func Info(format string, args ...any) {
	emit(true, "[INFO] ", format, args)
}

// Warn is printed regardless of verbosity.
func Warn(format string, args ...any) {
	emit(false, "[WARN] ", format, args)
}

// Section prints a header line in verbose mode.
func Section(name string) {
	emit(true, "", "=== %s ===", []any{name})
}

func emit(gated bool, level, format string, args []any) {
	mu.RLock()
	defer mu.RUnlock()
	if gated && !verbose {
		return
	}
	std.Printf(level+format, args...)
}
