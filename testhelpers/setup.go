// Package testhelpers provides shared utilities for testing the AST
// index core.
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/standardbeagle/astindex/internal/config"
)

// NewTestConfig returns a Config tuned for fast, deterministic tests:
// watch mode and the watcher's gitignore handling are both off so a
// test controls indexing entirely through explicit Enqueue calls.
func NewTestConfig(projectRoot string) *config.Config {
	cfg := config.Default(projectRoot)
	cfg.Index.WatchMode = false
	cfg.Index.RespectGitignore = false
	cfg.Index.WatchDebounceMs = 10
	cfg.Chunker.TokenLimit = 200
	cfg.Chunker.OverlapLines = 2
	return cfg
}

// WriteProjectFiles materializes files (relative path -> content) under
// root, creating parent directories as needed.
func WriteProjectFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// WaitFor polls condition until it returns true or timeout elapses,
// failing the test on timeout.
func WaitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// AssertNoLeaks verifies no goroutine leaks occurred during the test —
// the indexer's Run/StartWatching goroutines are the ones this guards
// against; callers must call ix.Stop() before invoking this.
func AssertNoLeaks(t *testing.T) {
	t.Helper()
	if err := goleak.Find(goleak.IgnoreCurrent()); err != nil {
		t.Errorf("goroutine leak detected: %v", err)
	}
}

// SampleGo and SampleJS are small multi-symbol Go and JavaScript source
// fixtures.
const (
	SampleGo = `package widget

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello, " + name
}

type Counter struct {
	value int
}

func (c *Counter) Add(n int) int {
	c.value += n
	return c.value
}
`

	SampleJS = `function calculateSum(a, b) {
	return a + b;
}

class Calculator {
	constructor() {
		this.result = 0;
	}

	add(value) {
		this.result += value;
		return this;
	}
}
`
)
