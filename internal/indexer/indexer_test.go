package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/types"
)

func newTestIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()
	root := t.TempDir()
	db, err := astdb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default(root)
	cfg.Index.WatchMode = false
	ix := New(cfg, parser.NewBank(), db)
	return ix, root
}

func runBatch(t *testing.T, ix *Indexer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ix.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		snap := ix.Status().Snapshot()
		if snap.State == types.StateIdle {
			break
		}
		select {
		case <-ix.Status().WaitForWake():
		case <-deadline:
			t.Fatal("timed out waiting for indexer to go idle")
		}
	}
	cancel()
	<-done
}

// TestIndexerIndexesAndRemovesFile grounds scenario S3: a file is
// indexed, then removed, and its definitions disappear.
func TestIndexerIndexesAndRemovesFile(t *testing.T) {
	ix, root := newTestIndexer(t)
	cpath := filepath.Join(root, "animal.go")
	require.NoError(t, os.WriteFile(cpath, []byte("package animal\n\nfunc Speak() string {\n\treturn \"woof\"\n}\n"), 0o644))

	ix.Enqueue(cpath)
	runBatch(t, ix)

	snap := ix.Status().Snapshot()
	assert.Equal(t, 1, snap.FilesTotal)
	assert.True(t, snap.AstIndexSymbolsTotal >= 1)

	tx, err := ix.db.Begin()
	require.NoError(t, err)
	defs, err := astdb.FileDefinitions(tx, CpathHash(cpath))
	require.NoError(t, err)
	tx.Rollback()
	assert.NotEmpty(t, defs)

	ix.EnqueueRemoval(cpath)
	runBatch(t, ix)

	tx2, err := ix.db.Begin()
	require.NoError(t, err)
	defer tx2.Rollback()
	defsAfter, err := astdb.FileDefinitions(tx2, CpathHash(cpath))
	require.NoError(t, err)
	assert.Empty(t, defsAfter)
}

// TestIndexerUnknownExtensionFallsBackToNullParser grounds scenario S6:
// an unrecognized extension produces zero definitions via the null
// parser, but the file is still counted toward files_total.
func TestIndexerUnknownExtensionFallsBackToNullParser(t *testing.T) {
	ix, root := newTestIndexer(t)
	cpath := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(cpath, []byte("just some prose, not code\n"), 0o644))

	ix.Enqueue(cpath)
	runBatch(t, ix)

	snap := ix.Status().Snapshot()
	assert.Equal(t, 1, snap.FilesTotal)
	assert.Equal(t, 0, snap.AstIndexSymbolsTotal)

	tx, err := ix.db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()
	defs, err := astdb.FileDefinitions(tx, CpathHash(cpath))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

// TestIndexerIndexesBatchWithBoundedParallelReads grounds the
// readFilesConcurrently path: several files enqueued in one batch, with
// ParallelFileWorkers pinned below the file count, all still end up
// indexed.
func TestIndexerIndexesBatchWithBoundedParallelReads(t *testing.T) {
	ix, root := newTestIndexer(t)
	ix.cfg.Performance.ParallelFileWorkers = 2

	paths := []string{
		filepath.Join(root, "one.go"),
		filepath.Join(root, "two.go"),
		filepath.Join(root, "three.go"),
		filepath.Join(root, "four.go"),
	}
	for i, p := range paths {
		require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf("package batch\nfunc F%d() {}\n", i)), 0o644))
		ix.Enqueue(p)
	}
	runBatch(t, ix)

	snap := ix.Status().Snapshot()
	assert.Equal(t, len(paths), snap.FilesTotal)
	assert.Equal(t, len(paths), snap.AstIndexSymbolsTotal)
}

// TestIndexerShouldIndexRespectsGitignore grounds the gitignore wiring:
// with RespectGitignore on and a .gitignore excluding *.log, a matching
// file is rejected by ShouldIndex while a normal source file is admitted.
func TestIndexerShouldIndexRespectsGitignore(t *testing.T) {
	ix, root := newTestIndexer(t)
	ix.cfg.Index.RespectGitignore = true
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	gi := config.NewGitignoreParser()
	require.NoError(t, gi.LoadGitignore(root))
	ix.gitignore = gi

	logPath := filepath.Join(root, "debug.log")
	srcPath := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(logPath, []byte("boom\n"), 0o644))
	require.NoError(t, os.WriteFile(srcPath, []byte("package main\nfunc main() {}\n"), 0o644))

	assert.False(t, ix.ShouldIndex(logPath))
	assert.True(t, ix.ShouldIndex(srcPath))
}

// TestIndexerRespectsAstMaxFiles verifies the capacity cap raises
// AstMaxFilesHit and stops admitting new files once full.
func TestIndexerRespectsAstMaxFiles(t *testing.T) {
	ix, root := newTestIndexer(t)
	ix.cfg.Index.AstMaxFiles = 1

	first := filepath.Join(root, "a.go")
	second := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(first, []byte("package a\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("package a\nfunc B() {}\n"), 0o644))

	ix.Enqueue(first)
	ix.Enqueue(second)
	runBatch(t, ix)

	snap := ix.Status().Snapshot()
	assert.True(t, snap.AstMaxFilesHit)
	assert.Equal(t, 1, snap.FilesTotal)
}
