// Package indexer implements the Indexer Thread (C5): a single
// background worker draining a deduplicated file-path queue through the
// starting/parsing/indexing/idle/stopping state machine of spec.md §4.5,
// backed by a file-system watcher for incremental updates.
//
// Grounded on
// _examples/standardbeagle-lci/internal/indexing/watcher.go for the
// fsnotify wiring idiom (one fsnotify.Watcher, a goroutine enqueuing
// each event as it arrives, directory-recursive AddWatches); the state machine and
// per-file pipeline themselves are new, built directly to spec.md §4.5
// since the teacher's watcher fed a different (in-memory, non-versioned)
// AST store.
package indexer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/debug"
	"github.com/standardbeagle/astindex/internal/errors"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/resolver"
	"github.com/standardbeagle/astindex/internal/types"
	"github.com/standardbeagle/astindex/pkg/pathutil"
)

type requestKind int

const (
	requestUpdate requestKind = iota
	requestRemove
)

type request struct {
	cpath string
	kind  requestKind
}

// Indexer owns the AST DB handle and status record for its lifetime, per
// spec.md §9's "global state ... scoped to the indexer's lifetime;
// construction and teardown are explicit; no lazy initialization."
type Indexer struct {
	cfg       *config.Config
	bank      *parser.Bank
	db        *astdb.DB
	status    *types.StatusPublisher
	gitignore *config.GitignoreParser

	watcher *fsnotify.Watcher

	mu           sync.Mutex
	queue        []string
	queued       map[string]requestKind
	indexedFiles map[string]bool
	errStats     *types.AstErrorStats

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs an Indexer over cfg. When cfg.Index.RespectGitignore is
// set, it loads <cfg.Project.Root>/.gitignore once up front — matching
// the teacher's own "load at startup, not per file" gitignore pattern —
// so every scan and watch event is filtered the same way.
func New(cfg *config.Config, bank *parser.Bank, db *astdb.DB) *Indexer {
	var gi *config.GitignoreParser
	if cfg.Index.RespectGitignore {
		gi = config.NewGitignoreParser()
		_ = gi.LoadGitignore(cfg.Project.Root)
	}
	return &Indexer{
		cfg:          cfg,
		bank:         bank,
		db:           db,
		status:       types.NewStatusPublisher(),
		gitignore:    gi,
		queued:       make(map[string]requestKind),
		indexedFiles: make(map[string]bool),
		errStats:     &types.AstErrorStats{},
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

func (ix *Indexer) Status() *types.StatusPublisher { return ix.status }

// Enqueue schedules cpath for (re)indexing. Re-enqueuing a path already
// pending for the same kind of request is a no-op — the queue is
// deduplicated, matching spec.md §4.5's "deduplicated request queue."
// cpath is canonicalized first (absolute, cleaned, slash-separated) so
// the same file reached via a relative path, "." or ".." segments, or a
// different OS separator style always hashes to the same official_path.
// Symlinks are not resolved.
func (ix *Indexer) Enqueue(cpath string) {
	ix.push(pathutil.Canonical(cpath, ix.cfg.Project.Root), requestUpdate)
}

func (ix *Indexer) EnqueueRemoval(cpath string) {
	ix.push(pathutil.Canonical(cpath, ix.cfg.Project.Root), requestRemove)
}

func (ix *Indexer) push(cpath string, kind requestKind) {
	ix.mu.Lock()
	if existingKind, already := ix.queued[cpath]; already && existingKind == kind {
		ix.mu.Unlock()
		return
	}
	ix.queued[cpath] = kind
	ix.queue = append(ix.queue, cpath)
	ix.mu.Unlock()

	ix.status.Update(func(s *types.AstStatus) {
		if s.State == types.StateIdle || s.State == types.StateStarting {
			s.State = types.StateParsing
		}
	})
}

func (ix *Indexer) drainQueue() []request {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.queue) == 0 {
		return nil
	}
	out := make([]request, 0, len(ix.queue))
	for _, cpath := range ix.queue {
		out = append(out, request{cpath: cpath, kind: ix.queued[cpath]})
	}
	ix.queue = ix.queue[:0]
	ix.queued = make(map[string]requestKind)
	return out
}

// Run drains the queue until ctx is canceled or Stop is called. Each
// non-empty batch is processed as parsing (write phase, one transaction
// per request) followed by indexing (resolve phase, one transaction),
// then the Indexer publishes idle and the wake signal fires.
func (ix *Indexer) Run(ctx context.Context) {
	defer func() {
		select {
		case <-ix.doneCh:
		default:
			close(ix.doneCh)
		}
	}()

	for {
		batch := ix.drainQueue()
		if len(batch) == 0 {
			ix.status.Update(func(s *types.AstStatus) { s.State = types.StateIdle })
			select {
			case <-ctx.Done():
				ix.status.Update(func(s *types.AstStatus) { s.State = types.StateStopping })
				return
			case <-ix.stopCh:
				ix.status.Update(func(s *types.AstStatus) { s.State = types.StateStopping })
				return
			case <-ix.status.WaitForWake():
				continue
			}
		}

		ix.status.Update(func(s *types.AstStatus) { s.State = types.StateParsing })
		newDefs, err := ix.writePhase(batch)
		if err != nil {
			debug.LogIndexing("write phase failed: %v", err)
			continue
		}

		ix.status.Update(func(s *types.AstStatus) { s.State = types.StateIndexing })
		if err := ix.resolvePhase(newDefs); err != nil {
			debug.LogIndexing("resolve phase failed: %v", err)
		}

		ix.status.Update(func(s *types.AstStatus) {
			s.AstIndexFilesTotal = len(ix.indexedFiles)
		})
	}
}

// readResult is one requestUpdate's disk read, fetched ahead of the
// write transaction so the genuinely parallelizable part of a batch
// (file I/O) overlaps across files instead of serializing behind the
// single write tx every file must eventually go through.
type readResult struct {
	text []byte
	err  error
}

// readFilesConcurrently reads every requestUpdate's content bounded by
// cfg.Performance.ParallelFileWorkers (0 meaning runtime.NumCPU()),
// indexed by position in batch so writePhase's tx loop stays in request
// order regardless of which read finished first.
func (ix *Indexer) readFilesConcurrently(batch []request) []readResult {
	results := make([]readResult, len(batch))

	workers := ix.cfg.Performance.ParallelFileWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, req := range batch {
		if req.kind != requestUpdate {
			continue
		}
		i, req := i, req
		g.Go(func() error {
			text, err := os.ReadFile(req.cpath)
			results[i] = readResult{text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// writePhase runs every request in batch through its own transaction, so
// one file's write failure never rolls back files already committed
// earlier in the same batch — each request's outcome is independent.
func (ix *Indexer) writePhase(batch []request) ([]*types.AstDefinition, error) {
	reads := ix.readFilesConcurrently(batch)

	var allNew []*types.AstDefinition
	var filesAdded, filesRemoved int

	for i, req := range batch {
		switch req.kind {
		case requestRemove:
			if err := ix.writeOneRemoval(req.cpath); err != nil {
				debug.LogIndexing("remove %s failed: %v", req.cpath, err)
				ix.errStats.AddError(req.cpath, err.Error(), 0)
				continue
			}
			ix.forgetFile(req.cpath)
			filesRemoved++
		case requestUpdate:
			wasIndexed := ix.isIndexed(req.cpath)
			if !ix.reserveCapacity(req.cpath) {
				ix.status.Update(func(s *types.AstStatus) { s.AstMaxFilesHit = true })
				continue
			}
			if reads[i].err != nil {
				ix.errStats.AddError(req.cpath, reads[i].err.Error(), 0)
				continue
			}
			defs, err := ix.writeOneFile(req.cpath, reads[i].text)
			if err != nil {
				debug.LogIndexing("write %s failed: %v", req.cpath, err)
				ix.errStats.AddError(req.cpath, err.Error(), 0)
				continue
			}
			allNew = append(allNew, defs...)
			if !wasIndexed {
				filesAdded++
			}
		}
	}

	ix.status.Update(func(s *types.AstStatus) {
		s.FilesTotal += filesAdded
	})
	_ = filesRemoved
	return allNew, nil
}

// writeOneFile runs WriteFile for one update request in its own
// transaction. A DbTransient conflict is retried once before the path is
// re-enqueued for a later batch, matching spec.md's error-kind table:
// DbTransient errors "retry the file once; if still failing, log and
// enqueue for later" rather than taking down the whole batch.
func (ix *Indexer) writeOneFile(cpath string, text []byte) ([]*types.AstDefinition, error) {
	defs, err := ix.tryWriteFile(cpath, text)
	if err != nil && errors.IsKind(err, errors.KindDbTransient) {
		debug.LogIndexing("retrying write of %s after transient db error: %v", cpath, err)
		defs, err = ix.tryWriteFile(cpath, text)
	}
	if err != nil && errors.IsKind(err, errors.KindDbTransient) {
		ix.Enqueue(cpath)
	}
	return defs, err
}

func (ix *Indexer) tryWriteFile(cpath string, text []byte) ([]*types.AstDefinition, error) {
	tx, err := ix.db.Begin()
	if err != nil {
		return nil, err
	}
	defs, _, _, err := WriteFile(tx, ix.bank, cpath, text)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return defs, nil
}

// writeOneRemoval mirrors writeOneFile's per-request transaction and
// retry-once-then-requeue handling for a removal request.
func (ix *Indexer) writeOneRemoval(cpath string) error {
	err := ix.tryRemoveFile(cpath)
	if err != nil && errors.IsKind(err, errors.KindDbTransient) {
		debug.LogIndexing("retrying removal of %s after transient db error: %v", cpath, err)
		err = ix.tryRemoveFile(cpath)
	}
	if err != nil && errors.IsKind(err, errors.KindDbTransient) {
		ix.EnqueueRemoval(cpath)
	}
	return err
}

func (ix *Indexer) tryRemoveFile(cpath string) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	if _, err := RemoveFile(tx, cpath); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (ix *Indexer) resolvePhase(newDefs []*types.AstDefinition) error {
	if len(newDefs) == 0 {
		return nil
	}

	readTx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	derived, err := resolver.BuildDerivationMap(readTx)
	readTx.Rollback()
	if err != nil {
		return err
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	ucx := resolver.NewConnectUsageContext(derived, ix.errStats)
	for _, d := range newDefs {
		if err := ResolveDefinition(tx, ucx, d); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	ix.status.Update(func(s *types.AstStatus) {
		s.AstIndexSymbolsTotal += len(newDefs)
		s.AstIndexUsagesTotal += ucx.UsagesConnected
	})
	return nil
}

// isIndexed reports whether cpath is already tracked as indexed, so
// writePhase can tell a genuinely new file from a re-index of one
// already counted toward FilesTotal.
func (ix *Indexer) isIndexed(cpath string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.indexedFiles[cpath]
}

// reserveCapacity reports whether cpath may be indexed under
// ast_max_files (0 means unbounded). Already-indexed files always get to
// re-index (they don't grow the cap usage).
func (ix *Indexer) reserveCapacity(cpath string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.indexedFiles[cpath] {
		return true
	}
	if ix.cfg.Index.AstMaxFiles > 0 && len(ix.indexedFiles) >= ix.cfg.Index.AstMaxFiles {
		return false
	}
	ix.indexedFiles[cpath] = true
	return true
}

func (ix *Indexer) forgetFile(cpath string) {
	ix.mu.Lock()
	delete(ix.indexedFiles, cpath)
	ix.mu.Unlock()
}

// Stop requests the worker to finish its in-flight transaction and exit;
// it blocks until Run has returned.
func (ix *Indexer) Stop() {
	close(ix.stopCh)
	<-ix.doneCh
	if ix.watcher != nil {
		ix.watcher.Close()
	}
}

// StartWatching wires an fsnotify watcher over every directory under
// root, respecting Include/Exclude globs, and enqueues changed/created
// files and removals as they're observed.
func (ix *Indexer) StartWatching(root string) error {
	if !ix.cfg.Index.WatchMode {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ix.watcher = w

	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && ix.gitignore != nil && ix.isIgnoredDir(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	}); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				ix.handleEvent(ev)
			case <-w.Errors:
			case <-ix.stopCh:
				return
			}
		}
	}()
	return nil
}

func (ix *Indexer) handleEvent(ev fsnotify.Event) {
	if !ix.ShouldIndex(ev.Name) {
		return
	}
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		ix.EnqueueRemoval(ev.Name)
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		ix.Enqueue(ev.Name)
	}
}

func (ix *Indexer) relToRoot(path string) string {
	rel, err := filepath.Rel(ix.cfg.Project.Root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (ix *Indexer) isIgnoredDir(path string) bool {
	return ix.gitignore.ShouldIgnore(ix.relToRoot(path), true)
}

// ShouldIndex reports whether path should be enqueued, combining the
// Include/Exclude glob lists with .gitignore patterns when
// cfg.Index.RespectGitignore is set. Both the initial workspace scan
// (cmd/astindex) and the fsnotify watcher filter through this one
// decision so they never disagree on what's in scope.
func (ix *Indexer) ShouldIndex(path string) bool {
	rel := ix.relToRoot(path)

	if ix.gitignore != nil && ix.gitignore.ShouldIgnore(rel, false) {
		return false
	}
	for _, pattern := range ix.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(ix.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range ix.cfg.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
