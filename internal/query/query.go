// Package query implements the Query Surface (C7): read-only operations
// against the AST DB (internal/astdb), plus on-demand chunking, which
// re-parses rather than reading stored state since chunk windows are
// never persisted (spec.md §4.7).
//
// Errors are deliberately quiet per spec.md §7: a missing file or
// unmatched path returns an empty result, never an error. Only a
// corrupted DB read (a gob decode failure inside astdb) propagates as a
// hard error.
package query

import (
	"os"
	"sort"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/chunker"
	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/indexer"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/types"
	"github.com/standardbeagle/astindex/pkg/pathutil"
)

// Surface bundles the read-only handles a query needs: the DB for the
// four DB-backed operations, and the parser bank/tokenizer/chunker
// config for on-demand chunking.
type Surface struct {
	db         *astdb.DB
	bank       *parser.Bank
	tokenizer  chunker.Tokenizer
	chunkerCfg config.Chunker
	status     *types.StatusPublisher
	root       string
}

// New builds a Surface. root is the project root cpath-bearing queries
// (FileSymbols/SymbolsAt/Chunks) canonicalize their cpath argument
// against, matching the same pathutil.Canonical normalization the
// Indexer applies when a path is first enqueued — otherwise a caller
// naming a file by a relative or differently-separated path would miss
// the indexed official_path entirely.
func New(db *astdb.DB, bank *parser.Bank, tokenizer chunker.Tokenizer, chunkerCfg config.Chunker, status *types.StatusPublisher, root string) *Surface {
	return &Surface{db: db, bank: bank, tokenizer: tokenizer, chunkerCfg: chunkerCfg, status: status, root: root}
}

// Definitions resolves a short or full "::"-joined path to every
// matching definition, via the c/ alias index.
func (s *Surface) Definitions(path string) ([]*types.AstDefinition, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return astdb.DefinitionsByAlias(tx, path)
}

// UsageRef is one usage site: the definition that contains the usage,
// and the 0-based source line it occurs on.
type UsageRef struct {
	OwnerOfficialPath string
	Uline             int
}

// Usages resolves path (short or full) to every definition it names,
// then returns every usage site recorded against each of those
// definitions' u/ links.
func (s *Surface) Usages(path string) ([]UsageRef, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	defs, err := astdb.DefinitionsByAlias(tx, path)
	if err != nil {
		return nil, err
	}
	var out []UsageRef
	for _, d := range defs {
		owners, err := astdb.Usages(tx, d.Path())
		if err != nil {
			return nil, err
		}
		for _, o := range owners {
			out = append(out, UsageRef{OwnerOfficialPath: o.OwnerOfficialPath, Uline: o.Uline})
		}
	}
	return out, nil
}

// FileSymbols returns every definition belonging to cpath, in the d/
// prefix-scan's key order — since a parent's official_path is a prefix
// of each of its children's, this is also parent-before-child order.
func (s *Surface) FileSymbols(cpath string) ([]*types.AstDefinition, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return astdb.FileDefinitions(tx, indexer.CpathHash(pathutil.Canonical(cpath, s.root)))
}

// SymbolsAt returns every definition in cpath whose full line range
// contains the given 1-based line, innermost (most deeply nested) last.
func (s *Surface) SymbolsAt(cpath string, line int) ([]*types.AstDefinition, error) {
	defs, err := s.FileSymbols(cpath)
	if err != nil {
		return nil, err
	}
	var matches []*types.AstDefinition
	for _, d := range defs {
		end := d.BodyLine2
		if end == 0 {
			end = d.DeclLine2
		}
		if d.DeclLine1 <= line && line <= end {
			matches = append(matches, d)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DeclLine1 != matches[j].DeclLine1 {
			return matches[i].DeclLine1 < matches[j].DeclLine1
		}
		endI, endJ := matches[i].BodyLine2, matches[j].BodyLine2
		if endI == 0 {
			endI = matches[i].DeclLine2
		}
		if endJ == 0 {
			endJ = matches[j].DeclLine2
		}
		return endI > endJ
	})
	return matches, nil
}

// Chunks re-parses cpath from disk and runs the Chunker (C6) over it.
// Chunk windows are never persisted, so this always reflects the file's
// current on-disk content rather than whatever was last indexed.
func (s *Surface) Chunks(cpath string) ([]chunker.Chunk, error) {
	cpath = pathutil.Canonical(cpath, s.root)
	text, err := os.ReadFile(cpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return chunker.Split(s.bank, s.tokenizer, s.chunkerCfg, cpath, text)
}

// StatusSnapshot is the JSON-friendly status shape of spec.md §6.
type StatusSnapshot struct {
	State                string `json:"state"`
	FilesUnparsed        int    `json:"files_unparsed"`
	FilesTotal           int    `json:"files_total"`
	AstIndexFilesTotal   int    `json:"ast_index_files_total"`
	AstIndexSymbolsTotal int    `json:"ast_index_symbols_total"`
	AstIndexUsagesTotal  int    `json:"ast_index_usages_total"`
	AstMaxFilesHit       bool   `json:"ast_max_files_hit"`
}

// Status returns the current indexer status snapshot.
func (s *Surface) Status() StatusSnapshot {
	snap := s.status.Snapshot()
	return StatusSnapshot{
		State:                snap.State.String(),
		FilesUnparsed:        snap.FilesUnparsed,
		FilesTotal:           snap.FilesTotal,
		AstIndexFilesTotal:   snap.AstIndexFilesTotal,
		AstIndexSymbolsTotal: snap.AstIndexSymbolsTotal,
		AstIndexUsagesTotal:  snap.AstIndexUsagesTotal,
		AstMaxFilesHit:       snap.AstMaxFilesHit,
	}
}
