// Package markup implements the Low-level File Markup step (C2): turning
// one file's flat parser.SymbolRecord stream into symbol_path-qualified,
// depth-ordered symbols ready for AST DB ingestion. Grounded on
// lowlevel_file_markup in
// _examples/original_source/refact-agent/engine/src/ast/mod.rs, adapted
// from its recursive parent_guid walk to a recursive ParentID walk with a
// cycle guard and
// from Arc<RefCell<..>> to a plain slice-plus-map.
package markup

import (
	"strings"

	"github.com/standardbeagle/astindex/internal/parser"
)

// MarkedSymbol is a SymbolRecord with its symbol_path resolved.
type MarkedSymbol struct {
	parser.SymbolRecord
	SymbolPath string
}

// FileMarkup is one file's markup result: every symbol, sorted so a
// parent always precedes its children (shorter symbol_path first) — the
// invariant AST DB ingestion (C3) depends on to assign official_path
// incrementally without a second pass.
type FileMarkup struct {
	SymbolsSortedByPathLen []MarkedSymbol
}

// Build resolves symbol_path for every record by walking each symbol's
// ParentID chain to the root, joining ancestor names with "::", then
// stably sorts the result by symbol_path length ascending.
//
// A symbol with no name (anonymous struct literal, closure, etc.) uses
// its ID — already the first 8 hex characters of a generated UUID — as
// its path component, per the teacher's original "pname = guid[..8] if
// name is empty" fallback.
func Build(records []parser.SymbolRecord) *FileMarkup {
	byID := make(map[string]parser.SymbolRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	marked := make([]MarkedSymbol, len(records))
	for i, r := range records {
		marked[i] = MarkedSymbol{SymbolRecord: r, SymbolPath: pathOf(byID, r.ID)}
	}

	stableSortByPathLen(marked)
	return &FileMarkup{SymbolsSortedByPathLen: marked}
}

func pathOf(byID map[string]parser.SymbolRecord, id string) string {
	return recursivePathOf(byID, id, make(map[string]bool))
}

// recursivePathOf mirrors recursive_path_of_guid: climb parent links
// until one is missing ("UNK", the symbol's parent lies outside this
// file or this symbol is file-root) or until a cycle is detected (a
// defensive stop the original relied on well-formed AST ranges to avoid;
// here it guards against a parser bug producing a ParentID loop).
func recursivePathOf(byID map[string]parser.SymbolRecord, id string, visiting map[string]bool) string {
	sym, ok := byID[id]
	if !ok {
		return "UNK"
	}
	if visiting[id] {
		return "UNK"
	}
	visiting[id] = true

	name := sym.Name
	if name == "" {
		name = sym.ID
		if len(name) > 8 {
			name = name[:8]
		}
	}

	if sym.ParentID == "" {
		return name
	}
	parentPath := recursivePathOf(byID, sym.ParentID, visiting)
	return parentPath + "::" + name
}

func stableSortByPathLen(marked []MarkedSymbol) {
	// insertion sort: N is one file's symbol count, typically small, and
	// stability (ties keep parse order) matters more here than asymptotic
	// cost.
	for i := 1; i < len(marked); i++ {
		j := i
		for j > 0 && len(marked[j-1].SymbolPath) > len(marked[j].SymbolPath) {
			marked[j-1], marked[j] = marked[j], marked[j-1]
			j--
		}
	}
}

// PathComponents splits a "::"-joined symbol_path back into its pieces,
// used by official_path construction (C3) to append namespace/class/name
// segments after the cpath hash.
func PathComponents(symbolPath string) []string {
	if symbolPath == "" {
		return nil
	}
	return strings.Split(symbolPath, "::")
}
