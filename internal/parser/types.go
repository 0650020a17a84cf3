// Package parser implements the Parser Bank (C1): per-language
// tree-walking parsers, built on github.com/tree-sitter/go-tree-sitter and
// its per-language grammar bindings, that reduce a file's text into a flat
// stream of SymbolRecord values with parent links, ranges, and raw usage
// targets. Unknown extensions fall through to a null parser producing no
// symbols, per spec.
package parser

import "github.com/standardbeagle/astindex/internal/types"

// SymbolRecord is one entry in the flat stream a language parser produces.
// Low-level File Markup (internal/markup) consumes these to build
// symbol_path and the final sort order.
type SymbolRecord struct {
	// ID identifies this symbol within one parse. Every symbol, named or
	// anonymous, gets the first 8 hex characters of a generated UUID
	// (spec.md §9).
	ID string
	// ParentID is the ID of the smallest enclosing symbol, or "" for a
	// file-root-level symbol.
	ParentID string
	Name     string
	Type     types.SymbolType

	DeclLine1, DeclLine2 int
	BodyLine1, BodyLine2 int

	// IsError marks a symbol emitted because a subtree failed to parse;
	// per the failure semantics this never aborts the whole file.
	IsError bool

	// ThisIsAClass is the language-qualified class tag (lang🔎Class) when
	// this symbol declares a class/struct, else empty.
	ThisIsAClass string
	// ThisClassDerivedFrom lists language-qualified parent class tags.
	ThisClassDerivedFrom []string

	// Usages is the list of raw usages discovered in this symbol's body,
	// with TargetsForGuesswork already populated (longest/most specific
	// first, each prefixed "?::").
	Usages []types.Usage

	// startByte/endByte back parent assignment and usage-site containment
	// lookups within one Parse call; never read outside this package.
	startByte, endByte uint
}

// FullLine2 returns the bottom of a symbol's full line range: its body's
// closing line when it has one, else its declaration's own end line.
func (s SymbolRecord) FullLine2() int {
	if s.BodyLine2 > 0 {
		return s.BodyLine2
	}
	return s.DeclLine2
}

// LanguageParser is the capability set every parser variant implements:
// parse the file into symbols, render a condensed skeleton for a
// container symbol, and render a declaration-plus-comments slice for any
// indexable symbol. ≈20 variants share most of this behavior through the
// shared tree walk in treesitter.go; only the query set and node-kind
// classification differ per language.
type LanguageParser interface {
	// Parse returns the flat symbol stream for text at path. It never
	// returns an error for malformed source — failures become IsError
	// symbols so counters stay consistent; the returned error is non-nil
	// only for a parser-construction problem that prevents parsing at all.
	Parse(text []byte, path string) ([]SymbolRecord, error)
	// Skeletonize renders a condensed signature-plus-member-stubs view of
	// a container symbol (struct/class with children).
	Skeletonize(text []byte, sym SymbolRecord, children []SymbolRecord) string
	// GetDeclarationWithComments renders a symbol's declaration together
	// with any directly preceding comment lines.
	GetDeclarationWithComments(text []byte, sym SymbolRecord) string
}
