// Package resolver implements the Usage Resolver (C4): expanding
// ambiguous usage targets via class-derivation closure, matching against
// definition prefixes in the AST DB, and writing resolved links plus
// their cleanup records.
//
// Grounded on
// _examples/original_source/refact-agent/engine/src/ast/ast_db_heed_helpers.rs
// (connect_usages_helper, derived_from) — the reference implementation's
// prefix-scan and Cartesian-substitution algorithm is carried over
// directly; only the storage handle (heed → astdb.Tx) and concurrency
// idiom (async Rust → plain synchronous Go, called per-definition from
// the indexer) differ.
package resolver

import (
	"strings"

	"github.com/standardbeagle/astindex/internal/astdb"
)

// DerivationMap is child lang🔎Class tag → every ancestor tag, transitive
// but not reflexive (the class itself is NOT included here unless an
// inheritance cycle leads back to it — callers prepend it when building
// substitution candidates, matching the original's
// "substitutions.insert(0, klass.clone())").
type DerivationMap map[string][]string

// BuildDerivationMap scans every classes/ record and computes the
// transitive closure once, to be memoized for one resolution
// pass (spec.md §4.4's "computed once per resolution pass, memoized in
// the context").
func BuildDerivationMap(tx *astdb.Tx) (DerivationMap, error) {
	rows, err := tx.ScanPrefix("classes/")
	if err != nil {
		return nil, err
	}

	direct := make(map[string][]string)
	for _, row := range rows {
		rest := strings.TrimPrefix(row.Key, "classes/")
		idx := strings.Index(rest, astdb.KeySeparator)
		if idx < 0 {
			continue
		}
		parent := rest[:idx]
		child := string(row.Value)
		if child == "" {
			continue
		}
		if !containsString(direct[child], parent) {
			direct[child] = append(direct[child], parent)
		}
	}

	closure := make(DerivationMap, len(direct))
	var visited map[string]bool
	var resolve func(klass string) []string
	resolve = func(klass string) []string {
		if visited[klass] {
			return nil
		}
		visited[klass] = true
		var allParents []string
		for _, parent := range direct[klass] {
			allParents = append(allParents, parent)
			for _, ancestor := range resolve(parent) {
				if !containsString(allParents, ancestor) {
					allParents = append(allParents, ancestor)
				}
			}
		}
		return allParents
	}
	for klass := range direct {
		visited = make(map[string]bool)
		closure[klass] = resolve(klass)
	}
	return closure, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
