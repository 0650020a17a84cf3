package indexer

import (
	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/errors"
	"github.com/standardbeagle/astindex/internal/markup"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/resolver"
	"github.com/standardbeagle/astindex/internal/types"
)

// WriteFile runs spec.md §4.5 steps 1-6 for one file, inside the caller's
// transaction: parse (C1), markup (C2), diff against the file's existing
// d/ entries, delete removed definitions, write every current definition
// (new, changed or unchanged) plus c/ aliases and classes/ edges. It does not resolve usages — that
// is the Indexer's "indexing" phase, run as its own transaction over the
// whole batch via ResolveDefinition, matching the parsing/indexing state
// split of spec.md §4.5.
func WriteFile(tx *astdb.Tx, bank *parser.Bank, cpath string, text []byte) (newDefs []*types.AstDefinition, added, removed int, err error) {
	cpathHash := CpathHash(cpath)

	records, err := bank.Parse(text, cpath)
	if err != nil {
		return nil, 0, 0, errors.ParseError(cpath, err)
	}
	fm := markup.Build(records)

	byPath := make(map[string]*types.AstDefinition)
	for _, sym := range fm.SymbolsSortedByPathLen {
		if !sym.Type.Indexable() {
			continue
		}
		d := &types.AstDefinition{
			OfficialPath:         OfficialPath(cpathHash, sym),
			SymbolType:           sym.Type,
			Usages:               sym.Usages,
			ThisIsAClass:         sym.ThisIsAClass,
			ThisClassDerivedFrom: sym.ThisClassDerivedFrom,
			Cpath:                cpath,
			DeclLine1:            sym.DeclLine1,
			DeclLine2:            sym.DeclLine2,
			BodyLine1:            sym.BodyLine1,
			BodyLine2:            sym.BodyLine2,
		}
		byPath[d.Path()] = d
	}

	existing, err := astdb.FileDefinitions(tx, cpathHash)
	if err != nil {
		return nil, 0, 0, err
	}
	for _, old := range existing {
		if _, stillPresent := byPath[old.Path()]; stillPresent {
			continue
		}
		if err := astdb.DeleteDefinition(tx, old.Path()); err != nil {
			return nil, added, removed, err
		}
		removed++
	}

	for _, d := range byPath {
		if err := astdb.PutDefinition(tx, d); err != nil {
			return nil, added, removed, err
		}
		added++
		newDefs = append(newDefs, d)
	}

	return newDefs, added, removed, nil
}

// RemoveFile deletes every definition whose official_path begins with
// cpath's hash — scenario S3.
func RemoveFile(tx *astdb.Tx, cpath string) (removed int, err error) {
	cpathHash := CpathHash(cpath)
	existing, err := astdb.FileDefinitions(tx, cpathHash)
	if err != nil {
		return 0, err
	}
	for _, old := range existing {
		if err := astdb.DeleteDefinition(tx, old.Path()); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ResolveDefinition runs the Usage Resolver (C4) over one definition's
// usages, the Indexer's "indexing" phase.
func ResolveDefinition(tx *astdb.Tx, ucx *resolver.ConnectUsageContext, d *types.AstDefinition) error {
	return resolver.ConnectUsages(tx, ucx, d)
}
