package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/types"
)

func openDB(t *testing.T) *astdb.DB {
	t.Helper()
	db, err := astdb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestS1CppInheritanceResolution grounds scenario S1: a Goat (derived
// from Animal) calling an inherited method resolves to Animal's
// definition via the derivation closure.
func TestS1CppInheritanceResolution(t *testing.T) {
	db := openDB(t)

	tx, err := db.Begin()
	require.NoError(t, err)

	animal := &types.AstDefinition{
		OfficialPath: []string{"h1", "Animal", "self_review"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
	}
	goat := &types.AstDefinition{
		OfficialPath:         []string{"h1", "Goat"},
		SymbolType:           types.StructDeclaration,
		ThisIsAClass:         "cpp🔎Goat",
		ThisClassDerivedFrom: []string{"cpp🔎Animal"},
		DeclLine1:            1, DeclLine2: 1,
	}
	main := &types.AstDefinition{
		OfficialPath: []string{"h2", "main"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
		Usages: []types.Usage{
			{TargetsForGuesswork: []string{"?::cpp🔎Goat::self_review", "?::self_review"}, Uline: 2},
		},
	}
	require.NoError(t, astdb.PutDefinition(tx, animal))
	require.NoError(t, astdb.PutDefinition(tx, goat))
	require.NoError(t, astdb.PutDefinition(tx, main))
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin()
	require.NoError(t, err)
	derived, err := BuildDerivationMap(tx2)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpp🔎Animal"}, derived["cpp🔎Goat"])

	ucx := NewConnectUsageContext(derived, &types.AstErrorStats{})
	require.NoError(t, ConnectUsages(tx2, ucx, main))
	require.NoError(t, tx2.Commit())

	assert.Equal(t, 1, ucx.UsagesConnected)
	assert.Equal(t, main.Usages[0].ResolvedAs, animal.Path())

	tx3, err := db.Begin()
	require.NoError(t, err)
	defer tx3.Rollback()

	owners, err := astdb.Usages(tx3, animal.Path())
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, main.Path(), owners[0].OwnerOfficialPath)
	assert.Equal(t, 2, owners[0].Uline)

	raw, ok, err := tx3.Get(astdb.CleanupKey(main.Path()))
	require.NoError(t, err)
	require.True(t, ok)
	keys, err := astdb.DecodeStringList(raw)
	require.NoError(t, err)
	assert.Contains(t, keys, astdb.UsageKey(animal.Path(), main.Path()))
}

// TestS2AmbiguityPicksLexicographicallyFirstAndRecordsError grounds
// scenario S2: two classes both declare run(); an untyped call resolves
// by picking the first official_path in lexicographic order and records
// an ambiguity error.
func TestS2AmbiguityPicksLexicographicallyFirstAndRecordsError(t *testing.T) {
	db := openDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)

	runA := &types.AstDefinition{OfficialPath: []string{"h1", "Alpha", "run"}, SymbolType: types.FunctionDeclaration, DeclLine1: 1, DeclLine2: 1}
	runB := &types.AstDefinition{OfficialPath: []string{"h1", "Beta", "run"}, SymbolType: types.FunctionDeclaration, DeclLine1: 1, DeclLine2: 1}
	caller := &types.AstDefinition{
		OfficialPath: []string{"h2", "caller"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
		Usages: []types.Usage{{TargetsForGuesswork: []string{"?::run"}, Uline: 9}},
	}
	require.NoError(t, astdb.PutDefinition(tx, runA))
	require.NoError(t, astdb.PutDefinition(tx, runB))
	require.NoError(t, astdb.PutDefinition(tx, caller))
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin()
	require.NoError(t, err)
	defer tx2.Rollback()

	errStats := &types.AstErrorStats{}
	ucx := NewConnectUsageContext(DerivationMap{}, errStats)
	require.NoError(t, ConnectUsages(tx2, ucx, caller))

	assert.Equal(t, 1, ucx.UsagesAmbiguous)
	assert.Equal(t, runA.Path(), caller.Usages[0].ResolvedAs, "Alpha::run sorts before Beta::run")
	require.Len(t, errStats.Entries, 1)
	assert.Contains(t, errStats.Entries[0].Message, "ambiguous")
}

func TestDerivationClosureGuardsAgainstInheritanceCycle(t *testing.T) {
	db := openDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)

	require.NoError(t, astdb.PutDefinition(tx, &types.AstDefinition{
		OfficialPath: []string{"h1", "A"}, SymbolType: types.StructDeclaration,
		ThisIsAClass: "cpp🔎A", ThisClassDerivedFrom: []string{"cpp🔎B"},
		DeclLine1: 1, DeclLine2: 1,
	}))
	require.NoError(t, astdb.PutDefinition(tx, &types.AstDefinition{
		OfficialPath: []string{"h1", "B"}, SymbolType: types.StructDeclaration,
		ThisIsAClass: "cpp🔎B", ThisClassDerivedFrom: []string{"cpp🔎A"},
		DeclLine1: 1, DeclLine2: 1,
	}))
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin()
	require.NoError(t, err)
	defer tx2.Rollback()

	assert.NotPanics(t, func() {
		derived, err := BuildDerivationMap(tx2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"cpp🔎B", "cpp🔎A"}, derived["cpp🔎A"])
	})
}

// TestConnectUsagesIsIdempotent grounds invariant 3 (spec.md §8):
// re-running the resolver over an unchanged definition produces no new
// u/ or resolve-cleanup/ keys, and deletes none of the existing ones.
func TestConnectUsagesIsIdempotent(t *testing.T) {
	db := openDB(t)

	tx, err := db.Begin()
	require.NoError(t, err)
	animal := &types.AstDefinition{
		OfficialPath: []string{"h1", "Animal", "self_review"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
	}
	main := &types.AstDefinition{
		OfficialPath: []string{"h2", "main"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
		Usages: []types.Usage{
			{TargetsForGuesswork: []string{"?::Animal::self_review"}, Uline: 2},
		},
	}
	require.NoError(t, astdb.PutDefinition(tx, animal))
	require.NoError(t, astdb.PutDefinition(tx, main))
	require.NoError(t, tx.Commit())

	resolveOnce := func() {
		tx, err := db.Begin()
		require.NoError(t, err)
		derived, err := BuildDerivationMap(tx)
		require.NoError(t, err)
		ucx := NewConnectUsageContext(derived, &types.AstErrorStats{})
		require.NoError(t, ConnectUsages(tx, ucx, main))
		require.NoError(t, tx.Commit())
	}

	resolveOnce()

	snapshot := func() ([]astdb.KV, []astdb.KV) {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()
		usages, err := tx.ScanPrefix("u/")
		require.NoError(t, err)
		cleanup, err := tx.ScanPrefix("resolve-cleanup/")
		require.NoError(t, err)
		return usages, cleanup
	}

	usagesBefore, cleanupBefore := snapshot()
	require.NotEmpty(t, usagesBefore)
	require.NotEmpty(t, cleanupBefore)
	require.True(t, main.Usages[0].IsResolved())

	resolveOnce()

	usagesAfter, cleanupAfter := snapshot()
	assert.Equal(t, usagesBefore, usagesAfter, "re-running the resolver must not add or remove u/ keys")
	assert.Equal(t, cleanupBefore, cleanupAfter, "re-running the resolver must not change the cleanup list")

	tx2, err := db.Begin()
	require.NoError(t, err)
	defer tx2.Rollback()
	usagesCounter, err := astdb.ReadCounter(tx2, "usages")
	require.NoError(t, err)
	assert.Equal(t, 1, usagesCounter, "usages counter must not drift across idempotent re-runs")
}

func TestHomelessUsageIsNotAttempted(t *testing.T) {
	db := openDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	caller := &types.AstDefinition{
		OfficialPath: []string{"h1", "caller"},
		SymbolType:   types.FunctionDeclaration,
		DeclLine1:    1, DeclLine2: 1,
		Usages: []types.Usage{{TargetsForGuesswork: []string{"file::Animal::age"}, Uline: 1}},
	}
	require.NoError(t, astdb.PutDefinition(tx, caller))
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin()
	require.NoError(t, err)
	defer tx2.Rollback()
	ucx := NewConnectUsageContext(DerivationMap{}, &types.AstErrorStats{})
	require.NoError(t, ConnectUsages(tx2, ucx, caller))
	assert.Equal(t, 1, ucx.UsagesHomeless)
	assert.False(t, caller.Usages[0].IsResolved())
}
