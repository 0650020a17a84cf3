package query

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/indexer"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/resolver"
	"github.com/standardbeagle/astindex/internal/types"
)

const goFixture = `package widget

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func setupIndexedFile(t *testing.T) (*astdb.DB, *parser.Bank, string) {
	t.Helper()
	db, err := astdb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	cpath := filepath.Join(root, "widget.go")
	require.NoError(t, os.WriteFile(cpath, []byte(goFixture), 0o644))

	bank := parser.NewBank()
	tx, err := db.Begin()
	require.NoError(t, err)
	defs, _, _, err := indexer.WriteFile(tx, bank, cpath, []byte(goFixture))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	derivationTx, err := db.Begin()
	require.NoError(t, err)
	derived, err := resolver.BuildDerivationMap(derivationTx)
	require.NoError(t, err)
	derivationTx.Rollback()

	resolveTx, err := db.Begin()
	require.NoError(t, err)
	ucx := resolver.NewConnectUsageContext(derived, &types.AstErrorStats{})
	for _, d := range defs {
		require.NoError(t, resolver.ConnectUsages(resolveTx, ucx, d))
	}
	require.NoError(t, resolveTx.Commit())

	return db, bank, cpath
}

func TestSurfaceDefinitionsFileSymbolsAndUsages(t *testing.T) {
	db, bank, cpath := setupIndexedFile(t)
	status := types.NewStatusPublisher()
	surface := New(db, bank, nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	fileSyms, err := surface.FileSymbols(cpath)
	require.NoError(t, err)
	require.Len(t, fileSyms, 2)

	defs, err := surface.Definitions("Helper")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.True(t, strings.HasSuffix(defs[0].Path(), "Helper"))

	usages, err := surface.Usages("Helper")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Contains(t, usages[0].OwnerOfficialPath, "Caller")
}

func TestSurfaceSymbolsAtReturnsEnclosingDefinition(t *testing.T) {
	db, bank, cpath := setupIndexedFile(t)
	status := types.NewStatusPublisher()
	surface := New(db, bank, nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	syms, err := surface.SymbolsAt(cpath, 4)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Contains(t, syms[0].Path(), "Helper")
}

func TestSurfaceSymbolsAtOutsideAnyRangeIsEmpty(t *testing.T) {
	db, bank, cpath := setupIndexedFile(t)
	status := types.NewStatusPublisher()
	surface := New(db, bank, nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	syms, err := surface.SymbolsAt(cpath, 1)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestSurfaceMissingFileReturnsEmptyNotError(t *testing.T) {
	db, err := astdb.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	status := types.NewStatusPublisher()
	surface := New(db, parser.NewBank(), nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	defs, err := surface.FileSymbols("/no/such/file.go")
	require.NoError(t, err)
	assert.Empty(t, defs)

	chunks, err := surface.Chunks("/no/such/file.go")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	usages, err := surface.Usages("NothingNamedThis")
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestSurfaceChunksReadsCurrentDiskContent(t *testing.T) {
	db, bank, cpath := setupIndexedFile(t)
	status := types.NewStatusPublisher()
	surface := New(db, bank, nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	chunks, err := surface.Chunks(cpath)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, cpath, c.Cpath)
	}
}

func TestSurfaceStatusReflectsPublisherSnapshot(t *testing.T) {
	db, err := astdb.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	status := types.NewStatusPublisher()
	status.Update(func(s *types.AstStatus) {
		s.State = types.StateIdle
		s.FilesTotal = 3
		s.AstMaxFilesHit = true
	})
	surface := New(db, parser.NewBank(), nil, config.Chunker{TokenLimit: 200, OverlapLines: 2}, status, "")

	snap := surface.Status()
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, 3, snap.FilesTotal)
	assert.True(t, snap.AstMaxFilesHit)
}
