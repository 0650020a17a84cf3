package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/parser"
)

const goSample = `package widget

import "fmt"

// Greet prints a friendly message.
func Greet(name string) {
	fmt.Println("hello " + name)
}

func Add(a, b int) int {
	return a + b
}
`

func TestSplitProducesChunksCoveringEveryFunction(t *testing.T) {
	bank := parser.NewBank()
	cfg := config.Chunker{TokenLimit: 200, OverlapLines: 2}

	chunks, err := Split(bank, nil, cfg, "widget.go", []byte(goSample))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Equal(t, "widget.go", c.Cpath)
		assert.NotEmpty(t, c.WindowTextHash)
		assert.LessOrEqual(t, c.StartLine, c.EndLine)
	}

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.WindowText)
		joined.WriteString("\n")
	}
	all := joined.String()
	assert.Contains(t, all, "func Greet")
	assert.Contains(t, all, "func Add")
}

// TestSplitFallsBackToPlainTextSplitterForUnknownExtension grounds
// scenario S6: an unrecognized extension produces no symbols, so Split
// falls back to the plain text splitter rather than emitting nothing.
func TestSplitFallsBackToPlainTextSplitterForUnknownExtension(t *testing.T) {
	bank := parser.NewBank()
	cfg := config.Chunker{TokenLimit: 50, OverlapLines: 1}

	text := "just some prose\nacross a couple of lines\nnothing to parse here\n"
	chunks, err := Split(bank, nil, cfg, "notes.xyz", []byte(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "notes.xyz", c.Cpath)
		assert.Empty(t, c.SymbolPath)
	}
}

func TestSplitHandlesEmptyFile(t *testing.T) {
	bank := parser.NewBank()
	cfg := config.Chunker{TokenLimit: 50, OverlapLines: 1}

	chunks, err := Split(bank, nil, cfg, "empty.go", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
