package indexer

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/astindex/internal/markup"
)

// CpathHash returns the 16-hex-character lowercase xxhash64 of cpath —
// the file-scope component every official_path begins with. Chosen over
// the raw path (the spec's Open Question on this point) to keep DB keys
// short and of bounded length regardless of how deep the project tree
// is; the tradeoff, accepted explicitly, is that renaming a file changes
// its official_path even though no definition's content changed.
func CpathHash(cpath string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(cpath))
}

// OfficialPath builds the full official_path components for one marked
// symbol: the file-scope hash, followed by every component of its
// symbol_path.
func OfficialPath(cpathHash string, sym markup.MarkedSymbol) []string {
	out := make([]string, 0, 1+len(markup.PathComponents(sym.SymbolPath)))
	out = append(out, cpathHash)
	out = append(out, markup.PathComponents(sym.SymbolPath)...)
	return out
}
