package chunker

import (
	"sort"
	"strings"

	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/markup"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/types"
)

// Split runs the Chunker's per-file algorithm (spec.md §4.6): parse,
// walk symbols in file order clustering non-indexable runs, emit a
// skeleton chunk for struct/class declarations with children, and a
// declaration-plus-comments chunk for every indexable symbol. Files with
// no parser (or no symbols at all) fall back to a plain text splitter —
// scenario S6.
func Split(bank *parser.Bank, tokenizer Tokenizer, cfg config.Chunker, cpath string, text []byte) ([]Chunk, error) {
	symbols, err := bank.Parse(text, cpath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(text), "\n")

	if len(symbols) == 0 {
		return fallbackSplit(cpath, lines, tokenizer, cfg), nil
	}

	fm := markup.Build(symbols)
	pathByID := make(map[string]string, len(fm.SymbolsSortedByPathLen))
	for _, m := range fm.SymbolsSortedByPathLen {
		pathByID[m.ID] = m.SymbolPath
	}

	byID := make(map[string]parser.SymbolRecord, len(symbols))
	childrenOf := make(map[string][]parser.SymbolRecord)
	for _, s := range symbols {
		byID[s.ID] = s
	}
	for _, s := range symbols {
		if s.ParentID != "" {
			childrenOf[s.ParentID] = append(childrenOf[s.ParentID], s)
		}
	}

	ordered := make([]parser.SymbolRecord, len(symbols))
	copy(ordered, symbols)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DeclLine1 < ordered[j].DeclLine1 })

	var out []Chunk
	var cluster []parser.SymbolRecord

	flush := func() {
		if len(cluster) == 0 {
			return
		}
		top := cluster[0].DeclLine1
		bottom := cluster[len(cluster)-1].FullLine2()
		lo, hi := top-1, bottom-1
		if lo < 0 {
			lo = 0
		}
		if hi >= len(lines) {
			hi = len(lines) - 1
		}
		content := strings.Join(lines[lo:hi+1], "\n")
		out = append(out, GetChunks(content, "", top, bottom, tokenizer, cfg.TokenLimit, cfg.OverlapLines, false)...)
		cluster = cluster[:0]
	}

	// crossesContainerBoundary reports whether any ancestor of sym is
	// itself a struct or function declaration — i.e. this non-indexable
	// symbol sits inside a container whose own declaration chunk already
	// covers it, so the pending cluster flushes rather than absorbing it.
	crossesContainerBoundary := func(sym parser.SymbolRecord) bool {
		p := sym.ParentID
		for p != "" {
			parent, ok := byID[p]
			if !ok {
				break
			}
			if parent.Type == types.StructDeclaration || parent.Type == types.FunctionDeclaration {
				return true
			}
			p = parent.ParentID
		}
		return false
	}

	for _, sym := range ordered {
		if !sym.Type.Indexable() {
			if crossesContainerBoundary(sym) {
				flush()
			} else {
				cluster = append(cluster, sym)
			}
			continue
		}
		flush()

		symbolPath := pathByID[sym.ID]

		if sym.Type == types.StructDeclaration {
			if children := childrenOf[sym.ID]; len(children) > 0 {
				skeleton := bank.Skeletonize(text, cpath, sym, children)
				if skeleton != "" {
					out = append(out, GetChunks(skeleton, symbolPath, sym.DeclLine1, sym.FullLine2(), tokenizer, cfg.TokenLimit, cfg.OverlapLines, true)...)
				}
			}
		}

		decl := bank.GetDeclarationWithComments(text, cpath, sym)
		if decl != "" {
			out = append(out, GetChunks(decl, symbolPath, sym.DeclLine1, sym.FullLine2(), tokenizer, cfg.TokenLimit, cfg.OverlapLines, true)...)
		}
	}
	flush()

	for i := range out {
		out[i].Cpath = cpath
	}
	return out, nil
}

// fallbackSplit is the plain-text splitter for files with no parser (or a
// parser that found nothing to index) — scenario S6.
func fallbackSplit(cpath string, lines []string, tokenizer Tokenizer, cfg config.Chunker) []Chunk {
	content := strings.Join(lines, "\n")
	chunks := GetChunks(content, "", 1, len(lines), tokenizer, cfg.TokenLimit, cfg.OverlapLines, false)
	for i := range chunks {
		chunks[i].Cpath = cpath
	}
	return chunks
}
