// Package chunker implements the Chunker (C6): a token-budgeted,
// AST-aware splitter that slices source text into overlapping windows
// suitable for vectorization, each carrying file/line/symbol provenance
// and a stable content hash.
//
// Grounded on
// _examples/original_source/refact-agent/engine/src/ast/chunk_utils.rs
// (get_chunks, official_text_hashing_function) and
// _examples/original_source/refact-agent/engine/src/ast/file_splitter.rs
// (vectorization_split's cluster/flush/skeleton/declaration pipeline).
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Chunk is one emitted window — the SplitResult of spec.md §4.6.
type Chunk struct {
	Cpath          string
	WindowText     string
	WindowTextHash string
	StartLine      int
	EndLine        int
	SymbolPath     string
}

func hashText(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func countTokens(tokenizer Tokenizer, text string) int {
	if tokenizer != nil {
		return tokenizer.CountTokens(text)
	}
	return heuristicTokenizer{}.CountTokens(text)
}

// splitLineIfNeeded sub-splits a single over-budget line, preferring
// tokenizer decode boundaries and falling back to fixed-size rune chunks.
func splitLineIfNeeded(line string, tokenizer Tokenizer, tokensLimit int) []string {
	if tokenizer != nil {
		if parts := tokenizer.SplitByTokens(line, tokensLimit); parts != nil {
			return parts
		}
	}
	return splitWithoutTokenizer(line, tokensLimit)
}

func splitWithoutTokenizer(line string, tokensLimit int) []string {
	if countTokens(nil, line) <= tokensLimit || tokensLimit <= 0 {
		return []string{line}
	}
	runes := []rune(line)
	var out []string
	for i := 0; i < len(runes); i += tokensLimit {
		end := i + tokensLimit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

type accumLine struct {
	text string
	row  int
}

func joinAccum(lines []accumLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

func emitAccum(chunks []Chunk, lines []accumLine, topRow, bottomRow int, useSymbolRangeAlways bool, symbolPath string, tokenizer Tokenizer, tokensLimit int) []Chunk {
	if len(lines) == 0 {
		return chunks
	}
	startLine, endLine := topRow, bottomRow
	if !useSymbolRangeAlways {
		startLine = lines[0].row
		endLine = lines[len(lines)-1].row
	}
	joined := joinAccum(lines)
	for _, piece := range splitLineIfNeeded(joined, tokenizer, tokensLimit) {
		if piece == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			WindowText:     piece,
			WindowTextHash: hashText(piece),
			StartLine:      startLine,
			EndLine:        endLine,
			SymbolPath:     symbolPath,
		})
	}
	return chunks
}

// GetChunks slices text (the content of one region — a cluster, a
// skeleton, or a declaration-plus-comments slice) into token-budgeted,
// overlapping windows.
//
// topRow/bottomRow is the region's own line range; when
// useSymbolRangeAlways is true every emitted chunk reports that whole
// range rather than its own accumulated lines (used for the skeleton and
// declaration cases, where the caller wants provenance tied to the
// enclosing symbol, not to the sub-window).
func GetChunks(text string, symbolPath string, topRow, bottomRow int, tokenizer Tokenizer, tokensLimit, intersectionLines int, useSymbolRangeAlways bool) []Chunk {
	var chunks []Chunk
	lines := strings.Split(text, "\n")

	var accum []accumLine
	currentTokN := 0

	// Top-down pass: accumulate lines until the budget overflows, emit,
	// then restart overlapping the prior block by intersectionLines.
	lineIdx := 0
	previousStart := 0
	for lineIdx < len(lines) {
		line := lines[lineIdx]
		lineTokN := countTokens(tokenizer, line)

		if len(accum) > 0 && currentTokN+lineTokN > tokensLimit {
			chunks = emitAccum(chunks, accum, topRow, bottomRow, useSymbolRangeAlways, symbolPath, tokenizer, tokensLimit)
			accum = nil
			currentTokN = 0
			next := lineIdx - intersectionLines
			if next < 0 {
				next = 0
			}
			if previousStart+1 > next {
				next = previousStart + 1
			}
			lineIdx = next
			previousStart = lineIdx
		} else {
			currentTokN += lineTokN
			accum = append(accum, accumLine{text: line, row: lineIdx + topRow})
			lineIdx++
		}
	}

	// Bottom-up pass: if a residual accumulator remains, discard it and
	// fill one final chunk growing upward from EOF until the budget is
	// exhausted, so the tail of the file keeps full context instead of a
	// half-full top-down remainder.
	if len(accum) > 0 {
		accum = nil
		currentTokN = 0
		i := len(lines) - 1
		for i >= 0 {
			line := lines[i]
			tokN := countTokens(tokenizer, line)
			if len(accum) > 0 && currentTokN+tokN > tokensLimit {
				chunks = emitAccum(chunks, accum, topRow, bottomRow, useSymbolRangeAlways, symbolPath, tokenizer, tokensLimit)
				accum = nil
				break
			}
			currentTokN += tokN
			accum = append([]accumLine{{text: line, row: i + topRow}}, accum...)
			i--
		}
	}

	if len(accum) > 0 {
		chunks = emitAccum(chunks, accum, topRow, bottomRow, useSymbolRangeAlways, symbolPath, tokenizer, tokensLimit)
	}

	return chunks
}
