package chunker

import tiktoken "github.com/pkoukk/tiktoken-go"

// Tokenizer is the injected capability the chunker uses to count and
// split on real token boundaries. Per spec.md §6, absence of a tokenizer
// falls back to the chunker's built-in heuristic — callers may pass nil
// anywhere a Tokenizer is accepted.
type Tokenizer interface {
	// CountTokens returns the token count of text under this encoding.
	CountTokens(text string) int
	// SplitByTokens splits text into pieces of at most limit tokens each,
	// decoding back through the same encoding so pieces remain valid
	// text. Returns nil if the underlying encoding can't decode text
	// (the caller then falls back to a character-based split).
	SplitByTokens(text string, limit int) []string
}

// tiktokenTokenizer wraps a cl100k_base BPE encoding, grounded on
// token_chunker.go's NewTokenChunker/ChunkByTokens in the pack's MCP
// indexer example.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the cl100k_base encoding used by GPT-3.5/4,
// a reasonable stand-in for counting tokens across embedding models.
func NewTiktokenTokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tiktokenTokenizer) SplitByTokens(text string, limit int) []string {
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= limit || limit <= 0 {
		return []string{text}
	}
	var out []string
	for i := 0; i < len(ids); i += limit {
		end := i + limit
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, t.enc.Decode(ids[i:end]))
	}
	return out
}

// heuristicTokenizer implements the `1 + len/3` estimate spec.md §4.6
// names as the chunker's fallback when no real tokenizer is available.
type heuristicTokenizer struct{}

func (heuristicTokenizer) CountTokens(text string) int {
	return 1 + len(text)/3
}

// SplitByTokens has no real token boundaries to decode through, so it
// reports none; callers fall back to the character-chunk splitter.
func (heuristicTokenizer) SplitByTokens(text string, limit int) []string {
	return nil
}

// NewDefaultTokenizer tries to load the real tiktoken encoding and falls
// back to the heuristic estimator if that fails (offline environment, bad
// embedded data, etc.) — the chunker always has SOME tokenizer to count
// with, matching spec.md §6's "when absent, the chunker uses its built-in
// heuristic."
func NewDefaultTokenizer() Tokenizer {
	if t, err := NewTiktokenTokenizer(); err == nil {
		return t
	}
	return heuristicTokenizer{}
}
