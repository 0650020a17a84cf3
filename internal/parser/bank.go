package parser

import "path/filepath"

// Bank is the Parser Bank (C1): it dispatches Parse/Skeletonize/
// GetDeclarationWithComments to the LanguageParser registered for a
// file's extension, falling back to nullParser for anything unrecognized
// (S6). Construction does the grammar/query setup once; callers reuse one
// Bank across a whole indexing run.
type Bank struct {
	byExt map[string]LanguageParser
	null  LanguageParser
}

// NewBank builds every supported language's parser eagerly. Each
// grammar's query is compiled once at startup rather than lazily per
// file, matching the teacher's own lazy-but-cached setup intent without
// needing a sync.Once per extension.
func NewBank() *Bank {
	return &Bank{byExt: newLanguageParsers(), null: nullParser{}}
}

func (b *Bank) forPath(path string) LanguageParser {
	ext := filepath.Ext(path)
	if p, ok := b.byExt[ext]; ok {
		return p
	}
	return b.null
}

func (b *Bank) Parse(text []byte, path string) ([]SymbolRecord, error) {
	return b.forPath(path).Parse(text, path)
}

func (b *Bank) Skeletonize(text []byte, path string, sym SymbolRecord, children []SymbolRecord) string {
	return b.forPath(path).Skeletonize(text, sym, children)
}

func (b *Bank) GetDeclarationWithComments(text []byte, path string, sym SymbolRecord) string {
	return b.forPath(path).GetDeclarationWithComments(text, sym)
}
