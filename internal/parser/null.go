package parser

// nullParser is the fallback for unknown extensions: it produces no
// symbols (S6 — the file is then chunked by the fallback text splitter).
type nullParser struct{}

func (nullParser) Parse(text []byte, path string) ([]SymbolRecord, error) {
	return nil, nil
}

func (nullParser) Skeletonize(text []byte, sym SymbolRecord, children []SymbolRecord) string {
	return ""
}

func (nullParser) GetDeclarationWithComments(text []byte, sym SymbolRecord) string {
	return ""
}
