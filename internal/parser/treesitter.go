package parser

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/astindex/internal/types"
)

// languageSpec is the per-language configuration the shared tree-walk
// engine specializes on: the grammar, the query identifying declarations/
// fields/calls, and the language tag used in lang🔎Class usage targets.
// Factoring the shared walk out and specializing only this struct mirrors
// the teacher's ≈20-variant parser family, which shares 80% of behavior
// and differs only in grammar query set and declaration formatter
// (spec.md §9).
type languageSpec struct {
	langTag  string
	language *tree_sitter.Language
	query    *tree_sitter.Query
}

// treeSitterParser is the shared LanguageParser implementation every
// tree-sitter-backed language uses; only the languageSpec differs.
type treeSitterParser struct {
	spec languageSpec
}

func newTreeSitterParser(spec languageSpec) *treeSitterParser {
	return &treeSitterParser{spec: spec}
}

// rawMatch groups every capture belonging to one query match by its
// outer (bare, no-dot) capture name plus whatever sub-role captures
// (".name", ".base", ".object", ...) rode along with it.
type rawMatch struct {
	outerKind string
	outerNode *tree_sitter.Node
	subs      map[string][]*tree_sitter.Node
}

func (p *treeSitterParser) Parse(text []byte, path string) ([]SymbolRecord, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.spec.language); err != nil {
		return nil, err
	}

	tree := parser.Parse(text, nil)
	if tree == nil {
		return []SymbolRecord{{IsError: true, Name: path, DeclLine1: 1, DeclLine2: 1}}, nil
	}
	defer tree.Close()

	if p.spec.query == nil {
		return nil, nil
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(p.spec.query, tree.RootNode(), text)
	captureNames := p.spec.query.CaptureNames()

	var raws []rawMatch
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		rm := rawMatch{subs: make(map[string][]*tree_sitter.Node)}
		for _, cap := range m.Captures {
			node := cap.Node
			var name string
			if int(cap.Index) < len(captureNames) {
				name = captureNames[cap.Index]
			}
			if name == "" {
				continue
			}
			if dot := strings.IndexByte(name, '.'); dot < 0 {
				rm.outerKind = name
				n := node
				rm.outerNode = &n
			} else {
				n := node
				rm.subs[name[dot+1:]] = append(rm.subs[name[dot+1:]], &n)
			}
		}
		if rm.outerNode != nil {
			raws = append(raws, rm)
		}
	}

	symbols, calls, varDecls := classifyMatches(p.spec.langTag, text, raws)
	assignParents(symbols)
	attachUsages(p.spec.langTag, symbols, calls, varDecls)

	if len(symbols) == 0 {
		return nil, nil
	}
	return symbols, nil
}

func nodeText(text []byte, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(text[n.StartByte():n.EndByte()])
}

// anonName returns the first 8 hex characters of a fresh UUID, used for
// unnamed symbols so symbol_path stays unique (spec.md §9).
func anonName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

type callSite struct {
	node   *tree_sitter.Node
	object string
	method string
	bare   string
}

type varDecl struct {
	typ  string
	name string
}

func classifyMatches(langTag string, text []byte, raws []rawMatch) ([]SymbolRecord, []callSite, []varDecl) {
	var symbols []SymbolRecord
	var calls []callSite
	var varDecls []varDecl

	for _, rm := range raws {
		switch rm.outerKind {
		case "class", "struct", "interface":
			name := firstText(text, rm.subs["name"])
			classTag := name
			if classTag == "" {
				classTag = anonName()
			}
			sym := SymbolRecord{
				ID:           anonName(),
				Name:         name,
				Type:         types.StructDeclaration,
				ThisIsAClass: langTag + "🔎" + classTag,
			}
			for _, base := range rm.subs["base"] {
				sym.ThisClassDerivedFrom = append(sym.ThisClassDerivedFrom, langTag+"🔎"+nodeText(text, base))
			}
			fillRanges(&sym, rm.outerNode)
			symbols = append(symbols, sym)
		case "function", "method", "constructor":
			name := firstText(text, rm.subs["name"])
			sym := SymbolRecord{ID: anonName(), Name: name, Type: types.FunctionDeclaration}
			fillRanges(&sym, rm.outerNode)
			symbols = append(symbols, sym)
		case "field", "property", "event", "delegate":
			name := firstText(text, rm.subs["name"])
			sym := SymbolRecord{ID: anonName(), Name: name, Type: types.ClassFieldDeclaration}
			fillRanges(&sym, rm.outerNode)
			symbols = append(symbols, sym)
		case "type", "enum":
			name := firstText(text, rm.subs["name"])
			sym := SymbolRecord{ID: anonName(), Name: name, Type: types.TypeAlias}
			fillRanges(&sym, rm.outerNode)
			symbols = append(symbols, sym)
		case "import":
			sym := SymbolRecord{ID: anonName(), Name: "import", Type: types.ImportDeclaration}
			fillRanges(&sym, rm.outerNode)
			symbols = append(symbols, sym)
		case "call":
			cs := callSite{node: rm.outerNode}
			if obj := firstText(text, rm.subs["object"]); obj != "" {
				cs.object = obj
				cs.method = firstText(text, rm.subs["method"])
			} else {
				cs.bare = firstText(text, rm.subs["name"])
			}
			if cs.method != "" || cs.bare != "" {
				calls = append(calls, cs)
			}
		case "vardecl":
			vt := firstText(text, rm.subs["type"])
			vn := firstText(text, rm.subs["name"])
			if vt != "" && vn != "" {
				varDecls = append(varDecls, varDecl{typ: vt, name: vn})
			}
		}
	}

	return symbols, calls, varDecls
}

func firstText(text []byte, nodes []*tree_sitter.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	return nodeText(text, nodes[0])
}

func fillRanges(sym *SymbolRecord, outer *tree_sitter.Node) {
	sym.DeclLine1 = int(outer.StartPosition().Row) + 1
	sym.DeclLine2 = int(outer.EndPosition().Row) + 1
	if body := outer.ChildByFieldName("body"); body != nil {
		bodyStart := int(body.StartPosition().Row)
		sym.DeclLine2 = bodyStart
		if sym.DeclLine2 < sym.DeclLine1 {
			sym.DeclLine2 = sym.DeclLine1
		}
		sym.BodyLine1 = bodyStart + 1
		sym.BodyLine2 = int(body.EndPosition().Row) + 1
	}
	sym.startByte = outer.StartByte()
	sym.endByte = outer.EndByte()
}

// assignParents computes, for each symbol, the smallest enclosing symbol
// by byte-range containment — the Go-idiomatic stand-in for walking a
// stored parent_guid chain, since query captures don't expose one
// directly (the underlying node tree does, but only the captured ranges
// are needed here). Ranges derived from an AST are properly nested, so a
// sorted-stack sweep is sufficient and runs in O(n log n).
func assignParents(symbols []SymbolRecord) {
	order := make([]int, len(symbols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		sa, sb := symbols[order[a]], symbols[order[b]]
		if sa.startByte != sb.startByte {
			return sa.startByte < sb.startByte
		}
		return sa.endByte > sb.endByte
	})

	var stack []int
	for _, idx := range order {
		for len(stack) > 0 && symbols[stack[len(stack)-1]].endByte < symbols[idx].startByte {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			symbols[idx].ParentID = symbols[stack[len(stack)-1]].ID
		}
		stack = append(stack, idx)
	}
}

// attachUsages assigns each call site's generated usage targets to its
// innermost enclosing symbol, per the "textual call-chain" and "enclosing
// class" heuristics of spec.md §4.1 (full semantic type inference is an
// explicit Non-goal, spec.md §1).
func attachUsages(langTag string, symbols []SymbolRecord, calls []callSite, varDecls []varDecl) {
	if len(symbols) == 0 || len(calls) == 0 {
		return
	}

	varTypes := make(map[string]string, len(varDecls))
	for _, vd := range varDecls {
		varTypes[vd.name] = vd.typ
	}

	byID := make(map[string]int, len(symbols))
	for i, s := range symbols {
		byID[s.ID] = i
	}

	for _, c := range calls {
		owner := findEnclosing(symbols, c.node.StartByte(), c.node.EndByte())
		if owner < 0 {
			continue
		}
		enclosingClass := nearestClassTag(symbols, byID, owner)

		var targets []string
		var hint string
		line := int(c.node.StartPosition().Row)

		if c.method != "" {
			if vt, ok := varTypes[c.object]; ok {
				targets = append(targets, "?::"+langTag+"🔎"+vt+"::"+c.method)
			} else if enclosingClass != "" {
				targets = append(targets, "?::"+langTag+"🔎"+enclosingClass+"::"+c.method)
			}
			targets = append(targets, "?::"+c.method)
			hint = "obj-call"
		} else if c.bare != "" {
			if enclosingClass != "" {
				targets = append(targets, "?::"+langTag+"🔎"+enclosingClass+"::"+c.bare)
			}
			targets = append(targets, "?::"+c.bare)
			hint = "bare-call"
		} else {
			continue
		}

		symbols[owner].Usages = append(symbols[owner].Usages, types.Usage{
			TargetsForGuesswork: targets,
			DebugHint:           hint,
			Uline:               line,
		})
	}
}

func findEnclosing(symbols []SymbolRecord, start, end uint) int {
	best := -1
	var bestSize uint = ^uint(0)
	for i, s := range symbols {
		if s.startByte <= start && s.endByte >= end {
			size := s.endByte - s.startByte
			if size < bestSize {
				bestSize = size
				best = i
			}
		}
	}
	return best
}

func nearestClassTag(symbols []SymbolRecord, byID map[string]int, from int) string {
	cur := from
	seen := map[int]bool{}
	for cur >= 0 && !seen[cur] {
		seen[cur] = true
		if symbols[cur].ThisIsAClass != "" {
			return symbols[cur].ThisIsAClass
		}
		parentID := symbols[cur].ParentID
		if parentID == "" {
			return ""
		}
		next, ok := byID[parentID]
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

func lineSlice(text []byte) []string {
	return strings.Split(string(text), "\n")
}

func isCommentLine(s string) bool {
	return strings.HasPrefix(s, "//") || strings.HasPrefix(s, "#") ||
		strings.HasPrefix(s, "/*") || strings.HasPrefix(s, "*") ||
		strings.HasPrefix(s, "--")
}

func (p *treeSitterParser) GetDeclarationWithComments(text []byte, sym SymbolRecord) string {
	lines := lineSlice(text)
	start := sym.DeclLine1 - 1
	if start < 0 || start >= len(lines) {
		return ""
	}
	for start > 0 {
		prev := strings.TrimSpace(lines[start-1])
		if prev == "" || !isCommentLine(prev) {
			break
		}
		start--
	}
	end := sym.FullLine2()
	if end > len(lines) {
		end = len(lines)
	}
	if end < start+1 {
		end = start + 1
	}
	return strings.Join(lines[start:end], "\n")
}

func (p *treeSitterParser) Skeletonize(text []byte, sym SymbolRecord, children []SymbolRecord) string {
	lines := lineSlice(text)
	var b strings.Builder
	if sym.DeclLine1-1 >= 0 && sym.DeclLine2 <= len(lines) && sym.DeclLine1 <= sym.DeclLine2 {
		b.WriteString(strings.Join(lines[sym.DeclLine1-1:sym.DeclLine2], "\n"))
	}
	for _, c := range children {
		if !c.Type.Indexable() {
			continue
		}
		if c.DeclLine1-1 < 0 || c.DeclLine1-1 >= len(lines) {
			continue
		}
		b.WriteString("\n    " + strings.TrimSpace(lines[c.DeclLine1-1]))
	}
	return b.String()
}
