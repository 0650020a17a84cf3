// Package types holds the data model shared by the parser bank, the AST
// database, the usage resolver, and the chunker: symbol kinds, definitions,
// usages, error stats, and the process-wide status snapshot.
package types

import "strings"

// SymbolType is the closed set of symbol kinds a parser can emit.
type SymbolType int

const (
	Unknown SymbolType = iota
	StructDeclaration
	FunctionDeclaration
	ClassFieldDeclaration
	TypeAlias
	VariableDefinition
	ImportDeclaration
	CommentDefinition
	FunctionCall
	VariableUsage
)

func (t SymbolType) String() string {
	switch t {
	case StructDeclaration:
		return "StructDeclaration"
	case FunctionDeclaration:
		return "FunctionDeclaration"
	case ClassFieldDeclaration:
		return "ClassFieldDeclaration"
	case TypeAlias:
		return "TypeAlias"
	case VariableDefinition:
		return "VariableDefinition"
	case ImportDeclaration:
		return "ImportDeclaration"
	case CommentDefinition:
		return "CommentDefinition"
	case FunctionCall:
		return "FunctionCall"
	case VariableUsage:
		return "VariableUsage"
	default:
		return "Unknown"
	}
}

// Indexable reports whether this symbol type is emitted as its own chunk by
// the chunker's symbol walk (chunk_utils/file_splitter pipeline).
func (t SymbolType) Indexable() bool {
	switch t {
	case StructDeclaration, FunctionDeclaration, TypeAlias, ClassFieldDeclaration:
		return true
	default:
		return false
	}
}

// Usage is a single reference discovered inside a definition's body.
type Usage struct {
	// TargetsForGuesswork is an ordered list of candidate dotted paths,
	// longest/most-specific first. Unresolved entries begin with "?::".
	TargetsForGuesswork []string
	// ResolvedAs is empty until resolution completes, then holds the
	// official_path of the matched definition.
	ResolvedAs string
	// DebugHint is an opaque provenance tag, e.g. "up", "n2p".
	DebugHint string
	// Uline is the 0-based source line of the usage.
	Uline int
}

// IsResolved reports whether this usage already has a match.
func (u *Usage) IsResolved() bool {
	return u.ResolvedAs != ""
}

// AstDefinition is the primary entity stored in the AST DB.
type AstDefinition struct {
	// OfficialPath is the ordered sequence of path components
	// [file-cpath-hash, namespace..., class?, name] — unique identifier.
	OfficialPath []string
	SymbolType   SymbolType
	Usages       []Usage
	// ThisIsAClass is a language-qualified class tag, e.g. "cpp🔎Goat", or
	// empty when this definition is not a class/struct.
	ThisIsAClass string
	// ThisClassDerivedFrom lists language-qualified parent class tags.
	ThisClassDerivedFrom []string
	// Cpath is the canonical filesystem path string.
	Cpath string
	// DeclLine1/DeclLine2 is the 1-based inclusive declaration line range.
	DeclLine1, DeclLine2 int
	// BodyLine1/BodyLine2 is 0 when there is no body, otherwise the body range.
	BodyLine1, BodyLine2 int
}

// Path returns the full "::"-joined official path.
func (d *AstDefinition) Path() string {
	return strings.Join(d.OfficialPath, "::")
}

// PathDrop0 drops the file-hash head component when the path is "long form"
// (more than 3 components), returning the remainder joined by "::".
func (d *AstDefinition) PathDrop0() string {
	if len(d.OfficialPath) > 3 {
		return strings.Join(d.OfficialPath[1:], "::")
	}
	return d.Path()
}

// Name returns the last path component.
func (d *AstDefinition) Name() string {
	if len(d.OfficialPath) == 0 {
		return ""
	}
	return d.OfficialPath[len(d.OfficialPath)-1]
}

// FullLine1 is the declaration-range start widened by the body range.
func (d *AstDefinition) FullLine1() int {
	if d.BodyLine1 > 0 && d.BodyLine1 < d.DeclLine1 {
		return d.BodyLine1
	}
	return d.DeclLine1
}

// FullLine2 is the declaration-range end widened by the body range.
func (d *AstDefinition) FullLine2() int {
	if d.BodyLine2 > d.DeclLine2 {
		return d.BodyLine2
	}
	return d.DeclLine2
}

// Validate checks the invariants of §3: decl_line1 >= 1, decl_line2 >=
// decl_line1, and if body_line1 > 0 then body_line2 >= body_line1.
func (d *AstDefinition) Validate() error {
	if d.DeclLine1 < 1 {
		return &ValidationError{Field: "decl_line1", Reason: "must be >= 1"}
	}
	if d.DeclLine2 < d.DeclLine1 {
		return &ValidationError{Field: "decl_line2", Reason: "must be >= decl_line1"}
	}
	if d.BodyLine1 > 0 && d.BodyLine2 < d.BodyLine1 {
		return &ValidationError{Field: "body_line2", Reason: "must be >= body_line1 when body_line1 > 0"}
	}
	return nil
}

// ValidationError reports a violated AstDefinition invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "astdefinition: " + e.Field + ": " + e.Reason
}

// ErrEntry is one bounded record in AstErrorStats.
type ErrEntry struct {
	Cpath   string
	Message string
	Line    int
}

// TooManyErrors is the cap on retained AstErrorStats entries.
const TooManyErrors = 1000

// AstErrorStats is a bounded ring of error records plus a running total.
// Entries beyond TooManyErrors are dropped but Total keeps counting.
type AstErrorStats struct {
	Entries []ErrEntry
	Total   int
}

// AddError appends an entry, enforcing the TooManyErrors cap, and always
// increments Total regardless of whether the entry was retained.
func (s *AstErrorStats) AddError(cpath, message string, line int) {
	s.Total++
	if len(s.Entries) >= TooManyErrors {
		return
	}
	s.Entries = append(s.Entries, ErrEntry{Cpath: cpath, Message: message, Line: line})
}

// IndexerState is the C5 indexer thread's state machine position.
type IndexerState int

const (
	StateStarting IndexerState = iota
	StateParsing
	StateIndexing
	StateIdle
	StateStopping
)

func (s IndexerState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateParsing:
		return "parsing"
	case StateIndexing:
		return "indexing"
	case StateIdle:
		return "idle"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// AstStatus is the externally visible snapshot of indexer progress.
type AstStatus struct {
	State                 IndexerState
	FilesUnparsed         int
	FilesTotal            int
	AstIndexFilesTotal    int
	AstIndexSymbolsTotal  int
	AstIndexUsagesTotal   int
	AstMaxFilesHit        bool
}
