// Package errors implements the AST index's error taxonomy as typed values:
// ParseError, UsageUnresolved, UsageAmbiguous, UsageHomeless, DbTransient,
// DbCorrupt, and CapExceeded. Kinds, not concrete type names, are what the
// rest of the module dispatches on.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of error origins the resolver/DB/indexer raise.
type Kind string

const (
	KindParseError      Kind = "ParseError"
	KindUsageUnresolved Kind = "UsageUnresolved"
	KindUsageAmbiguous  Kind = "UsageAmbiguous"
	KindUsageHomeless   Kind = "UsageHomeless"
	KindDbTransient     Kind = "DbTransient"
	KindDbCorrupt       Kind = "DbCorrupt"
	KindCapExceeded     Kind = "CapExceeded"
)

// IndexError is the module's single error type; Kind selects behavior.
type IndexError struct {
	Kind         Kind
	Cpath        string
	OfficialPath string
	Operation    string
	Underlying   error
	Timestamp    time.Time
	Recoverable  bool
}

// New constructs an IndexError of the given kind for the named operation.
// DbCorrupt is unrecoverable by default; every other kind is recoverable.
func New(kind Kind, operation string, underlying error) *IndexError {
	return &IndexError{
		Kind:        kind,
		Operation:   operation,
		Underlying:  underlying,
		Timestamp:   time.Now(),
		Recoverable: kind != KindDbCorrupt,
	}
}

// WithCpath attaches the source file path and returns the receiver.
func (e *IndexError) WithCpath(cpath string) *IndexError {
	e.Cpath = cpath
	return e
}

// WithOfficialPath attaches the definition path and returns the receiver.
func (e *IndexError) WithOfficialPath(path string) *IndexError {
	e.OfficialPath = path
	return e
}

// WithRecoverable overrides the default recoverability and returns the receiver.
func (e *IndexError) WithRecoverable(recoverable bool) *IndexError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	if e.Cpath != "" {
		if e.Underlying != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Operation, e.Cpath, e.Underlying)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Operation, e.Cpath)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Operation)
}

// Unwrap exposes the underlying error for errors.Is/errors.As.
func (e *IndexError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable reports whether indexing can continue past this error.
func (e *IndexError) IsRecoverable() bool {
	return e.Recoverable
}

// IsKind reports whether err is an *IndexError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Kind == kind
	}
	return false
}

// ParseError wraps a parser failure on one subtree; per the error taxonomy
// this never aborts the whole file — the caller emits an is_error symbol
// and continues walking.
func ParseError(cpath string, underlying error) *IndexError {
	return New(KindParseError, "parse", underlying).WithCpath(cpath)
}

// UsageUnresolved reports that the resolver found zero matches for a usage
// target; the usage stays with an empty ResolvedAs.
func UsageUnresolved(officialPath, target string) *IndexError {
	return New(KindUsageUnresolved, "resolve", fmt.Errorf("no definition matches %q", target)).
		WithOfficialPath(officialPath)
}

// UsageAmbiguous reports that the resolver found more than one match; the
// first (in DB lexicographic order) is kept, all candidates are named.
func UsageAmbiguous(officialPath string, candidates []string) *IndexError {
	return New(KindUsageAmbiguous, "resolve", fmt.Errorf("ambiguous match among %v", candidates)).
		WithOfficialPath(officialPath)
}

// UsageHomeless reports a target that never begins with "?::".
func UsageHomeless(officialPath, target string) *IndexError {
	return New(KindUsageHomeless, "resolve", fmt.Errorf("target %q is not a guesswork candidate", target)).
		WithOfficialPath(officialPath)
}

// DbTransient wraps a retryable transaction conflict or lock timeout. Per
// the taxonomy, the caller retries the file once before giving up.
func DbTransient(operation string, underlying error) *IndexError {
	return New(KindDbTransient, operation, underlying).WithRecoverable(true)
}

// DbCorrupt wraps a deserialization failure. This is fatal: it halts
// indexing and must be raised to the supervisor.
func DbCorrupt(operation string, underlying error) *IndexError {
	return New(KindDbCorrupt, operation, underlying).WithRecoverable(false)
}

// CapExceeded reports that ast_max_files has been reached.
func CapExceeded(cpath string) *IndexError {
	return New(KindCapExceeded, "enqueue", errors.New("ast_max_files reached")).
		WithCpath(cpath).WithRecoverable(true)
}
