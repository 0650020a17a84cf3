// Package astdb implements the AST DB (C3): a persistent ordered
// key-value store keyed by typed prefixes, built on modernc.org/sqlite
// with a single `key TEXT PRIMARY KEY, value BLOB` table. SQLite's
// default BINARY collation on a TEXT primary key gives byte-lexicographic
// ordering for free, so `WHERE key >= ? AND key < ?` is exactly the
// prefix-range scan spec.md §4.3 requires — no separate ordered-map
// engine is needed.
//
// Grounded on
// _examples/josephgoksu-TaskWing/internal/memory/sqlite.go for the
// database/sql + modernc.org/sqlite wiring idiom (sql.Open("sqlite", ...),
// schema-on-open, blank-imported driver).
package astdb

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/standardbeagle/astindex/internal/errors"
	"github.com/standardbeagle/astindex/internal/types"
)

// KeySeparator is the literal key-fragment separator, U+26A1 (⚡).
const KeySeparator = "⚡"

// LangClassGlyph is the language-class tag separator, U+1F50E (🔎).
const LangClassGlyph = "🔎"

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB
);
`

// DB wraps the single kv table with the typed-prefix key helpers and
// transaction semantics the rest of the AST DB components (resolver,
// indexer, query surface) build on.
type DB struct {
	conn *sql.DB
}

// Open creates (or reuses) a SQLite database file at
// <dataDir>/astdb.sqlite. dataDir is created if missing. An empty
// dataDir opens a private in-memory database instead (config.Project's
// "empty DataDir means in-memory" contract) — useful for tests and
// short-lived tools that never need the index to outlive the process.
func Open(dataDir string) (*DB, error) {
	dbPath := "file::memory:"
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, errors.DbCorrupt("open", err)
		}
		dbPath = filepath.Join(dataDir, "astdb.sqlite")
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.DbCorrupt("open", err)
	}
	if dataDir == "" {
		// A fresh connection to "file::memory:" is a fresh empty
		// database; pin the pool to one connection so every query sees
		// the same in-memory instance for the DB's lifetime.
		conn.SetMaxOpenConns(1)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.DbCorrupt("init-schema", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Tx is one transaction's worth of reads/writes; every public mutating
// entry point (definition ingest, usage resolution, counters) commits
// through a Tx so a crash mid-write never leaves a d/ record with half
// its c/ aliases, per the "writes in one transaction" invariants of
// spec.md §4.3/§8.
//
// Counter adjustments (PutDefinition/DeleteDefinition/WriteCleanupList)
// accumulate in counterDeltas rather than doing a Get+Put per definition:
// spec.md §4.3/§8 requires counters be "updated only via delta map flushed
// on batch commit — never by read-modify-write in hot loops." Commit
// flushes the whole map with one Get+Put per distinct counter name.
type Tx struct {
	tx            *sql.Tx
	counterDeltas map[string]int
}

func (db *DB) Begin() (*Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, errors.DbTransient("begin", err)
	}
	return &Tx{tx: tx, counterDeltas: make(map[string]int)}, nil
}

// bumpCounter records a counter adjustment to be flushed at Commit; it
// never touches the database itself.
func (t *Tx) bumpCounter(name string, delta int) {
	if delta == 0 {
		return
	}
	t.counterDeltas[name] += delta
}

func (t *Tx) Commit() error {
	for name, delta := range t.counterDeltas {
		if delta == 0 {
			continue
		}
		raw, ok, err := t.Get(CounterKey(name))
		if err != nil {
			return err
		}
		current := 0
		if ok {
			current = DecodeInt(raw)
		}
		if err := t.Put(CounterKey(name), EncodeInt(current+delta)); err != nil {
			return err
		}
	}
	if err := t.tx.Commit(); err != nil {
		return errors.DbTransient("commit", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) Put(key string, value []byte) error {
	_, err := t.tx.Exec(`INSERT INTO kv(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return errors.DbTransient("put", err)
	}
	return nil
}

func (t *Tx) Delete(key string) error {
	_, err := t.tx.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return errors.DbTransient("delete", err)
	}
	return nil
}

func (t *Tx) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := t.tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.DbTransient("get", err)
	}
	return value, true, nil
}

// ScanPrefix returns every (key, value) pair whose key starts with
// prefix, in byte-lexicographic order. The upper bound is computed by
// incrementing the prefix's last byte, the standard SQLite
// range-scan-for-prefix trick; a prefix of all 0xFF bytes (never
// produced by our key schema, which is always printable text) scans to
// the end of the table instead.
func (t *Tx) ScanPrefix(prefix string) ([]KV, error) {
	upper, ok := prefixUpperBound(prefix)
	var rows *sql.Rows
	var err error
	if ok {
		rows, err = t.tx.Query(`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key`, prefix, upper)
	} else {
		rows, err = t.tx.Query(`SELECT key, value FROM kv WHERE key >= ? ORDER BY key`, prefix)
	}
	if err != nil {
		return nil, errors.DbTransient("scan-prefix", err)
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, errors.DbTransient("scan-prefix-row", err)
		}
		out = append(out, kv)
	}
	return out, rows.Err()
}

type KV struct {
	Key   string
	Value []byte
}

func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xFF {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// --- Key schema builders (spec.md §4.3) ---

func DefKey(officialPath string) string {
	return "d/" + officialPath
}

func DefPrefix(cpathHash string) string {
	return "d/" + cpathHash + "::"
}

func AliasKey(shortPath, officialPath string) string {
	return "c/" + shortPath + KeySeparator + officialPath
}

func AliasScanPrefix(shortPath string) string {
	return "c/" + shortPath + KeySeparator
}

func UsageKey(resolvedOfficialPath, ownerOfficialPath string) string {
	return "u/" + resolvedOfficialPath + KeySeparator + ownerOfficialPath
}

func UsageScanPrefix(officialPath string) string {
	return "u/" + officialPath + KeySeparator
}

func ClassEdgeKey(langParentTag, ownerOfficialPath string) string {
	return "classes/" + langParentTag + KeySeparator + ownerOfficialPath
}

func ClassEdgeScanPrefix(langParentTag string) string {
	return "classes/" + langParentTag + KeySeparator
}

func CleanupKey(officialPath string) string {
	return "resolve-cleanup/" + officialPath
}

func CounterKey(name string) string {
	return "counters/" + name
}

// --- Value codecs ---
//
// encoding/gob is the one standard-library exception in this module: no
// CBOR, MessagePack, or protobuf library appears anywhere in the example
// corpus, so there is nothing to ground a replacement on. gob already
// satisfies spec.md §4.3's actual requirement — "length-prefixed binary
// serialization ... determinism and cross-version read compatibility" —
// since gob streams are self-describing and tolerate added fields.

func EncodeDefinition(d *types.AstDefinition) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, errors.DbCorrupt("encode-definition", err)
	}
	return buf.Bytes(), nil
}

func DecodeDefinition(raw []byte) (*types.AstDefinition, error) {
	var d types.AstDefinition
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
		return nil, errors.DbCorrupt("decode-definition", err)
	}
	return &d, nil
}

func EncodeInt(n int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d", n)
	return buf.Bytes()
}

func DecodeInt(raw []byte) int {
	var n int
	fmt.Sscanf(string(raw), "%d", &n)
	return n
}

func EncodeStringList(list []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(list); err != nil {
		return nil, errors.DbCorrupt("encode-string-list", err)
	}
	return buf.Bytes(), nil
}

func DecodeStringList(raw []byte) ([]string, error) {
	var list []string
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&list); err != nil {
		return nil, errors.DbCorrupt("decode-string-list", err)
	}
	return list, nil
}

// PathSuffixes returns every proper suffix of a "::"-joined official
// path, longest first: the full path, drop-first, drop-first-two, ...,
// down to the bare leaf name. Every d/ record gets a c/ alias for each
// of these, satisfying the Alias Coverage invariant (spec.md §8.1).
func PathSuffixes(components []string) []string {
	if len(components) == 0 {
		return nil
	}
	out := make([]string, 0, len(components))
	for i := range components {
		out = append(out, joinPath(components[i:]))
	}
	return out
}

func joinPath(components []string) string {
	out := components[0]
	for _, c := range components[1:] {
		out += "::" + c
	}
	return out
}

// SortedCounterNames is a stable helper for tests/diagnostics that want
// deterministic counter-dump ordering; not used on the hot path.
func SortedCounterNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
