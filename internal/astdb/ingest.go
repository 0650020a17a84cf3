package astdb

import (
	"strings"

	"github.com/standardbeagle/astindex/internal/types"
)

// PutDefinition writes a definition's d/ record plus a c/ alias for every
// suffix of its official_path (Alias Coverage invariant, spec.md §8.1)
// and a classes/ edge for every class it derives from. The defs counter
// is bumped by one only when no d/ record existed under this
// official_path, so rewriting an unchanged definition leaves it as is.
// Callers commit the Tx once all definitions for a file have been written.
func PutDefinition(tx *Tx, d *types.AstDefinition) error {
	official := d.Path()

	_, existed, err := tx.Get(DefKey(official))
	if err != nil {
		return err
	}

	raw, err := EncodeDefinition(d)
	if err != nil {
		return err
	}
	if err := tx.Put(DefKey(official), raw); err != nil {
		return err
	}

	for _, suffix := range PathSuffixes(d.OfficialPath) {
		if err := tx.Put(AliasKey(suffix, official), []byte{1}); err != nil {
			return err
		}
	}

	if d.ThisIsAClass != "" {
		for _, parent := range d.ThisClassDerivedFrom {
			if err := tx.Put(ClassEdgeKey(parent, official), []byte(d.ThisIsAClass)); err != nil {
				return err
			}
		}
	}

	if !existed {
		tx.bumpCounter("defs", 1)
	}
	return nil
}

// DeleteDefinition removes a definition's d/ record, every c/ alias
// derived from its official_path, every u/ key its resolve-cleanup list
// names, and the cleanup list itself — the Cleanup Symmetry invariant
// (spec.md §8.2) applied in reverse.
func DeleteDefinition(tx *Tx, officialPath string) error {
	raw, ok, err := tx.Get(DefKey(officialPath))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	d, err := DecodeDefinition(raw)
	if err != nil {
		return err
	}

	usageCount, err := clearCleanup(tx, officialPath)
	if err != nil {
		return err
	}

	if err := tx.Delete(DefKey(officialPath)); err != nil {
		return err
	}
	for _, suffix := range PathSuffixes(d.OfficialPath) {
		if err := tx.Delete(AliasKey(suffix, officialPath)); err != nil {
			return err
		}
	}

	tx.bumpCounter("defs", -1)
	if usageCount > 0 {
		tx.bumpCounter("usages", -usageCount)
	}
	return nil
}

// RecordUsage writes a resolved usage link and appends it to the owning
// definition's cleanup list, which must be flushed (WriteCleanupList)
// once all of that owner's usages for this indexing pass are known.
func RecordUsage(tx *Tx, resolvedOfficialPath, ownerOfficialPath string, uline int, pending *PendingCleanup) error {
	key := UsageKey(resolvedOfficialPath, ownerOfficialPath)
	if err := tx.Put(key, EncodeInt(uline)); err != nil {
		return err
	}
	pending.Keys = append(pending.Keys, key)
	return nil
}

// PendingCleanup accumulates the u/ keys written for one owner during a
// single resolution pass, to be persisted as that owner's
// resolve-cleanup/ list in one transaction alongside the usages
// themselves (spec.md §4.3's "written and deleted together" invariant).
type PendingCleanup struct {
	Owner string
	Keys  []string
}

// WriteCleanupList reconciles the owner's resolve-cleanup/ list with
// pending.Keys, which callers build to name every usage key still valid
// for this pass — including ones already resolved on a prior pass, not
// just ones newly resolved this time (ConnectUsages calls RecordUsage
// for both). Only keys present in the old list but absent from
// pending.Keys are deleted; a key present in both is left alone, since
// RecordUsage already wrote its current value during resolution. This
// makes re-running the resolver over an unchanged definition a no-op
// here: nothing to delete, nothing new to write (Resolution
// Idempotence). The counter moves by the net key-count delta, not by
// pending.Keys' length alone.
func WriteCleanupList(tx *Tx, pending *PendingCleanup) error {
	oldKeys, err := readCleanupKeys(tx, pending.Owner)
	if err != nil {
		return err
	}

	newSet := make(map[string]bool, len(pending.Keys))
	for _, k := range pending.Keys {
		newSet[k] = true
	}
	for _, k := range oldKeys {
		if newSet[k] {
			continue
		}
		if err := tx.Delete(k); err != nil {
			return err
		}
	}

	if len(pending.Keys) == 0 {
		tx.bumpCounter("usages", -len(oldKeys))
		return tx.Delete(CleanupKey(pending.Owner))
	}
	encoded, err := EncodeStringList(pending.Keys)
	if err != nil {
		return err
	}
	if err := tx.Put(CleanupKey(pending.Owner), encoded); err != nil {
		return err
	}
	tx.bumpCounter("usages", len(pending.Keys)-len(oldKeys))
	return nil
}

// readCleanupKeys returns owner's current resolve-cleanup/ list, or nil
// if it has none yet.
func readCleanupKeys(tx *Tx, owner string) ([]string, error) {
	raw, ok, err := tx.Get(CleanupKey(owner))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return DecodeStringList(raw)
}

// clearCleanup deletes every u/ key named by owner's cleanup list (if
// any) and the list itself, returning how many usage keys were removed
// so the caller can adjust the usages counter.
func clearCleanup(tx *Tx, owner string) (int, error) {
	raw, ok, err := tx.Get(CleanupKey(owner))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	keys, err := DecodeStringList(raw)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := tx.Delete(CleanupKey(owner)); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func ReadCounter(tx *Tx, name string) (int, error) {
	raw, ok, err := tx.Get(CounterKey(name))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return DecodeInt(raw), nil
}

// FileDefinitions reads every d/ record whose official_path begins with
// cpathHash, via the d/<cpathHash>::  prefix scan (file_symbols query,
// spec.md §4.6).
func FileDefinitions(tx *Tx, cpathHash string) ([]*types.AstDefinition, error) {
	rows, err := tx.ScanPrefix(DefPrefix(cpathHash))
	if err != nil {
		return nil, err
	}
	out := make([]*types.AstDefinition, 0, len(rows))
	for _, row := range rows {
		d, err := DecodeDefinition(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DefinitionsByAlias resolves a short or full "::"-joined path to every
// matching AstDefinition via a c/<path> ⚡ prefix scan, de-duplicating by
// full official_path (spec.md §4.6's definitions() query).
func DefinitionsByAlias(tx *Tx, path string) ([]*types.AstDefinition, error) {
	rows, err := tx.ScanPrefix(AliasScanPrefix(path))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	var out []*types.AstDefinition
	for _, row := range rows {
		official := strings.TrimPrefix(row.Key, AliasScanPrefix(path))
		if seen[official] {
			continue
		}
		seen[official] = true
		raw, ok, err := tx.Get(DefKey(official))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		d, err := DecodeDefinition(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// UsageOwner is one "owner uses resolved-path at line" record.
type UsageOwner struct {
	OwnerOfficialPath string
	Uline             int
}

// Usages resolves every owner that uses the given official_path, via a
// u/<path> ⚡ prefix scan (spec.md §4.6's usages() query).
func Usages(tx *Tx, resolvedOfficialPath string) ([]UsageOwner, error) {
	rows, err := tx.ScanPrefix(UsageScanPrefix(resolvedOfficialPath))
	if err != nil {
		return nil, err
	}
	out := make([]UsageOwner, 0, len(rows))
	for _, row := range rows {
		owner := strings.TrimPrefix(row.Key, UsageScanPrefix(resolvedOfficialPath))
		out = append(out, UsageOwner{OwnerOfficialPath: owner, Uline: DecodeInt(row.Value)})
	}
	return out, nil
}

// ClassChildren returns every lang🔎Child tag directly derived from
// parentTag, via a classes/<parentTag> ⚡ prefix scan — one layer of the
// derivation closure the Usage Resolver (C4) expands transitively.
func ClassChildren(tx *Tx, parentTag string) ([]string, error) {
	rows, err := tx.ScanPrefix(ClassEdgeScanPrefix(parentTag))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, string(row.Value))
	}
	return out, nil
}
