package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/types"
)

// magnifyingGlassRE matches one lang🔎Class token, e.g. "cpp🔎Goat".
var magnifyingGlassRE = regexp.MustCompile(`([A-Za-z0-9_]+)` + astdb.LangClassGlyph + `([A-Za-z0-9_]+)`)

// ConnectUsageContext accumulates the per-pass derivation map and result
// counters the indexer reports through AstStatus, mirroring the
// original's ConnectUsageContext.
type ConnectUsageContext struct {
	DerivedFromMap DerivationMap
	ErrStats       *types.AstErrorStats

	UsagesConnected int
	UsagesHomeless  int
	UsagesNotFound  int
	UsagesAmbiguous int
}

func NewConnectUsageContext(derived DerivationMap, errStats *types.AstErrorStats) *ConnectUsageContext {
	return &ConnectUsageContext{DerivedFromMap: derived, ErrStats: errStats}
}

// ConnectUsages resolves every unresolved usage on d, writing u/ links
// and the definition's resolve-cleanup/ list in one transaction. Already
// resolved usages (ResolvedAs != "") are not resolved again: their u/
// link is re-recorded as is and counted connected, so a re-run is
// idempotent.
func ConnectUsages(tx *astdb.Tx, ucx *ConnectUsageContext, d *types.AstDefinition) error {
	official := d.Path()
	pending := &astdb.PendingCleanup{Owner: official}

	for uindex := range d.Usages {
		usage := &d.Usages[uindex]
		if usage.IsResolved() {
			// Re-record rather than skip: pending.Keys must carry every
			// usage still valid for d, not just the ones resolved this
			// pass, or WriteCleanupList would treat an unchanged,
			// already-resolved usage as stale and delete it on a re-run.
			if err := astdb.RecordUsage(tx, usage.ResolvedAs, official, usage.Uline, pending); err != nil {
				return err
			}
			ucx.UsagesConnected++
			continue
		}

		for _, rawTarget := range usage.TargetsForGuesswork {
			toResolve, ok := strings.CutPrefix(rawTarget, "?::")
			if !ok {
				ucx.UsagesHomeless++
				continue
			}

			variants := expandVariants(toResolve, ucx.DerivedFromMap)

			var found []string
			for _, v := range variants {
				matches, err := astdb.DefinitionsByAlias(tx, v)
				if err != nil {
					return err
				}
				for _, m := range matches {
					found = append(found, m.Path())
				}
				if len(found) > 0 {
					break
				}
			}

			if len(found) == 0 {
				ucx.UsagesNotFound++
				continue
			}
			if len(found) > 1 {
				ucx.ErrStats.AddError(d.Cpath, fmt.Sprintf("usage `%s` is ambiguous, can mean: %v", toResolve, found), usage.Uline)
				ucx.UsagesAmbiguous++
				found = found[:1]
			}

			resolved := found[0]
			if err := astdb.RecordUsage(tx, resolved, official, usage.Uline, pending); err != nil {
				return err
			}
			usage.ResolvedAs = resolved
			ucx.UsagesConnected++
			break
		}
	}

	return astdb.WriteCleanupList(tx, pending)
}

// expandVariants extracts every lang🔎Class token from toResolve,
// substitutes each with itself plus its full derivation closure (class
// tags with the language prefix stripped, since official_paths never
// carry it), and returns the Cartesian product of substitutions —
// longest/most-specific first, matching the order
// usage.TargetsForGuesswork was already built in.
func expandVariants(toResolve string, derived DerivationMap) []string {
	type pair struct{ lang, klass string }
	var pairs []pair

	template := toResolve
	for i, m := range magnifyingGlassRE.FindAllStringSubmatch(toResolve, -1) {
		lang, klass := m[1], m[2]
		placeholder := fmt.Sprintf("%%%%PAIR%d%%%%", i)
		template = strings.Replace(template, lang+astdb.LangClassGlyph+klass, placeholder, 1)
		pairs = append(pairs, pair{lang: lang, klass: klass})
	}

	if len(pairs) == 0 {
		return []string{toResolve}
	}

	substitutionsPerPair := make([][]string, len(pairs))
	for i, p := range pairs {
		tag := p.lang + astdb.LangClassGlyph + p.klass
		subs := []string{p.klass}
		for _, ancestor := range derived[tag] {
			subs = append(subs, strings.TrimPrefix(ancestor, p.lang+astdb.LangClassGlyph))
		}
		substitutionsPerPair[i] = subs
	}

	combos := cartesianProduct(substitutionsPerPair)
	variants := make([]string, 0, len(combos))
	for _, combo := range combos {
		variant := template
		for i, sub := range combo {
			placeholder := fmt.Sprintf("%%%%PAIR%d%%%%", i)
			variant = strings.Replace(variant, placeholder, sub, 1)
		}
		variants = append(variants, variant)
	}
	return variants
}

func cartesianProduct(lists [][]string) [][]string {
	result := [][]string{{}}
	for _, list := range lists {
		var next [][]string
		for _, partial := range result {
			for _, item := range list {
				combo := append(append([]string{}, partial...), item)
				next = append(next, combo)
			}
		}
		result = next
	}
	return result
}
