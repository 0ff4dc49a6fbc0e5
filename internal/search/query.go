package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinQueryLength is the shortest trimmed input treated as a free-text search;
// anything shorter gets the recent/default listing instead of a wildcard
// catalog query.
const MinQueryLength = 2

// NormalizeQuery trims, lowercases and collapses whitespace. Idempotent.
func NormalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MakeQueryKey derives the cache key for a query string: truncated SHA-256 of
// the normalized text, so "Pikachu", " pikachu " and "PIKACHU" share one
// entry.
func MakeQueryKey(s string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(s)))
	return hex.EncodeToString(sum[:])[:16]
}

// rarityOption maps one UI rarity label to its catalog query aliases. Some
// rarities were renamed across catalog eras, so a label can carry several
// aliases.
type rarityOption struct {
	Label   string
	Aliases []string
}

// RarityOther is the synthetic bucket matching cards whose rarity is none of
// the enumerated labels.
const RarityOther = "Other"

var rarityOptions = []rarityOption{
	{"Common", []string{"Common"}},
	{"Uncommon", []string{"Uncommon"}},
	{"Rare", []string{"Rare"}},
	{"Rare Holo", []string{"Rare Holo"}},
	{"Double Rare", []string{"Double Rare"}},
	{"Ultra Rare", []string{"Rare Ultra", "Ultra Rare"}},
	{"Illustration Rare", []string{"Illustration Rare"}},
	{"Special Illustration Rare", []string{"Special Illustration Rare"}},
	{"Rare Secret", []string{"Rare Secret", "Secret Rare"}},
	{"Hyper Rare", []string{"Hyper Rare", "Rare Rainbow"}},
	{"Promo", []string{"Promo"}},
}

// RarityLabels returns the selectable rarity labels, "Other" last.
func RarityLabels() []string {
	labels := make([]string, 0, len(rarityOptions)+1)
	for _, opt := range rarityOptions {
		labels = append(labels, opt.Label)
	}
	return append(labels, RarityOther)
}

func rarityByLabel(label string) (rarityOption, bool) {
	for _, opt := range rarityOptions {
		if opt.Label == label {
			return opt, true
		}
	}
	return rarityOption{}, false
}

// SanitizeRarityFilters drops unknown labels and duplicates, preserving
// first-seen order.
func SanitizeRarityFilters(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		if _, known := rarityByLabel(v); !known && v != RarityOther {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// BuildRarityQuery translates selected rarity labels into a catalog query
// clause. Multi-alias labels OR their aliases inside parentheses; "Other"
// negates every known alias; concrete labels and "Other" combine with OR.
// ok is false when nothing is selected and the caller should omit the clause.
func BuildRarityQuery(filters []string) (clause string, ok bool) {
	filters = SanitizeRarityFilters(filters)
	if len(filters) == 0 {
		return "", false
	}

	var concrete []string
	includeOther := false
	for _, label := range filters {
		if label == RarityOther {
			includeOther = true
			continue
		}
		opt, _ := rarityByLabel(label)
		if len(opt.Aliases) == 1 {
			concrete = append(concrete, fmt.Sprintf("rarity:%q", opt.Aliases[0]))
		} else {
			terms := make([]string, len(opt.Aliases))
			for i, alias := range opt.Aliases {
				terms[i] = fmt.Sprintf("rarity:%q", alias)
			}
			concrete = append(concrete, "("+strings.Join(terms, " OR ")+")")
		}
	}

	var otherClause string
	if includeOther {
		var negated []string
		for _, opt := range rarityOptions {
			for _, alias := range opt.Aliases {
				negated = append(negated, fmt.Sprintf("!rarity:%q", alias))
			}
		}
		otherClause = "(" + strings.Join(negated, " ") + ")"
	}

	switch {
	case len(concrete) > 0 && includeOther:
		return "(" + strings.Join(concrete, " OR ") + ") OR " + otherClause, true
	case includeOther:
		return otherClause, true
	case len(concrete) == 1:
		return concrete[0], true
	default:
		return "(" + strings.Join(concrete, " OR ") + ")", true
	}
}

// energyTypes is the closed set of the 11 card energy types.
var energyTypes = []string{
	"Colorless", "Darkness", "Dragon", "Fairy", "Fighting",
	"Fire", "Grass", "Lightning", "Metal", "Psychic", "Water",
}

// TypeLabels returns the selectable energy types.
func TypeLabels() []string {
	return append([]string(nil), energyTypes...)
}

// SanitizeTypeFilters drops unknown types and duplicates, preserving
// first-seen order.
func SanitizeTypeFilters(values []string) []string {
	known := make(map[string]struct{}, len(energyTypes))
	for _, t := range energyTypes {
		known[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := known[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// BuildTypeQuery translates selected energy types into an OR-joined clause.
// ok is false when nothing is selected.
func BuildTypeQuery(filters []string) (clause string, ok bool) {
	filters = SanitizeTypeFilters(filters)
	if len(filters) == 0 {
		return "", false
	}
	terms := make([]string, len(filters))
	for i, t := range filters {
		terms[i] = fmt.Sprintf("types:%q", t)
	}
	if len(terms) == 1 {
		return terms[0], true
	}
	return "(" + strings.Join(terms, " OR ") + ")", true
}

// BuildNameQuery issues a server-side prefix match for a free-text term.
func BuildNameQuery(term string) string {
	return fmt.Sprintf("name:%s*", NormalizeQuery(term))
}

// BuildSetCardsQuery selects all cards belonging to one expansion.
func BuildSetCardsQuery(setID string) string {
	return fmt.Sprintf("set.id:%s", strings.TrimSpace(setID))
}
