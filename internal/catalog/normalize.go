package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/pokebinder/backend/internal/models"
)

// onlineOnlyExpansions lists expansion IDs that only ever existed in the
// online client. Cards from these never appear in search results or ingest
// output.
var onlineOnlyExpansions = map[string]struct{}{
	"fut20":   {}, // Pokémon Futsal Collection (online promos)
	"exu":     {}, // EX Trainer Kit online reprints
	"tcgo-p":  {},
	"ptcgo-1": {},
}

// IsOnlineOnly reports whether an expansion is an online-only release.
// This is the single content-policy predicate; both the ingest job and the
// live search pipeline call it, so the two layers cannot drift.
func IsOnlineOnly(expansionID, expansionName string) bool {
	if _, ok := onlineOnlyExpansions[strings.ToLower(strings.TrimSpace(expansionID))]; ok {
		return true
	}
	name := strings.ToLower(expansionName)
	return strings.Contains(name, "tcg online") || strings.HasSuffix(name, "(online)")
}

// NormalizeDate converts slash-separated catalog dates to YYYY-MM-DD. Values
// that do not parse as an ISO date come back empty.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "/", "-"))
	if s == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// CleanStrings trims each element and drops empties, preserving order.
func CleanStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// PickImage selects a display image from a catalog variant map: a "front"
// variant wins, then the conventional small/large keys, then whatever is
// first in key order so the choice stays deterministic.
func PickImage(images map[string]string) string {
	if len(images) == 0 {
		return ""
	}
	for _, key := range []string{"front", "small", "large"} {
		if url := strings.TrimSpace(images[key]); url != "" {
			return url
		}
	}
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if url := strings.TrimSpace(images[k]); url != "" {
			return url
		}
	}
	return ""
}

// PickLargeImage selects the zoomed-in display image, falling back to
// PickImage when no large variant exists.
func PickLargeImage(images map[string]string) string {
	if url := strings.TrimSpace(images["large"]); url != "" {
		return url
	}
	return PickImage(images)
}

// ToPreview projects a validated card row into its display preview.
func ToPreview(c Card) models.CardPreview {
	preview := models.CardPreview{
		ID:     c.ID,
		Name:   c.Name,
		Number: c.Number,
		Rarity: c.Rarity,
	}
	if c.Set.ID != "" || c.Set.Name != "" {
		preview.Expansion = &models.ExpansionRef{ID: c.Set.ID, Name: c.Set.Name}
	}
	small := PickImage(c.Images)
	large := PickLargeImage(c.Images)
	if small != "" || large != "" {
		preview.Image = &models.ImageRef{Small: small, Large: large}
	}
	return preview
}

// SetToPreview projects a validated expansion row into its display preview.
func SetToPreview(s Set) models.SetPreview {
	preview := models.SetPreview{
		ID:          s.ID,
		Name:        s.Name,
		Series:      s.Series,
		Total:       s.Total,
		ReleaseDate: s.ReleaseDate,
		Logo:        strings.TrimSpace(s.Images["logo"]),
		Symbol:      strings.TrimSpace(s.Images["symbol"]),
	}
	if len(s.ReleaseDate) >= 4 {
		preview.ReleaseYear = s.ReleaseDate[:4]
	}
	return preview
}

// ToRow projects a validated card into the persisted mirror row.
func ToRow(c Card) models.Card {
	return models.Card{
		ID:            c.ID,
		Name:          c.Name,
		Number:        c.Number,
		Rarity:        c.Rarity,
		Types:         c.Types,
		ExpansionID:   c.Set.ID,
		ExpansionName: c.Set.Name,
		ImageSmall:    PickImage(c.Images),
		ImageLarge:    PickLargeImage(c.Images),
		ReleaseDate:   c.Set.ReleaseDate,
	}
}

// SetToRow projects a validated expansion into the persisted mirror row.
func SetToRow(s Set) models.Expansion {
	return models.Expansion{
		ID:          s.ID,
		Name:        s.Name,
		Series:      s.Series,
		Total:       s.Total,
		ReleaseDate: s.ReleaseDate,
		Logo:        strings.TrimSpace(s.Images["logo"]),
		Symbol:      strings.TrimSpace(s.Images["symbol"]),
		OnlineOnly:  IsOnlineOnly(s.ID, s.Name),
	}
}
