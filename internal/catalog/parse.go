package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Card is a validated catalog card row. Images is the raw variant map as the
// catalog sent it; normalization picks display images out of it.
type Card struct {
	ID     string
	Name   string
	Number string
	Rarity string
	Types  []string
	Set    Set
	Images map[string]string
}

// Set is a validated catalog expansion row.
type Set struct {
	ID          string
	Name        string
	Series      string
	Total       int
	ReleaseDate string
	Images      map[string]string
}

// wire shapes mirror the catalog JSON before validation.

type wireCard struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Number string            `json:"number"`
	Rarity string            `json:"rarity"`
	Types  []string          `json:"types"`
	Set    *wireSet          `json:"set"`
	Images map[string]string `json:"images"`
}

type wireSet struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Series      string            `json:"series"`
	Total       int               `json:"total"`
	ReleaseDate string            `json:"releaseDate"`
	Images      map[string]string `json:"images"`
}

// parseCards validates the data array of a /cards response into typed rows.
// A row missing its identity fields fails the whole response; the catalog is
// a trust boundary and silently dropping rows would hide drift in its schema.
func parseCards(data json.RawMessage) ([]Card, error) {
	if len(data) == 0 {
		return []Card{}, nil
	}

	var rows []wireCard
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("data is not a card array: %w", err)
	}

	cards := make([]Card, 0, len(rows))
	for i, row := range rows {
		card, err := validateCard(row)
		if err != nil {
			return nil, fmt.Errorf("card row %d: %w", i, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// parseSets validates the data array of a /sets response into typed rows.
func parseSets(data json.RawMessage) ([]Set, error) {
	if len(data) == 0 {
		return []Set{}, nil
	}

	var rows []wireSet
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("data is not a set array: %w", err)
	}

	sets := make([]Set, 0, len(rows))
	for i, row := range rows {
		set, err := validateSet(row)
		if err != nil {
			return nil, fmt.Errorf("set row %d: %w", i, err)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func validateCard(row wireCard) (Card, error) {
	id := strings.TrimSpace(row.ID)
	name := strings.TrimSpace(row.Name)
	if id == "" {
		return Card{}, fmt.Errorf("missing id")
	}
	if name == "" {
		return Card{}, fmt.Errorf("missing name")
	}

	card := Card{
		ID:     id,
		Name:   name,
		Number: strings.TrimSpace(row.Number),
		Rarity: strings.TrimSpace(row.Rarity),
		Types:  CleanStrings(row.Types),
		Images: row.Images,
	}
	if row.Set != nil {
		set, err := validateSet(*row.Set)
		if err != nil {
			return Card{}, fmt.Errorf("embedded set: %w", err)
		}
		card.Set = set
	}
	return card, nil
}

func validateSet(row wireSet) (Set, error) {
	id := strings.TrimSpace(row.ID)
	name := strings.TrimSpace(row.Name)
	if id == "" {
		return Set{}, fmt.Errorf("missing id")
	}
	if name == "" {
		return Set{}, fmt.Errorf("missing name")
	}

	return Set{
		ID:          id,
		Name:        name,
		Series:      strings.TrimSpace(row.Series),
		Total:       row.Total,
		ReleaseDate: NormalizeDate(row.ReleaseDate),
		Images:      row.Images,
	}, nil
}
