package catalog

import "testing"

func TestIsOnlineOnly(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		setName  string
		expected bool
	}{
		{"known online-only id", "fut20", "Pokémon Futsal Collection", true},
		{"id match is case-insensitive", " FUT20 ", "whatever", true},
		{"name contains tcg online", "xyz", "Generations TCG Online Promos", true},
		{"name suffix online", "xyz", "Holiday Calendar (Online)", true},
		{"regular expansion", "sv1", "Scarlet & Violet", false},
		{"online mid-name without marker", "sv2", "Onliners United", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsOnlineOnly(tt.id, tt.setName)
			if result != tt.expected {
				t.Errorf("IsOnlineOnly(%q, %q) = %v, want %v", tt.id, tt.setName, result, tt.expected)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2023-03-31", "2023-03-31"},
		{"2023/03/31", "2023-03-31"},
		{" 1999-01-09 ", "1999-01-09"},
		{"not a date", ""},
		{"2023-13-99", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeDate(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanStrings(t *testing.T) {
	result := CleanStrings([]string{" Fire ", "", "Water", "  "})
	want := []string{"Fire", "Water"}
	if len(result) != len(want) {
		t.Fatalf("CleanStrings = %v, want %v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("CleanStrings[%d] = %q, want %q", i, result[i], want[i])
		}
	}
}

func TestPickImage(t *testing.T) {
	tests := []struct {
		name     string
		images   map[string]string
		expected string
	}{
		{"front wins", map[string]string{"front": "f.png", "small": "s.png"}, "f.png"},
		{"small before large", map[string]string{"small": "s.png", "large": "l.png"}, "s.png"},
		{"large fallback", map[string]string{"large": "l.png"}, "l.png"},
		{"deterministic key order", map[string]string{"zeta": "z.png", "alpha": "a.png"}, "a.png"},
		{"blank values skipped", map[string]string{"front": "  ", "small": "s.png"}, "s.png"},
		{"empty map", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PickImage(tt.images)
			if result != tt.expected {
				t.Errorf("PickImage(%v) = %q, want %q", tt.images, result, tt.expected)
			}
		})
	}
}

func TestPickLargeImage(t *testing.T) {
	if got := PickLargeImage(map[string]string{"small": "s.png", "large": "l.png"}); got != "l.png" {
		t.Errorf("expected large variant, got %q", got)
	}
	if got := PickLargeImage(map[string]string{"small": "s.png"}); got != "s.png" {
		t.Errorf("expected fallback to PickImage, got %q", got)
	}
}

func TestToPreview(t *testing.T) {
	card := Card{
		ID:     "sv1-25",
		Name:   "Pikachu",
		Number: "25",
		Rarity: "Common",
		Set:    Set{ID: "sv1", Name: "Scarlet & Violet"},
		Images: map[string]string{"small": "s.png", "large": "l.png"},
	}

	preview := ToPreview(card)

	if preview.ID != "sv1-25" || preview.Name != "Pikachu" {
		t.Errorf("identity fields wrong: %+v", preview)
	}
	if preview.Expansion == nil || preview.Expansion.ID != "sv1" {
		t.Errorf("expansion ref wrong: %+v", preview.Expansion)
	}
	if preview.Image == nil || preview.Image.Small != "s.png" || preview.Image.Large != "l.png" {
		t.Errorf("image ref wrong: %+v", preview.Image)
	}

	bare := ToPreview(Card{ID: "x", Name: "X"})
	if bare.Expansion != nil || bare.Image != nil {
		t.Error("absent set and images should yield nil refs")
	}
}

func TestSetToPreviewReleaseYear(t *testing.T) {
	preview := SetToPreview(Set{ID: "sv1", Name: "SV", ReleaseDate: "2023-03-31"})
	if preview.ReleaseYear != "2023" {
		t.Errorf("ReleaseYear = %q, want 2023", preview.ReleaseYear)
	}

	preview = SetToPreview(Set{ID: "sv1", Name: "SV"})
	if preview.ReleaseYear != "" {
		t.Errorf("missing date should give empty year, got %q", preview.ReleaseYear)
	}
}

func TestSetToRowMarksOnlineOnly(t *testing.T) {
	row := SetToRow(Set{ID: "fut20", Name: "Futsal"})
	if !row.OnlineOnly {
		t.Error("online-only expansion not flagged")
	}
	row = SetToRow(Set{ID: "sv1", Name: "Scarlet & Violet"})
	if row.OnlineOnly {
		t.Error("regular expansion flagged online-only")
	}
}
