package models

import (
	"time"
)

// ExpansionRef identifies the expansion a card preview belongs to.
type ExpansionRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ImageRef holds the display image URLs for a card preview.
type ImageRef struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// CardPreview is a display-oriented projection of a catalog card. It is
// re-derived from catalog responses on every search and never persisted
// with full fidelity.
type CardPreview struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Number    string        `json:"number,omitempty"`
	Rarity    string        `json:"rarity,omitempty"`
	Expansion *ExpansionRef `json:"expansion,omitempty"`
	Image     *ImageRef     `json:"image,omitempty"`
}

// SetPreview is a display-oriented projection of a catalog expansion.
// ReleaseYear is derived from the first 4 characters of ReleaseDate.
type SetPreview struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series,omitempty"`
	Total       int    `json:"total,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	ReleaseYear string `json:"releaseYear,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
}

// CardSearchResult is the response shape of the card search endpoint.
// TotalCount is nil when the catalog did not report an authoritative total.
type CardSearchResult struct {
	Results    []CardPreview `json:"results"`
	Cached     bool          `json:"cached"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalCount *int          `json:"totalCount,omitempty"`
	HasNext    bool          `json:"hasNext"`
}

// SetSearchResult is the response shape of the set search endpoint.
type SetSearchResult struct {
	Results    []SetPreview `json:"results"`
	Cached     bool         `json:"cached"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalCount *int         `json:"totalCount,omitempty"`
	HasNext    bool         `json:"hasNext"`
}

// StringList is a JSON-serialized string slice column.
type StringList []string

// Card is the ingested, normalized mirror of a catalog card row. Only the
// offline ingest job writes these; online-only cards are filtered out before
// they ever reach this table.
type Card struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"not null;index"`
	Number        string     `json:"number"`
	Rarity        string     `json:"rarity"`
	Types         StringList `json:"types" gorm:"serializer:json"`
	ExpansionID   string     `json:"expansion_id" gorm:"index"`
	ExpansionName string     `json:"expansion_name"`
	ImageSmall    string     `json:"image_small"`
	ImageLarge    string     `json:"image_large"`
	ReleaseDate   string     `json:"release_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Expansion is the ingested, normalized mirror of a catalog expansion row.
type Expansion struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;index"`
	Series      string    `json:"series"`
	Total       int       `json:"total"`
	ReleaseDate string    `json:"release_date"`
	Logo        string    `json:"logo"`
	Symbol      string    `json:"symbol"`
	OnlineOnly  bool      `json:"online_only" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
