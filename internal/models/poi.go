package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCategory is assigned when a POI is created without a category.
	DefaultCategory = "Other"

	// AllCategories is the filter value meaning "no category restriction".
	// It is never treated as a literal category.
	AllCategories = "All"

	// TimestampLayout is the sortable, round-trippable form used when a
	// CreatedAt value is rendered as text (CSV, templates).
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// POI represents a single point of interest.
type POI struct {
	// ID is the unique identifier for the POI (UUID format).
	ID string `json:"id"`

	// Name is the display label. May be empty.
	Name string `json:"name"`

	// Description is free text. May be empty.
	Description string `json:"description"`

	// Category groups POIs for filtering. Free text, no enumeration.
	Category string `json:"category"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// CreatedAt is the UTC creation time, truncated to milliseconds.
	CreatedAt time.Time `json:"createdAt"`
}

// NewPOI builds a POI with a fresh ID and creation time.
// A blank category is replaced by DefaultCategory.
func NewPOI(name, description, category string, lat, lon float64) POI {
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	return POI{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Category:    category,
		Latitude:    lat,
		Longitude:   lon,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

// CreatedText returns CreatedAt in TimestampLayout.
func (p POI) CreatedText() string {
	return FormatTimestamp(p.CreatedAt)
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MatchesCategory reports whether the POI passes a category filter.
// An empty filter or AllCategories matches everything.
func (p POI) MatchesCategory(category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	return p.Category == category
}

// MatchesText reports whether name or description contains text,
// ignoring case. An empty text matches everything.
func (p POI) MatchesText(text string) bool {
	if text == "" {
		return true
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// ErrNonFiniteCoordinate is returned for NaN or infinite coordinates, which
// cannot be persisted as JSON.
var ErrNonFiniteCoordinate = errors.New("latitude and longitude must be finite numbers")

// CheckCoordinates rejects NaN and infinite values. Ranges are not checked.
func CheckCoordinates(lat, lon float64) error {
	for _, v := range []float64{lat, lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteCoordinate
		}
	}
	return nil
}
