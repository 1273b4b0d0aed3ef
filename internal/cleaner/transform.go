package cleaner

import (
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/parser"
)

// Raw payload keys holding structured values.
const (
	keyPlayerCounts = "player_counts"
	keyPrices       = "prices"
	keyDimensions   = "dimensions"

	// KeyPrices and KeyVolumes are the clean payload keys of the derived fields.
	KeyPrices  = "prices"
	KeyVolumes = "volumes_cm3"
)

var (
	intFields = []string{
		"id", "Own", "Fans", "Year Released", "Comments", "Wishlist", "Page Views",
		"This Month", "Prev. Owned", "Overall Rank", "Thematic Rank", "All Time Plays",
		"No. of Ratings", "For Trade", "Has Parts", "Want Parts", "Want In Trade",
	}
	floatFields  = []string{"Weight", "Avg. Rating", "Std. Deviation"}
	stringFields = []string{
		"name", "url", "Editor", "Writer", "Designer", "Primary Name", "Solo Designer", "Insert Designer",
	}
	stringListFields = []string{
		"Artists", "Sculptors", "Categories", "Developers", "Mechanics", "Publishers",
		"Alternate Names", "Graphic Designers", "Mechanisms", "Family",
	}
)

// Transform converts a raw boardgame payload into its clean form. Fields
// that are missing or fail to parse are left out. prices and volumes_cm3
// are always present.
func Transform(raw domain.JSONBMap) domain.JSONBMap {
	out := domain.JSONBMap{}

	for _, field := range intFields {
		if v, ok := parser.Int(raw[field]); ok {
			out[parser.FieldName(field)] = v
		}
	}
	for _, field := range floatFields {
		if v, ok := parser.Float(raw[field]); ok {
			out[parser.FieldName(field)] = v
		}
	}
	for _, field := range stringFields {
		if v, ok := parser.String(raw[field]); ok {
			out[parser.FieldName(field)] = v
		}
	}
	for _, field := range stringListFields {
		if v := parser.StringList(raw[field]); v != nil {
			out[parser.FieldName(field)] = v
		}
	}

	for key, v := range parser.KeyedRanges(raw[keyPlayerCounts]) {
		out[key] = v
	}

	prices := map[string]float64{}
	for _, listing := range parser.Strings(raw[keyPrices]) {
		if p, ok := parser.PriceAndStore(listing); ok {
			prices[p.Store] = p.Amount
		}
	}
	out[KeyPrices] = prices

	volumes := []float64{}
	seen := map[float64]bool{}
	for _, dim := range parser.Strings(raw[keyDimensions]) {
		if v, ok := parser.DimensionsToVolume(dim); ok && !seen[v] {
			seen[v] = true
			volumes = append(volumes, v)
		}
	}
	out[KeyVolumes] = volumes

	return out
}
