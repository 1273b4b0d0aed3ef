package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Source tables written by the scrapers.
const (
	SourceBoardGameLinks = "boardgame_links"
	SourceBoardGameInfo  = "boardgame_info"
)

// RawData is an append-only scrape payload awaiting transformation.
type RawData struct {
	ID               int64     `db:"id"                json:"id"`
	SourceTable      string    `db:"source_table"      json:"source_table"`
	SourceID         *int64    `db:"source_id"         json:"source_id,omitempty"`
	ScrapeTaskID     *int64    `db:"scrape_task_id"    json:"scrape_task_id,omitempty"`
	Payload          JSONBMap  `db:"payload"           json:"payload"`
	Processed        bool      `db:"processed"         json:"processed"`
	ProcessorVersion *string   `db:"processor_version" json:"processor_version,omitempty"`
	Error            *string   `db:"error"             json:"error,omitempty"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}

// CleanData is a typed record derived from exactly one raw row.
type CleanData struct {
	ID               int64     `db:"id"                json:"id"`
	RawID            *int64    `db:"raw_id"            json:"raw_id,omitempty"`
	SourceTable      string    `db:"source_table"      json:"source_table"`
	SourceID         *int64    `db:"source_id"         json:"source_id,omitempty"`
	ScrapeTaskID     *int64    `db:"scrape_task_id"    json:"scrape_task_id,omitempty"`
	Payload          JSONBMap  `db:"payload"           json:"payload"`
	ProcessorVersion string    `db:"processor_version" json:"processor_version"`
	Error            *string   `db:"error"             json:"error,omitempty"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}

// Decode maps the payload onto out, matching `mapstructure` tags.
func (c *CleanData) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err = decoder.Decode(map[string]any(c.Payload)); err != nil {
		return fmt.Errorf("failed to decode clean data %d: %w", c.ID, err)
	}
	return nil
}

// BoardGameInfo is the typed view of a cleaned boardgame_info payload.
type BoardGameInfo struct {
	ID          int    `mapstructure:"id" json:"id,omitempty"`
	Name        string `mapstructure:"name" json:"name,omitempty"`
	URL         string `mapstructure:"url" json:"url,omitempty"`
	YearRelease int    `mapstructure:"year_released" json:"year_released,omitempty"`

	OverallRank  int     `mapstructure:"overall_rank" json:"overall_rank,omitempty"`
	ThematicRank int     `mapstructure:"thematic_rank" json:"thematic_rank,omitempty"`
	AvgRating    float64 `mapstructure:"avg_rating" json:"avg_rating,omitempty"`
	StdDeviation float64 `mapstructure:"std_deviation" json:"std_deviation,omitempty"`
	Weight       float64 `mapstructure:"weight" json:"weight,omitempty"`
	NumRatings   int     `mapstructure:"no_of_ratings" json:"no_of_ratings,omitempty"`
	Comments     int     `mapstructure:"comments" json:"comments,omitempty"`
	Fans         int     `mapstructure:"fans" json:"fans,omitempty"`
	PageViews    int     `mapstructure:"page_views" json:"page_views,omitempty"`
	Own          int     `mapstructure:"own" json:"own,omitempty"`
	PrevOwned    int     `mapstructure:"prev_owned" json:"prev_owned,omitempty"`
	ForTrade     int     `mapstructure:"for_trade" json:"for_trade,omitempty"`
	WantInTrade  int     `mapstructure:"want_in_trade" json:"want_in_trade,omitempty"`
	Wishlist     int     `mapstructure:"wishlist" json:"wishlist,omitempty"`
	AllTimePlays int     `mapstructure:"all_time_plays" json:"all_time_plays,omitempty"`
	ThisMonth    int     `mapstructure:"this_month" json:"this_month,omitempty"`
	HasParts     int     `mapstructure:"has_parts" json:"has_parts,omitempty"`
	WantParts    int     `mapstructure:"want_parts" json:"want_parts,omitempty"`

	PrimaryName     string   `mapstructure:"primary_name" json:"primary_name,omitempty"`
	Designer        string   `mapstructure:"designer" json:"designer,omitempty"`
	SoloDesigner    string   `mapstructure:"solo_designer" json:"solo_designer,omitempty"`
	Editor          string   `mapstructure:"editor" json:"editor,omitempty"`
	Writer          string   `mapstructure:"writer" json:"writer,omitempty"`
	InsertDesigner  string   `mapstructure:"insert_designer" json:"insert_designer,omitempty"`
	Artists         []string `mapstructure:"artists" json:"artists,omitempty"`
	Sculptors       []string `mapstructure:"sculptors" json:"sculptors,omitempty"`
	Categories      []string `mapstructure:"categories" json:"categories,omitempty"`
	Developers      []string `mapstructure:"developers" json:"developers,omitempty"`
	Mechanics       []string `mapstructure:"mechanics" json:"mechanics,omitempty"`
	Mechanisms      []string `mapstructure:"mechanisms" json:"mechanisms,omitempty"`
	Publishers      []string `mapstructure:"publishers" json:"publishers,omitempty"`
	Family          []string `mapstructure:"family" json:"family,omitempty"`
	AlternateNames  []string `mapstructure:"alternate_names" json:"alternate_names,omitempty"`
	GraphicDesigner []string `mapstructure:"graphic_designers" json:"graphic_designers,omitempty"`

	BestPlayerCountMin      int `mapstructure:"best_player_count_min" json:"best_player_count_min,omitempty"`
	BestPlayerCountMax      int `mapstructure:"best_player_count_max" json:"best_player_count_max,omitempty"`
	CommunityPlayerCountMin int `mapstructure:"community_player_count_min" json:"community_player_count_min,omitempty"`
	CommunityPlayerCountMax int `mapstructure:"community_player_count_max" json:"community_player_count_max,omitempty"`
	OfficialPlayerCountMin  int `mapstructure:"official_player_count_min" json:"official_player_count_min,omitempty"`
	OfficialPlayerCountMax  int `mapstructure:"official_player_count_max" json:"official_player_count_max,omitempty"`

	Prices  map[string]float64 `mapstructure:"prices" json:"prices,omitempty"`
	Volumes []float64          `mapstructure:"volumes_cm3" json:"volumes_cm3,omitempty"`
}
