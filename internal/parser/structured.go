package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	keyedRange = regexp.MustCompile(`(\w+[\w ]+):? (?:\(no votes\) )?(\d+)[-–](\d+)`)
	priceStore = regexp.MustCompile(`(?:from )?((?:CA)?\$|£|€|C\$|Fr\.|CHF) ?([\d.]+)(?: [-–] )(.+)`)
	dimensions = regexp.MustCompile(`(\d+(?:\.\d+)?) x (\d+(?:\.\d+)?) x (\d+(?:\.\d+)?) cm`)
)

var rangeLabels = map[string]string{
	"best":              "best_player_count",
	"players community": "community_player_count",
	"number of players": "official_player_count",
}

// USDRates converts listed currencies to US dollars. The table is static.
var USDRates = map[string]float64{
	"$":   1.0,
	"CA$": 0.73,
	"C$":  0.73,
	"£":   1.35,
	"€":   1.18,
	"Fr.": 0.17,
	"CHF": 1.29,
}

// Price is a store listing converted to US dollars.
type Price struct {
	Amount float64
	Store  string
}

// KeyedRanges scans for repeated "<label>: <min>-<max>" tokens and returns
// "<key>_min"/"<key>_max" pairs. It returns nil when nothing matches.
//
//	"Best: 3–4 Players Community: 2–5" → best_player_count_min=3, best_player_count_max=4, ...
func KeyedRanges(v any) map[string]int {
	s, ok := text(v)
	if !ok {
		return nil
	}

	matches := keyedRange.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make(map[string]int, len(matches)*2)
	for _, m := range matches {
		label := strings.TrimSpace(m[1])
		key, known := rangeLabels[strings.ToLower(label)]
		if !known {
			key = FieldName(label)
		}

		low, errLow := strconv.Atoi(m[2])
		high, errHigh := strconv.Atoi(m[3])
		if errLow != nil || errHigh != nil {
			continue
		}
		out[key+"_min"] = low
		out[key+"_max"] = high
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// PriceAndStore parses "[from ]<symbol> <amount> - <store>" and converts the
// amount to US dollars. Unknown currencies are absent.
func PriceAndStore(v any) (Price, bool) {
	s, ok := text(v)
	if !ok {
		return Price{}, false
	}

	m := priceStore.FindStringSubmatch(s)
	if m == nil {
		return Price{}, false
	}

	rate, known := USDRates[strings.ReplaceAll(m[1], " ", "")]
	if !known {
		return Price{}, false
	}

	amount, ok := Float(m[2])
	if !ok {
		return Price{}, false
	}

	store := strings.TrimSpace(m[3])
	if store == "" {
		return Price{}, false
	}

	return Price{Amount: Round3(amount * rate), Store: store}, true
}

// DimensionsToVolume parses "L x W x H cm" into a volume in cubic centimetres.
func DimensionsToVolume(v any) (float64, bool) {
	s, ok := text(v)
	if !ok {
		return 0, false
	}

	m := dimensions.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	volume := 1.0
	for _, side := range m[1:] {
		f, err := strconv.ParseFloat(side, 64)
		if err != nil {
			return 0, false
		}
		volume *= f
	}
	return Round3(volume), true
}
