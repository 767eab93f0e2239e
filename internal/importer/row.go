package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/pantheon/internal/database"
)

// Columns lists the recognised header names.
var Columns = []string{
	"article_id", "full_name", "birth_year",
	"city", "state", "latitude", "longitude", "country", "continent",
	"occupation", "industry", "domain",
	"page_views", "average_views", "historical_popularity_index", "article_languages",
}

type header map[string]int

func parseHeader(rec []string) header {
	h := make(header, len(rec))
	for i, name := range rec {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

// get returns the trimmed value of column name, "" when absent.
func (h header) get(rec []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

type row struct {
	articleID *int64
	fullName  string
	birthYear *int

	city, state          string
	latitude, longitude  decimal.NullDecimal
	country, continent   string
	occupation, industry string
	domain               string

	pageViews    int64
	averageViews decimal.Decimal
	popularity   decimal.Decimal
	languages    int
}

func parseRow(h header, rec []string) (*row, error) {
	r := &row{
		fullName:   h.get(rec, "full_name"),
		city:       h.get(rec, "city"),
		state:      h.get(rec, "state"),
		country:    h.get(rec, "country"),
		continent:  h.get(rec, "continent"),
		occupation: h.get(rec, "occupation"),
		industry:   h.get(rec, "industry"),
		domain:     h.get(rec, "domain"),
	}

	var err error
	if s := h.get(rec, "article_id"); s != "" {
		id, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("article_id %q: not an integer", s)
		}
		r.articleID = &id
	}
	if s := h.get(rec, "birth_year"); s != "" {
		y, perr := strconv.Atoi(s)
		if perr != nil {
			return nil, fmt.Errorf("birth_year %q: not an integer", s)
		}
		r.birthYear = &y
	}
	if r.latitude, err = nullDecimal(h, rec, "latitude", database.MaxCoordinate); err != nil {
		return nil, err
	}
	if r.longitude, err = nullDecimal(h, rec, "longitude", database.MaxCoordinate); err != nil {
		return nil, err
	}
	if r.pageViews, err = counter(h, rec, "page_views", database.MaxPageViews); err != nil {
		return nil, err
	}
	langs, err := counter(h, rec, "article_languages", math.MaxInt32)
	if err != nil {
		return nil, err
	}
	r.languages = int(langs)
	if r.averageViews, err = decimalOrZero(h, rec, "average_views", database.MaxAverageViews); err != nil {
		return nil, err
	}
	if r.popularity, err = decimalOrZero(h, rec, "historical_popularity_index", database.MaxPopularityIndex); err != nil {
		return nil, err
	}
	return r, nil
}

// counter parses a non-negative integer column up to upper, blank meaning zero.
func counter(h header, rec []string, name string, upper int64) (int64, error) {
	s := h.get(rec, name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: not an integer", name, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s %d: must not be negative", name, n)
	}
	if n > upper {
		return 0, fmt.Errorf("%s %d: must be at most %d", name, n, upper)
	}
	return n, nil
}

// decimalOrZero parses a decimal column whose absolute value is below limit,
// blank meaning zero.
func decimalOrZero(h header, rec []string, name string, limit decimal.Decimal) (decimal.Decimal, error) {
	s := h.get(rec, name)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: not a number", name, s)
	}
	if !database.InRange(d, limit) {
		return decimal.Zero, fmt.Errorf("%s %q: must be below %s", name, s, limit)
	}
	return d, nil
}

func nullDecimal(h header, rec []string, name string, limit decimal.Decimal) (decimal.NullDecimal, error) {
	s := h.get(rec, name)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s %q: not a number", name, s)
	}
	if !database.InRange(d, limit) {
		return decimal.NullDecimal{}, fmt.Errorf("%s %q: must be below %s", name, s, limit)
	}
	return decimal.NewNullDecimal(d), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
