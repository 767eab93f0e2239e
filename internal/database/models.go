package database

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unspecified is shown wherever a location, occupation or grouping key is missing.
const Unspecified = "unspecified"

// Popularity categories, from highest to lowest.
const (
	CategoryVeryHigh = "Very high"
	CategoryHigh     = "High"
	CategoryMedium   = "Medium"
	CategoryLow      = "Low"
	CategoryVeryLow  = "Very low"
)

// Country is a named country on a continent.
type Country struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Continent string `db:"continent"`
}

func (c Country) String() string {
	if c.Continent == "" {
		return c.Name
	}
	return c.Name + " (" + c.Continent + ")"
}

// City is unique by (Name, CountryID).
type City struct {
	ID        int64               `db:"id"`
	Name      string              `db:"name"`
	State     *string             `db:"state"`
	Latitude  decimal.NullDecimal `db:"latitude"`
	Longitude decimal.NullDecimal `db:"longitude"`
	CountryID int64               `db:"country_id"`
	Country   *Country            `db:"-"`
}

func (c City) String() string {
	if c.Country == nil {
		return c.Name
	}
	return c.Name + ", " + c.Country.Name
}

// Occupation classifies a figure; Domain is broader than Industry.
type Occupation struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Industry string `db:"industry"`
	Domain   string `db:"domain"`
}

// Figure is a historical figure derived from one encyclopedia article.
type Figure struct {
	ID               int64
	ArticleID        int64
	FullName         string
	BirthYear        *int
	CityID           *int64
	OccupationID     *int64
	PageViews        int64
	AverageViews     decimal.Decimal
	PopularityIndex  decimal.Decimal
	ArticleLanguages int

	// Raw names from the source dataset, shown when no normalized
	// City/Occupation is linked.
	OriginalCityName       string
	OriginalCountryName    string
	OriginalContinentName  string
	OriginalOccupationName string
	OriginalIndustryName   string
	OriginalDomainName     string

	Summary        *string
	SummaryFetched bool
	CreatedAt      *string

	City       *City
	Occupation *Occupation
}

// BirthLocation returns "City, Country" for a linked city, otherwise the
// original names, otherwise Unspecified.
func (f *Figure) BirthLocation() string {
	if f.City != nil {
		return f.City.String()
	}
	if f.OriginalCityName != "" && f.OriginalCountryName != "" {
		return f.OriginalCityName + ", " + f.OriginalCountryName
	}
	var parts []string
	for _, s := range []string{f.OriginalCityName, f.OriginalCountryName, f.OriginalContinentName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return Unspecified
}

// OccupationLabel returns the linked occupation name, falling back to the original name.
func (f *Figure) OccupationLabel() string {
	if f.Occupation != nil {
		return f.Occupation.Name
	}
	if f.OriginalOccupationName != "" {
		return f.OriginalOccupationName
	}
	return Unspecified
}

// Continent returns the continent of the linked city's country, falling back to the original name.
func (f *Figure) Continent() string {
	if f.City != nil && f.City.Country != nil && f.City.Country.Continent != "" {
		return f.City.Country.Continent
	}
	if f.OriginalContinentName != "" {
		return f.OriginalContinentName
	}
	return Unspecified
}

// PopularityCategory classifies the figure's historical popularity index.
func (f *Figure) PopularityCategory() string {
	x, _ := f.PopularityIndex.Float64()
	return PopularityCategory(x)
}

// PopularityCategory buckets a historical popularity index. Lower bounds are inclusive.
func PopularityCategory(x float64) string {
	switch {
	case x >= 24:
		return CategoryVeryHigh
	case x >= 21:
		return CategoryHigh
	case x >= 18:
		return CategoryMedium
	case x >= 14:
		return CategoryLow
	default:
		return CategoryVeryLow
	}
}

// CountryListItem is a country with its usage counts.
type CountryListItem struct {
	Country
	CityCount   int `db:"city_count"`
	FigureCount int `db:"figure_count"`
}

// CityListItem is a city with its country and figure count.
type CityListItem struct {
	City
	CountryName string `db:"country_name"`
	Continent   string `db:"continent"`
	FigureCount int    `db:"figure_count"`
}

// OccupationListItem is an occupation with figure count and mean popularity.
type OccupationListItem struct {
	Occupation
	FigureCount   int     `db:"figure_count"`
	AvgPopularity float64 `db:"avg_popularity"`
}

// Stats contains global aggregate statistics.
type Stats struct {
	TotalFigures     int     `db:"total_figures"`
	TotalPageViews   int64   `db:"total_page_views"`
	AvgPopularity    float64 `db:"avg_popularity"`
	MaxPopularity    float64 `db:"max_popularity"`
	MinPopularity    float64 `db:"min_popularity"`
	AvgLanguages     float64 `db:"avg_languages"`
	AvgAverageViews  float64 `db:"avg_average_views"`
	TotalCountries   int     `db:"total_countries"`
	TotalCities      int     `db:"total_cities"`
	TotalOccupations int     `db:"total_occupations"`
}

// GroupShare is one row of a grouped breakdown, e.g. figures per continent.
type GroupShare struct {
	Name         string  `db:"name"`
	FigureCount  int     `db:"figure_count"`
	TotalFigures int     `db:"total_figures"`
	Percentage   float64 `db:"-"`
}

// CityStat is a per-city aggregate.
type CityStat struct {
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	CountryName   string  `db:"country_name"`
	Continent     string  `db:"continent"`
	FigureCount   int     `db:"figure_count"`
	AvgPopularity float64 `db:"avg_popularity"`
}

// CountryStat is a per-country aggregate.
type CountryStat struct {
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	Continent     string  `db:"continent"`
	FigureCount   int     `db:"figure_count"`
	AvgPopularity float64 `db:"avg_popularity"`
}
