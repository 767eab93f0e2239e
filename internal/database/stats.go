package database

import "context"

// RankKey names a figure attribute figures can be ranked by.
type RankKey string

const (
	RankPopularity RankKey = "popularity"
	RankPageViews  RankKey = "page_views"
	RankLanguages  RankKey = "languages"
)

var rankOrders = map[RankKey]FigureOrder{
	RankPopularity: OrderPopularity,
	RankPageViews:  OrderPageViews,
	RankLanguages:  OrderLanguages,
}

// GetStats returns global aggregates over all figures plus entity counts.
// The page view total is summed as REAL and saturates at the int64 maximum.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.conn.GetContext(ctx, &s, `
		SELECT COUNT(*) AS total_figures,
			CAST(TOTAL(page_views) AS INTEGER) AS total_page_views,
			COALESCE(AVG(historical_popularity_index), 0) AS avg_popularity,
			COALESCE(MAX(historical_popularity_index), 0) AS max_popularity,
			COALESCE(MIN(historical_popularity_index), 0) AS min_popularity,
			COALESCE(AVG(article_languages), 0) AS avg_languages,
			COALESCE(AVG(average_views), 0) AS avg_average_views,
			(SELECT COUNT(*) FROM countries) AS total_countries,
			(SELECT COUNT(*) FROM cities) AS total_cities,
			(SELECT COUNT(*) FROM occupations) AS total_occupations
		FROM figures`)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ContinentBreakdown counts distinct figures per continent, reached through
// city -> country. Figures without a linked city are not counted, so the
// percentages sum to at most 100.
func (db *DB) ContinentBreakdown(ctx context.Context) ([]GroupShare, error) {
	return db.breakdown(ctx, `
		SELECT COALESCE(NULLIF(TRIM(co.continent), ''), 'unspecified') AS name,
			COUNT(DISTINCT f.id) AS figure_count,
			(SELECT COUNT(*) FROM figures) AS total_figures
		FROM figures f
		JOIN cities ci ON ci.id = f.city_id
		JOIN countries co ON co.id = ci.country_id
		GROUP BY 1
		ORDER BY figure_count DESC, name ASC`)
}

// DomainBreakdown counts figures per occupation domain.
func (db *DB) DomainBreakdown(ctx context.Context) ([]GroupShare, error) {
	return db.breakdown(ctx, `
		SELECT COALESCE(NULLIF(TRIM(o.domain), ''), 'unspecified') AS name,
			COUNT(DISTINCT f.id) AS figure_count,
			(SELECT COUNT(*) FROM figures) AS total_figures
		FROM figures f
		JOIN occupations o ON o.id = f.occupation_id
		GROUP BY 1
		ORDER BY figure_count DESC, name ASC`)
}

// breakdown runs a grouping query whose rows carry their own total_figures,
// so every percentage comes from the same snapshot as the counts.
func (db *DB) breakdown(ctx context.Context, query string) ([]GroupShare, error) {
	var groups []GroupShare
	if err := db.conn.SelectContext(ctx, &groups, query); err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Percentage = Percentage(groups[i].FigureCount, groups[i].TotalFigures)
	}
	return groups, nil
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TopFigures returns the n highest-ranked figures by key, ties by ID.
func (db *DB) TopFigures(ctx context.Context, key RankKey, n int) ([]Figure, error) {
	order, ok := rankOrders[key]
	if !ok {
		order = OrderPopularity
	}
	return db.ListFigures(ctx, order, n, 0)
}

// TopOccupations returns the n occupations with the most figures.
func (db *DB) TopOccupations(ctx context.Context, n int) ([]OccupationListItem, error) {
	var items []OccupationListItem
	err := db.conn.SelectContext(ctx, &items, `
		SELECT o.id, o.name, o.industry, o.domain,
			COUNT(f.id) AS figure_count,
			COALESCE(AVG(f.historical_popularity_index), 0) AS avg_popularity
		FROM occupations o LEFT JOIN figures f ON f.occupation_id = o.id
		GROUP BY o.id
		ORDER BY figure_count DESC, o.id ASC
		LIMIT ?`, n)
	return items, err
}

const cityStatSelect = `
	SELECT ci.id, ci.name, co.name AS country_name, co.continent,
		COUNT(f.id) AS figure_count,
		COALESCE(AVG(f.historical_popularity_index), 0) AS avg_popularity
	FROM cities ci
	JOIN countries co ON co.id = ci.country_id
	LEFT JOIN figures f ON f.city_id = ci.id
	GROUP BY ci.id`

// TopCities returns the n cities with the most figures.
func (db *DB) TopCities(ctx context.Context, n int) ([]CityStat, error) {
	var items []CityStat
	err := db.conn.SelectContext(ctx, &items,
		cityStatSelect+" ORDER BY figure_count DESC, ci.id ASC LIMIT ?", n)
	return items, err
}

// CityStats returns cities with at least one figure, by average popularity.
func (db *DB) CityStats(ctx context.Context, limit int) ([]CityStat, error) {
	var items []CityStat
	err := db.conn.SelectContext(ctx, &items,
		cityStatSelect+" HAVING COUNT(f.id) > 0 ORDER BY avg_popularity DESC, ci.id ASC LIMIT ?", limit)
	return items, err
}

// CountryStats returns countries with at least one figure, by figure count.
func (db *DB) CountryStats(ctx context.Context, limit int) ([]CountryStat, error) {
	var items []CountryStat
	err := db.conn.SelectContext(ctx, &items, `
		SELECT co.id, co.name, co.continent,
			COUNT(f.id) AS figure_count,
			COALESCE(AVG(f.historical_popularity_index), 0) AS avg_popularity
		FROM countries co
		JOIN cities ci ON ci.country_id = co.id
		JOIN figures f ON f.city_id = ci.id
		GROUP BY co.id
		HAVING COUNT(f.id) > 0
		ORDER BY figure_count DESC, co.id ASC
		LIMIT ?`, limit)
	return items, err
}
