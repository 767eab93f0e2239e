package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FigureOrder names a supported ordering of figure listings.
type FigureOrder string

const (
	OrderPopularity FigureOrder = "popularity"
	OrderName       FigureOrder = "name"
	OrderBirthYear  FigureOrder = "birth_year"
	OrderPageViews  FigureOrder = "page_views"
	OrderLanguages  FigureOrder = "languages"
	OrderRecent     FigureOrder = "recent"
)

// Every ordering ends on the primary key so ties are deterministic.
var figureOrderClauses = map[FigureOrder]string{
	OrderPopularity: "f.historical_popularity_index DESC, f.id ASC",
	OrderName:       "f.full_name ASC, f.id ASC",
	OrderBirthYear:  "f.birth_year IS NULL, f.birth_year ASC, f.id ASC",
	OrderPageViews:  "f.page_views DESC, f.id ASC",
	OrderLanguages:  "f.article_languages DESC, f.id ASC",
	OrderRecent:     "f.id DESC",
}

// FigureOrders lists the accepted orderings in display order.
var FigureOrders = []FigureOrder{OrderPopularity, OrderName, OrderBirthYear, OrderPageViews, OrderLanguages, OrderRecent}

// ParseFigureOrder returns the ordering named by s, defaulting to OrderPopularity.
func ParseFigureOrder(s string) FigureOrder {
	o := FigureOrder(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := figureOrderClauses[o]; ok {
		return o
	}
	return OrderPopularity
}

const figureColumns = `article_id, full_name, birth_year, city_id, occupation_id,
	page_views, average_views, historical_popularity_index, article_languages,
	original_city_name, original_country_name, original_continent_name,
	original_occupation_name, original_industry_name, original_domain_name`

const figureSelect = `SELECT f.id, f.article_id, f.full_name, f.birth_year, f.city_id, f.occupation_id,
	f.page_views, f.average_views, f.historical_popularity_index, f.article_languages,
	f.original_city_name, f.original_country_name, f.original_continent_name,
	f.original_occupation_name, f.original_industry_name, f.original_domain_name,
	f.summary, f.summary_fetched, f.created_at,
	ci.name, ci.state, ci.latitude, ci.longitude, ci.country_id, co.name, co.continent,
	o.name, o.industry, o.domain
	FROM figures f
	LEFT JOIN cities ci ON ci.id = f.city_id
	LEFT JOIN countries co ON co.id = ci.country_id
	LEFT JOIN occupations o ON o.id = f.occupation_id`

func figureArgs(f *Figure) []any {
	return []any{
		f.ArticleID, f.FullName, f.BirthYear, f.CityID, f.OccupationID,
		f.PageViews, f.AverageViews, f.PopularityIndex, f.ArticleLanguages,
		f.OriginalCityName, f.OriginalCountryName, f.OriginalContinentName,
		f.OriginalOccupationName, f.OriginalIndustryName, f.OriginalDomainName,
	}
}

// InsertFigure inserts a figure and sets f.ID. A duplicate article_id yields
// ErrDuplicate, a value beyond its column limit ErrOutOfRange.
func (db *DB) InsertFigure(ctx context.Context, f *Figure) error {
	if err := f.checkRange(); err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO figures (`+figureColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		figureArgs(f)...,
	)
	if err != nil {
		return classifyWrite(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

// InsertFigureIfAbsent inserts f unless a figure with the same article_id
// exists. It reports whether a row was created; the existing row is untouched.
func (db *DB) InsertFigureIfAbsent(ctx context.Context, f *Figure) (bool, error) {
	if err := f.checkRange(); err != nil {
		return false, err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO figures (`+figureColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(article_id) DO NOTHING`,
		figureArgs(f)...,
	)
	if err != nil {
		return false, classifyWrite(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return true, nil
}

const figureUpdateSet = `article_id = ?, full_name = ?, birth_year = ?, city_id = ?, occupation_id = ?,
	page_views = ?, average_views = ?, historical_popularity_index = ?, article_languages = ?,
	original_city_name = ?, original_country_name = ?, original_continent_name = ?,
	original_occupation_name = ?, original_industry_name = ?, original_domain_name = ?`

// UpdateFigure overwrites every stored field of the figure with ID f.ID.
func (db *DB) UpdateFigure(ctx context.Context, f *Figure) error {
	if err := f.checkRange(); err != nil {
		return err
	}
	args := append(figureArgs(f), f.ID)
	res, err := db.conn.ExecContext(ctx, "UPDATE figures SET "+figureUpdateSet+" WHERE id = ?", args...)
	return updated(res, err)
}

// UpdateFigureByArticleID overwrites the figure keyed by f.ArticleID.
func (db *DB) UpdateFigureByArticleID(ctx context.Context, f *Figure) error {
	if err := f.checkRange(); err != nil {
		return err
	}
	args := append(figureArgs(f), f.ArticleID)
	res, err := db.conn.ExecContext(ctx, "UPDATE figures SET "+figureUpdateSet+" WHERE article_id = ?", args...)
	return updated(res, err)
}

func updated(res sql.Result, err error) error {
	if err != nil {
		return classifyWrite(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFigure removes a figure by ID.
func (db *DB) DeleteFigure(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "figures", id)
}

// GetFigure returns a figure with its city, country and occupation, or nil.
func (db *DB) GetFigure(ctx context.Context, id int64) (*Figure, error) {
	return db.getFigure(ctx, figureSelect+" WHERE f.id = ?", id)
}

// GetFigureByArticleID returns the figure with the given article_id, or nil.
func (db *DB) GetFigureByArticleID(ctx context.Context, articleID int64) (*Figure, error) {
	return db.getFigure(ctx, figureSelect+" WHERE f.article_id = ?", articleID)
}

func (db *DB) getFigure(ctx context.Context, query string, arg any) (*Figure, error) {
	rows, err := db.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	figures, err := scanFigures(rows)
	if err != nil {
		return nil, err
	}
	if len(figures) == 0 {
		return nil, nil
	}
	return &figures[0], nil
}

// ListFigures returns one page of figures in the given order.
func (db *DB) ListFigures(ctx context.Context, order FigureOrder, limit, offset int) ([]Figure, error) {
	clause, ok := figureOrderClauses[order]
	if !ok {
		return nil, fmt.Errorf("unknown figure order %q", order)
	}
	rows, err := db.conn.QueryContext(ctx,
		figureSelect+" ORDER BY "+clause+" LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFigures(rows)
}

// CountFigures returns the total number of figures.
func (db *DB) CountFigures(ctx context.Context) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM figures")
	return n, err
}

// FiguresNeedingSummary returns figures whose article summary was never fetched.
func (db *DB) FiguresNeedingSummary(ctx context.Context, limit int) ([]Figure, error) {
	rows, err := db.conn.QueryContext(ctx,
		figureSelect+" WHERE f.summary_fetched = 0 ORDER BY "+figureOrderClauses[OrderPopularity]+" LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFigures(rows)
}

// UpdateFigureSummary stores a fetched summary (nil when nothing was
// extractable) and marks the fetch as attempted.
func (db *DB) UpdateFigureSummary(ctx context.Context, id int64, summary *string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE figures SET summary = ?, summary_fetched = 1 WHERE id = ?", summary, id)
	return updated(res, err)
}

func scanFigures(rows *sql.Rows) ([]Figure, error) {
	var figures []Figure
	for rows.Next() {
		var f Figure
		var fetched int
		var city City
		var cityName, countryName, continent *string
		var countryID *int64
		var occName, occIndustry, occDomain *string
		if err := rows.Scan(&f.ID, &f.ArticleID, &f.FullName, &f.BirthYear, &f.CityID, &f.OccupationID,
			&f.PageViews, &f.AverageViews, &f.PopularityIndex, &f.ArticleLanguages,
			&f.OriginalCityName, &f.OriginalCountryName, &f.OriginalContinentName,
			&f.OriginalOccupationName, &f.OriginalIndustryName, &f.OriginalDomainName,
			&f.Summary, &fetched, &f.CreatedAt,
			&cityName, &city.State, &city.Latitude, &city.Longitude, &countryID, &countryName, &continent,
			&occName, &occIndustry, &occDomain); err != nil {
			return nil, err
		}
		f.SummaryFetched = fetched != 0

		if f.CityID != nil && cityName != nil {
			city.ID = *f.CityID
			city.Name = *cityName
			if countryID != nil {
				city.CountryID = *countryID
				city.Country = &Country{ID: *countryID, Name: deref(countryName), Continent: deref(continent)}
			}
			f.City = &city
		}
		if f.OccupationID != nil && occName != nil {
			f.Occupation = &Occupation{
				ID:       *f.OccupationID,
				Name:     *occName,
				Industry: deref(occIndustry),
				Domain:   deref(occDomain),
			}
		}
		figures = append(figures, f)
	}
	return figures, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
