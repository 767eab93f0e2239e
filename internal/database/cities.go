package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CityParams describes a city to get or create. State and coordinates are
// only written when the city is first created.
type CityParams struct {
	Name      string
	CountryID int64
	State     *string
	Latitude  decimal.NullDecimal
	Longitude decimal.NullDecimal
}

const citySelect = `SELECT ci.id, ci.name, ci.state, ci.latitude, ci.longitude, ci.country_id,
	co.name, co.continent
	FROM cities ci JOIN countries co ON co.id = ci.country_id`

// GetOrCreateCity returns the city keyed by (name, country), inserting it if absent.
func (db *DB) GetOrCreateCity(ctx context.Context, p CityParams) (c *City, created bool, err error) {
	if err := p.checkRange(); err != nil {
		return nil, false, err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO cities (name, state, latitude, longitude, country_id)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(name, country_id) DO NOTHING`,
		p.Name, p.State, p.Latitude, p.Longitude, p.CountryID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting city %q: %w", p.Name, classifyWrite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	row := db.conn.QueryRowContext(ctx, citySelect+" WHERE ci.name = ? AND ci.country_id = ?", p.Name, p.CountryID)
	c, err = scanCity(row)
	if err != nil {
		return nil, false, fmt.Errorf("reading city %q: %w", p.Name, err)
	}
	return c, n == 1, nil
}

// GetCity returns a city with its country, or nil if it does not exist.
func (db *DB) GetCity(ctx context.Context, id int64) (*City, error) {
	row := db.conn.QueryRowContext(ctx, citySelect+" WHERE ci.id = ?", id)
	c, err := scanCity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCities returns all cities ordered by name with their figure counts.
func (db *DB) ListCities(ctx context.Context) ([]CityListItem, error) {
	var items []CityListItem
	err := db.conn.SelectContext(ctx, &items, `
		SELECT ci.id, ci.name, ci.state, ci.latitude, ci.longitude, ci.country_id,
			co.name AS country_name, co.continent,
			(SELECT COUNT(*) FROM figures f WHERE f.city_id = ci.id) AS figure_count
		FROM cities ci JOIN countries co ON co.id = ci.country_id
		ORDER BY ci.name, co.name, ci.id`)
	return items, err
}

// DeleteCity removes a city. It fails with ErrProtected while figures reference it.
func (db *DB) DeleteCity(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "cities", id)
}

func scanCity(row *sql.Row) (*City, error) {
	var c City
	var co Country
	if err := row.Scan(&c.ID, &c.Name, &c.State, &c.Latitude, &c.Longitude, &c.CountryID,
		&co.Name, &co.Continent); err != nil {
		return nil, err
	}
	co.ID = c.CountryID
	c.Country = &co
	return &c, nil
}
