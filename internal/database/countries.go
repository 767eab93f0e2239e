package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOrCreateCountry returns the country with the given name, inserting it
// with the given continent if absent. The continent of an existing country
// is left untouched. created reports whether this call inserted the row.
func (db *DB) GetOrCreateCountry(ctx context.Context, name, continent string) (c *Country, created bool, err error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO countries (name, continent) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, continent,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting country %q: %w", name, classifyWrite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	c, err = db.GetCountryByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, fmt.Errorf("country %q vanished after insert", name)
	}
	return c, n == 1, nil
}

// GetCountry returns a country by ID, or nil if it does not exist.
func (db *DB) GetCountry(ctx context.Context, id int64) (*Country, error) {
	return db.getCountry(ctx, "SELECT id, name, continent FROM countries WHERE id = ?", id)
}

// GetCountryByName returns a country by its unique name, or nil.
func (db *DB) GetCountryByName(ctx context.Context, name string) (*Country, error) {
	return db.getCountry(ctx, "SELECT id, name, continent FROM countries WHERE name = ?", name)
}

func (db *DB) getCountry(ctx context.Context, query string, arg any) (*Country, error) {
	var c Country
	if err := db.conn.GetContext(ctx, &c, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListCountries returns all countries ordered by name, with city and figure counts.
func (db *DB) ListCountries(ctx context.Context) ([]CountryListItem, error) {
	var items []CountryListItem
	err := db.conn.SelectContext(ctx, &items, `
		SELECT co.id, co.name, co.continent,
			(SELECT COUNT(*) FROM cities ci WHERE ci.country_id = co.id) AS city_count,
			(SELECT COUNT(*) FROM figures f JOIN cities ci ON ci.id = f.city_id
				WHERE ci.country_id = co.id) AS figure_count
		FROM countries co
		ORDER BY co.name, co.id`)
	return items, err
}

// DeleteCountry removes a country. It fails with ErrProtected while cities reference it.
func (db *DB) DeleteCountry(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "countries", id)
}

// deleteByID removes one row from table, mapping a missing row to ErrNotFound
// and a restrict violation to ErrProtected.
func (db *DB) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return classifyDelete(err)
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
