package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOrCreateOccupation returns the occupation with the given name, inserting
// it with industry and domain if absent.
func (db *DB) GetOrCreateOccupation(ctx context.Context, name, industry, domain string) (o *Occupation, created bool, err error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO occupations (name, industry, domain) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, industry, domain,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting occupation %q: %w", name, classifyWrite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	o, err = db.getOccupation(ctx, "SELECT id, name, industry, domain FROM occupations WHERE name = ?", name)
	if err != nil {
		return nil, false, err
	}
	if o == nil {
		return nil, false, fmt.Errorf("occupation %q vanished after insert", name)
	}
	return o, n == 1, nil
}

// GetOccupation returns an occupation by ID, or nil if it does not exist.
func (db *DB) GetOccupation(ctx context.Context, id int64) (*Occupation, error) {
	return db.getOccupation(ctx, "SELECT id, name, industry, domain FROM occupations WHERE id = ?", id)
}

func (db *DB) getOccupation(ctx context.Context, query string, arg any) (*Occupation, error) {
	var o Occupation
	if err := db.conn.GetContext(ctx, &o, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// ListOccupations returns all occupations ordered by name with figure counts.
func (db *DB) ListOccupations(ctx context.Context) ([]OccupationListItem, error) {
	var items []OccupationListItem
	err := db.conn.SelectContext(ctx, &items, `
		SELECT o.id, o.name, o.industry, o.domain,
			COUNT(f.id) AS figure_count,
			COALESCE(AVG(f.historical_popularity_index), 0) AS avg_popularity
		FROM occupations o LEFT JOIN figures f ON f.occupation_id = o.id
		GROUP BY o.id
		ORDER BY o.name, o.id`)
	return items, err
}

// DeleteOccupation removes an occupation. It fails with ErrProtected while figures reference it.
func (db *DB) DeleteOccupation(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "occupations", id)
}
