package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS countries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL CHECK(name <> ''),
    continent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(name <> ''),
    state TEXT,
    latitude REAL,
    longitude REAL,
    country_id INTEGER NOT NULL REFERENCES countries(id) ON DELETE RESTRICT,
    UNIQUE (name, country_id)
);

CREATE TABLE IF NOT EXISTS occupations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL CHECK(name <> ''),
    industry TEXT NOT NULL DEFAULT '',
    domain TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS figures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER UNIQUE NOT NULL,
    full_name TEXT NOT NULL,
    birth_year INTEGER,
    city_id INTEGER REFERENCES cities(id) ON DELETE RESTRICT,
    occupation_id INTEGER REFERENCES occupations(id) ON DELETE RESTRICT,
    page_views INTEGER NOT NULL DEFAULT 0 CHECK(page_views >= 0),
    average_views REAL NOT NULL DEFAULT 0,
    historical_popularity_index REAL NOT NULL DEFAULT 0,
    article_languages INTEGER NOT NULL DEFAULT 0 CHECK(article_languages >= 0),
    original_city_name TEXT NOT NULL DEFAULT '',
    original_country_name TEXT NOT NULL DEFAULT '',
    original_continent_name TEXT NOT NULL DEFAULT '',
    original_occupation_name TEXT NOT NULL DEFAULT '',
    original_industry_name TEXT NOT NULL DEFAULT '',
    original_domain_name TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_countries_continent ON countries(continent);
CREATE INDEX IF NOT EXISTS idx_cities_name ON cities(name);
CREATE INDEX IF NOT EXISTS idx_cities_country ON cities(country_id);
CREATE INDEX IF NOT EXISTS idx_figures_city ON figures(city_id);
CREATE INDEX IF NOT EXISTS idx_figures_occupation ON figures(occupation_id);
CREATE INDEX IF NOT EXISTS idx_figures_birth_year ON figures(birth_year);
CREATE INDEX IF NOT EXISTS idx_figures_popularity ON figures(historical_popularity_index);
CREATE INDEX IF NOT EXISTS idx_figures_languages ON figures(article_languages);
CREATE INDEX IF NOT EXISTS idx_figures_page_views ON figures(page_views);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "article summaries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
ALTER TABLE figures ADD COLUMN summary TEXT;
ALTER TABLE figures ADD COLUMN summary_fetched INTEGER NOT NULL DEFAULT 0;
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
