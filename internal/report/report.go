// Package report assembles the aggregate sections shown by the analyze
// command, the report page and the statistics page.
package report

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/pantheon/internal/config"
	"github.com/TobiSchelling/pantheon/internal/database"
)

// Report holds every section of the analysis report.
type Report struct {
	Stats          *database.Stats
	Continents     []database.GroupShare
	Domains        []database.GroupShare
	TopPopular     []database.Figure
	TopViews       []database.Figure
	TopLanguages   []database.Figure
	TopOccupations []database.OccupationListItem
	TopCities      []database.CityStat
}

// Build runs the report queries concurrently. Sections are read independently,
// so a write landing mid-build can show up in some sections and not others.
func Build(ctx context.Context, db *database.DB, cfg config.Report) (*Report, error) {
	r := &Report{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		r.Stats, err = db.GetStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Continents, err = db.ContinentBreakdown(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Domains, err = db.DomainBreakdown(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.TopPopular, err = db.TopFigures(ctx, database.RankPopularity, cfg.TopPopular)
		return err
	})
	g.Go(func() (err error) {
		r.TopViews, err = db.TopFigures(ctx, database.RankPageViews, cfg.TopN)
		return err
	})
	g.Go(func() (err error) {
		r.TopLanguages, err = db.TopFigures(ctx, database.RankLanguages, cfg.TopN)
		return err
	})
	g.Go(func() (err error) {
		r.TopOccupations, err = db.TopOccupations(ctx, cfg.TopN)
		return err
	})
	g.Go(func() (err error) {
		r.TopCities, err = db.TopCities(ctx, cfg.TopN)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// Statistics holds the per-city and per-country tables of the statistics page.
type Statistics struct {
	Cities    []database.CityStat
	Countries []database.CountryStat
}

// BuildStatistics loads the city and country tables, limit rows each.
func BuildStatistics(ctx context.Context, db *database.DB, limit int) (*Statistics, error) {
	s := &Statistics{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Cities, err = db.CityStats(ctx, limit)
		return err
	})
	g.Go(func() (err error) {
		s.Countries, err = db.CountryStats(ctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}
