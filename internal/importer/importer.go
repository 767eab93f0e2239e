// Package importer loads figures from delimited text or workbook files,
// creating countries, cities and occupations on demand.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/metrics"
)

// Options tune an import run.
type Options struct {
	// UpdateExisting overwrites figures whose article_id is already stored.
	UpdateExisting bool
	// Comma is the field delimiter for delimited text; zero means ','.
	Comma rune
	// ProgressEvery emits a progress line every n created figures; zero means 100.
	ProgressEvery int
	// OnRecord is called after every record with the number read so far.
	OnRecord func(processed int)
	// OnProgress is called alongside each progress line.
	OnProgress func(created int)
}

// Result holds the results of an import run.
type Result struct {
	Processed int
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Errors    []RowError
}

// RowError is a failure confined to one record. Row is 1-based, header excluded.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Importer runs the country -> city -> occupation -> figure chain per record.
// Each step is its own insert-if-absent statement; a failure part way through
// a record leaves the earlier steps in place.
type Importer struct {
	db   *database.DB
	opts Options
}

// New creates an importer writing to db.
func New(db *database.DB, opts Options) *Importer {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}
	return &Importer{db: db, opts: opts}
}

// Import reads a header row and then every record from src. Bad records are
// collected in Result.Errors; only a missing header, an unreadable source or
// context cancellation stop the run.
func (im *Importer) Import(ctx context.Context, src RecordReader) (*Result, error) {
	first, err := src.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h := parseHeader(first)

	res := &Result{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		res.Processed++
		n := res.Processed

		var perr *csv.ParseError
		switch {
		case errors.As(err, &perr):
			im.fail(res, n, err)
		case err != nil:
			return res, fmt.Errorf("reading record %d: %w", n, err)
		default:
			if err := im.record(ctx, res, h, rec); err != nil {
				im.fail(res, n, err)
			}
		}

		if im.opts.OnRecord != nil {
			im.opts.OnRecord(n)
		}
	}

	slog.Info("import complete",
		"processed", res.Processed,
		"created", res.Created,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

func (im *Importer) fail(res *Result, n int, err error) {
	res.Failed++
	res.Errors = append(res.Errors, RowError{Row: n, Err: err})
	metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
	slog.Warn("import row failed", "row", n, "error", err)
}

func (im *Importer) record(ctx context.Context, res *Result, h header, rec []string) error {
	r, err := parseRow(h, rec)
	if err != nil {
		return err
	}

	var country *database.Country
	if r.country != "" {
		if country, _, err = im.db.GetOrCreateCountry(ctx, r.country, r.continent); err != nil {
			return err
		}
	}

	var city *database.City
	if r.city != "" && country != nil {
		city, _, err = im.db.GetOrCreateCity(ctx, database.CityParams{
			Name:      r.city,
			CountryID: country.ID,
			State:     optional(r.state),
			Latitude:  r.latitude,
			Longitude: r.longitude,
		})
		if err != nil {
			return err
		}
	}

	var occ *database.Occupation
	if r.occupation != "" {
		if occ, _, err = im.db.GetOrCreateOccupation(ctx, r.occupation, r.industry, r.domain); err != nil {
			return err
		}
	}

	if r.articleID == nil {
		res.Skipped++
		metrics.ImportRowsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	f := &database.Figure{
		ArticleID:              *r.articleID,
		FullName:               r.fullName,
		BirthYear:              r.birthYear,
		PageViews:              r.pageViews,
		AverageViews:           r.averageViews,
		PopularityIndex:        r.popularity,
		ArticleLanguages:       r.languages,
		OriginalCityName:       r.city,
		OriginalCountryName:    r.country,
		OriginalContinentName:  r.continent,
		OriginalOccupationName: r.occupation,
		OriginalIndustryName:   r.industry,
		OriginalDomainName:     r.domain,
	}
	if city != nil {
		f.CityID = &city.ID
	}
	if occ != nil {
		f.OccupationID = &occ.ID
	}

	created, err := im.db.InsertFigureIfAbsent(ctx, f)
	if err != nil {
		return err
	}
	switch {
	case created:
		res.Created++
		metrics.ImportRowsTotal.WithLabelValues("created").Inc()
		if res.Created%im.opts.ProgressEvery == 0 {
			slog.Info("import progress", "created", res.Created, "processed", res.Processed)
			if im.opts.OnProgress != nil {
				im.opts.OnProgress(res.Created)
			}
		}
	case im.opts.UpdateExisting:
		if err := im.db.UpdateFigureByArticleID(ctx, f); err != nil {
			return err
		}
		res.Updated++
		metrics.ImportRowsTotal.WithLabelValues("updated").Inc()
	default:
		res.Unchanged++
		metrics.ImportRowsTotal.WithLabelValues("unchanged").Inc()
	}
	return nil
}
