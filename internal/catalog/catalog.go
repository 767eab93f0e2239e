// Package catalog is the record service over figures and their linked
// countries, cities and occupations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/metrics"
)

var (
	ErrNotFound  = database.ErrNotFound
	ErrProtected = database.ErrProtected
)

// Service validates and persists figures.
type Service struct {
	db       *database.DB
	pageSize int
}

// New returns a Service listing pageSize figures per page.
func New(db *database.DB, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Service{db: db, pageSize: pageSize}
}

// PageSize returns the number of figures per list page.
func (s *Service) PageSize() int { return s.pageSize }

// Create validates in and inserts a new figure.
func (s *Service) Create(ctx context.Context, in FigureInput) (*database.Figure, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.db.GetFigureByArticleID(ctx, in.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("checking article id: %w", err)
	}
	if existing != nil {
		return nil, duplicateArticle()
	}

	f, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.db.InsertFigure(ctx, f); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, duplicateArticle()
		}
		return nil, fmt.Errorf("inserting figure: %w", err)
	}

	metrics.FigureMutationsTotal.WithLabelValues("create").Inc()
	slog.Info("figure created", "id", f.ID, "article_id", f.ArticleID)
	return s.db.GetFigure(ctx, f.ID)
}

// Update overwrites the figure with the given id.
func (s *Service) Update(ctx context.Context, id int64, in FigureInput) (*database.Figure, error) {
	current, err := s.db.GetFigure(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	other, err := s.db.GetFigureByArticleID(ctx, in.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("checking article id: %w", err)
	}
	if other != nil && other.ID != id {
		return nil, duplicateArticle()
	}

	f, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	f.ID = id
	if err := s.db.UpdateFigure(ctx, f); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, duplicateArticle()
		}
		return nil, err
	}

	metrics.FigureMutationsTotal.WithLabelValues("update").Inc()
	slog.Info("figure updated", "id", id, "article_id", f.ArticleID)
	return s.db.GetFigure(ctx, id)
}

// Delete removes a figure. confirm must be true.
func (s *Service) Delete(ctx context.Context, id int64, confirm bool) error {
	if !confirm {
		return fieldError("confirm", "tick the box to confirm deletion")
	}
	if err := s.db.DeleteFigure(ctx, id); err != nil {
		return err
	}
	metrics.FigureMutationsTotal.WithLabelValues("delete").Inc()
	slog.Info("figure deleted", "id", id)
	return nil
}

// Get returns the figure with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*database.Figure, error) {
	f, err := s.db.GetFigure(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// Count returns the total number of figures.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.db.CountFigures(ctx)
}

func duplicateArticle() *ValidationError {
	return fieldError("article_id", "a figure with this article id already exists")
}

// resolve checks that the referenced entities exist, then creates any new
// city or occupation and returns the figure to store. All reference checks
// run before the first write.
func (s *Service) resolve(ctx context.Context, in FigureInput) (*database.Figure, error) {
	f := &database.Figure{
		ArticleID:              in.ArticleID,
		FullName:               in.FullName,
		BirthYear:              in.BirthYear,
		PageViews:              in.PageViews,
		AverageViews:           in.AverageViews,
		PopularityIndex:        in.PopularityIndex,
		ArticleLanguages:       in.ArticleLanguages,
		OriginalCityName:       in.OriginalCityName,
		OriginalCountryName:    in.OriginalCountryName,
		OriginalContinentName:  in.OriginalContinentName,
		OriginalOccupationName: in.OriginalOccupationName,
		OriginalIndustryName:   in.OriginalIndustryName,
		OriginalDomainName:     in.OriginalDomainName,
	}

	switch {
	case in.NewCityName != "":
		country, err := s.db.GetCountry(ctx, *in.NewCountryID)
		if err != nil {
			return nil, err
		}
		if country == nil {
			return nil, fieldError("new_country", "select an existing country")
		}
	case in.CityID != nil:
		city, err := s.db.GetCity(ctx, *in.CityID)
		if err != nil {
			return nil, err
		}
		if city == nil {
			return nil, fieldError("city", "select an existing city")
		}
		f.CityID = &city.ID
	}

	if in.NewOccupationName == "" && in.OccupationID != nil {
		occ, err := s.db.GetOccupation(ctx, *in.OccupationID)
		if err != nil {
			return nil, err
		}
		if occ == nil {
			return nil, fieldError("occupation", "select an existing occupation")
		}
		f.OccupationID = &occ.ID
	}

	if in.NewCityName != "" {
		city, created, err := s.db.GetOrCreateCity(ctx, database.CityParams{Name: in.NewCityName, CountryID: *in.NewCountryID})
		if err != nil {
			return nil, err
		}
		if created {
			slog.Info("city created", "id", city.ID, "name", city.String())
		}
		f.CityID = &city.ID
	}
	if in.NewOccupationName != "" {
		occ, created, err := s.db.GetOrCreateOccupation(ctx, in.NewOccupationName, database.Unspecified, database.Unspecified)
		if err != nil {
			return nil, err
		}
		if created {
			slog.Info("occupation created", "id", occ.ID, "name", occ.Name)
		}
		f.OccupationID = &occ.ID
	}
	return f, nil
}
