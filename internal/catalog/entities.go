package catalog

import (
	"context"
	"log/slog"

	"github.com/TobiSchelling/pantheon/internal/database"
)

// Kind names a linked entity type.
type Kind string

const (
	KindCountry    Kind = "countries"
	KindCity       Kind = "cities"
	KindOccupation Kind = "occupations"
)

// ParseKind validates a kind taken from a URL.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindCountry, KindCity, KindOccupation:
		return k, true
	}
	return "", false
}

// Countries lists every country with its city and figure counts.
func (s *Service) Countries(ctx context.Context) ([]database.CountryListItem, error) {
	return s.db.ListCountries(ctx)
}

// Cities lists every city with its country and figure count.
func (s *Service) Cities(ctx context.Context) ([]database.CityListItem, error) {
	return s.db.ListCities(ctx)
}

// Occupations lists every occupation with its figure count.
func (s *Service) Occupations(ctx context.Context) ([]database.OccupationListItem, error) {
	return s.db.ListOccupations(ctx)
}

// DeleteEntity removes a country, city or occupation. Entities still
// referenced fail with ErrProtected and are left in place.
func (s *Service) DeleteEntity(ctx context.Context, kind Kind, id int64) error {
	var err error
	switch kind {
	case KindCountry:
		err = s.db.DeleteCountry(ctx, id)
	case KindCity:
		err = s.db.DeleteCity(ctx, id)
	case KindOccupation:
		err = s.db.DeleteOccupation(ctx, id)
	default:
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	slog.Info("entity deleted", "kind", string(kind), "id", id)
	return nil
}
