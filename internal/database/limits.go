package database

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOutOfRange is returned when a numeric value exceeds its column limit.
var ErrOutOfRange = errors.New("value out of range")

// Column limits. Decimal limits are exclusive bounds on the absolute value and
// follow the precision of the stored columns: average views 12 digits with 2
// decimal places, popularity index 10 with 4, coordinates 9 with 6.
var (
	MaxAverageViews    = decimal.New(1, 10)
	MaxPopularityIndex = decimal.New(1, 6)
	MaxCoordinate      = decimal.New(1, 3)
)

// MaxPageViews bounds page_views so totals over the catalog stay representable.
const MaxPageViews int64 = 1_000_000_000_000_000

// InRange reports whether |d| is below limit.
func InRange(d, limit decimal.Decimal) bool {
	return d.Abs().LessThan(limit)
}

func checkDecimal(name string, d, limit decimal.Decimal) error {
	if !InRange(d, limit) {
		return fmt.Errorf("%w: %s %s must be below %s", ErrOutOfRange, name, d.String(), limit.String())
	}
	return nil
}

func (f *Figure) checkRange() error {
	if f.PageViews > MaxPageViews {
		return fmt.Errorf("%w: page_views %d must be at most %d", ErrOutOfRange, f.PageViews, MaxPageViews)
	}
	if err := checkDecimal("average_views", f.AverageViews, MaxAverageViews); err != nil {
		return err
	}
	return checkDecimal("historical_popularity_index", f.PopularityIndex, MaxPopularityIndex)
}

func (p CityParams) checkRange() error {
	if p.Latitude.Valid {
		if err := checkDecimal("latitude", p.Latitude.Decimal, MaxCoordinate); err != nil {
			return err
		}
	}
	if p.Longitude.Valid {
		return checkDecimal("longitude", p.Longitude.Decimal, MaxCoordinate)
	}
	return nil
}
