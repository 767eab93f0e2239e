package database

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

// seedMonet inserts France/Paris/Painter and Claude Monet.
func seedMonet(t *testing.T, db *DB) *Figure {
	t.Helper()
	ctx := context.Background()
	france, _, err := db.GetOrCreateCountry(ctx, "France", "Europe")
	require.NoError(t, err)
	paris, _, err := db.GetOrCreateCity(ctx, CityParams{Name: "Paris", CountryID: france.ID})
	require.NoError(t, err)
	painter, _, err := db.GetOrCreateOccupation(ctx, "Painter", "Art", "Culture")
	require.NoError(t, err)

	f := &Figure{
		ArticleID:       1,
		FullName:        "Claude Monet",
		BirthYear:       ptr(1840),
		CityID:          &paris.ID,
		OccupationID:    &painter.ID,
		PageViews:       2_500_000,
		PopularityIndex: decimal.RequireFromString("22.5"),
	}
	require.NoError(t, db.InsertFigure(ctx, f))
	return f
}

func TestGetOrCreateCountryIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c1, created, err := db.GetOrCreateCountry(ctx, "France", "Europe")
	require.NoError(t, err)
	assert.True(t, created)

	c2, created, err := db.GetOrCreateCountry(ctx, "France", "Somewhere else")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, "Europe", c2.Continent, "continent is only set on creation")

	items, err := db.ListCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGetOrCreateCityKeyedByNameAndCountry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	france, _, _ := db.GetOrCreateCountry(ctx, "France", "Europe")
	usa, _, _ := db.GetOrCreateCountry(ctx, "United States", "North America")

	lat := decimal.NewNullDecimal(decimal.RequireFromString("48.8566"))
	p1, created, err := db.GetOrCreateCity(ctx, CityParams{Name: "Paris", CountryID: france.ID, Latitude: lat})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Paris, France", p1.String())
	assert.True(t, p1.Latitude.Valid)
	assert.True(t, p1.Latitude.Decimal.Equal(lat.Decimal))
	assert.Nil(t, p1.State)

	p2, created, err := db.GetOrCreateCity(ctx, CityParams{Name: "Paris", CountryID: france.ID, State: ptr("IDF")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Nil(t, p2.State, "state is only set on creation")

	p3, created, err := db.GetOrCreateCity(ctx, CityParams{Name: "Paris", CountryID: usa.ID, State: ptr("Texas")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, p1.ID, p3.ID)

	cities, err := db.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)
}

func TestGetOrCreateCityUnknownCountry(t *testing.T) {
	db := openTestDB(t)
	_, _, err := db.GetOrCreateCity(context.Background(), CityParams{Name: "Nowhere", CountryID: 999})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestGetOrCreateOccupation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	o1, created, err := db.GetOrCreateOccupation(ctx, "Painter", "Art", "Culture")
	require.NoError(t, err)
	assert.True(t, created)

	o2, created, err := db.GetOrCreateOccupation(ctx, "Painter", "Other", "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, *o1, *o2)
}

func TestMonetExample(t *testing.T) {
	db := openTestDB(t)
	f := seedMonet(t, db)

	got, err := db.GetFigure(context.Background(), f.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Claude Monet", got.FullName)
	assert.Equal(t, 1840, *got.BirthYear)
	assert.Equal(t, "Paris, France", got.BirthLocation())
	assert.Equal(t, CategoryHigh, got.PopularityCategory())
	assert.Equal(t, "Painter", got.OccupationLabel())
	assert.Equal(t, "Europe", got.Continent())
	assert.Equal(t, int64(2_500_000), got.PageViews)
	assert.True(t, got.PopularityIndex.Equal(decimal.RequireFromString("22.5")))
	assert.True(t, got.AverageViews.IsZero())
}

func TestBirthLocationFallbacks(t *testing.T) {
	f := &Figure{OriginalCityName: "Vinci", OriginalCountryName: "Italy"}
	assert.Equal(t, "Vinci, Italy", f.BirthLocation())

	f = &Figure{OriginalCountryName: "Italy", OriginalContinentName: "Europe"}
	assert.Equal(t, "Italy, Europe", f.BirthLocation())

	f = &Figure{}
	assert.Equal(t, Unspecified, f.BirthLocation())
	assert.Equal(t, Unspecified, f.OccupationLabel())
	assert.Equal(t, Unspecified, f.Continent())
}

func TestPopularityCategoryBoundaries(t *testing.T) {
	tests := []struct {
		x    float64
		want string
	}{
		{math.Inf(1), CategoryVeryHigh},
		{30, CategoryVeryHigh},
		{24, CategoryVeryHigh},
		{23.9999, CategoryHigh},
		{21, CategoryHigh},
		{20.99, CategoryMedium},
		{18, CategoryMedium},
		{17.5, CategoryLow},
		{14, CategoryLow},
		{13.999, CategoryVeryLow},
		{0, CategoryVeryLow},
		{-5, CategoryVeryLow},
		{math.Inf(-1), CategoryVeryLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PopularityCategory(tt.x), "x=%v", tt.x)
	}
}

func TestInsertFigureDuplicateArticleID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedMonet(t, db)

	err := db.InsertFigure(ctx, &Figure{ArticleID: 1, FullName: "Someone else"})
	assert.ErrorIs(t, err, ErrDuplicate)

	created, err := db.InsertFigureIfAbsent(ctx, &Figure{ArticleID: 1, FullName: "Someone else"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := db.GetFigureByArticleID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Claude Monet", got.FullName)
}

func TestInsertFigureRejectsNegativeViews(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertFigure(context.Background(), &Figure{ArticleID: 5, FullName: "X", PageViews: -1})
	assert.Error(t, err)
}

func TestUpdateAndDeleteFigure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedMonet(t, db)

	f.FullName = "Oscar-Claude Monet"
	f.CityID = nil
	f.OriginalCityName = "Paris"
	require.NoError(t, db.UpdateFigure(ctx, f))

	got, err := db.GetFigure(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oscar-Claude Monet", got.FullName)
	assert.Nil(t, got.City)

	require.NoError(t, db.DeleteFigure(ctx, f.ID))
	got, err = db.GetFigure(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, db.DeleteFigure(ctx, f.ID), ErrNotFound)
	assert.ErrorIs(t, db.UpdateFigure(ctx, f), ErrNotFound)
}

func TestUpdateFigureDuplicateArticleID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedMonet(t, db)
	other := &Figure{ArticleID: 2, FullName: "Renoir"}
	require.NoError(t, db.InsertFigure(ctx, other))

	other.ArticleID = 1
	assert.ErrorIs(t, db.UpdateFigure(ctx, other), ErrDuplicate)
}

func TestDeleteReferencedEntitiesIsRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedMonet(t, db)

	city, err := db.GetCity(ctx, *f.CityID)
	require.NoError(t, err)
	require.NotNil(t, city)

	assert.ErrorIs(t, db.DeleteCity(ctx, city.ID), ErrProtected)
	assert.ErrorIs(t, db.DeleteCountry(ctx, city.CountryID), ErrProtected)
	assert.ErrorIs(t, db.DeleteOccupation(ctx, *f.OccupationID), ErrProtected)

	city, err = db.GetCity(ctx, city.ID)
	require.NoError(t, err)
	assert.NotNil(t, city, "city must survive a rejected delete")
	got, err := db.GetFigure(ctx, f.ID)
	require.NoError(t, err)
	assert.NotNil(t, got, "figure must survive a rejected delete")
}

func TestDeleteUnreferencedEntities(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	c, _, _ := db.GetOrCreateCountry(ctx, "Atlantis", "")
	city, _, _ := db.GetOrCreateCity(ctx, CityParams{Name: "Poseidonia", CountryID: c.ID})
	occ, _, _ := db.GetOrCreateOccupation(ctx, "Oracle", "", "")

	assert.ErrorIs(t, db.DeleteCountry(ctx, c.ID), ErrProtected)
	require.NoError(t, db.DeleteCity(ctx, city.ID))
	require.NoError(t, db.DeleteCountry(ctx, c.ID))
	require.NoError(t, db.DeleteOccupation(ctx, occ.ID))
	assert.True(t, errors.Is(db.DeleteOccupation(ctx, occ.ID), ErrNotFound))
}

func TestListFiguresOrderingAndTies(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i, hpi := range []string{"20", "25", "20", "15"} {
		require.NoError(t, db.InsertFigure(ctx, &Figure{
			ArticleID:       int64(100 + i),
			FullName:        string(rune('D' - i)),
			PopularityIndex: decimal.RequireFromString(hpi),
			PageViews:       int64(i * 10),
		}))
	}

	figs, err := db.ListFigures(ctx, OrderPopularity, 10, 0)
	require.NoError(t, err)
	var ids []int64
	for _, f := range figs {
		ids = append(ids, f.ArticleID)
	}
	assert.Equal(t, []int64{101, 100, 102, 103}, ids, "ties broken by primary key")

	page, err := db.ListFigures(ctx, OrderPopularity, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(102), page[0].ArticleID)

	byName, err := db.ListFigures(ctx, OrderName, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", byName[0].FullName)

	n, err := db.CountFigures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestParseFigureOrder(t *testing.T) {
	assert.Equal(t, OrderPopularity, ParseFigureOrder(""))
	assert.Equal(t, OrderPopularity, ParseFigureOrder("drop table"))
	assert.Equal(t, OrderPageViews, ParseFigureOrder("Page_Views"))
}

func TestFigureSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedMonet(t, db)

	pending, err := db.FiguresNeedingSummary(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.UpdateFigureSummary(ctx, f.ID, ptr("French painter.")))
	got, _ := db.GetFigure(ctx, f.ID)
	assert.True(t, got.SummaryFetched)
	assert.Equal(t, "French painter.", *got.Summary)

	pending, err = db.FiguresNeedingSummary(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFigureDecimalsBeyondColumnLimitsAreRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	monet := seedMonet(t, db)

	huge := decimal.RequireFromString("1e400")
	err := db.InsertFigure(ctx, &Figure{ArticleID: 2, FullName: "Overflow", PopularityIndex: huge})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = db.InsertFigureIfAbsent(ctx, &Figure{ArticleID: 3, FullName: "Overflow", AverageViews: huge})
	assert.ErrorIs(t, err, ErrOutOfRange)

	err = db.InsertFigure(ctx, &Figure{ArticleID: 4, FullName: "Too many views", PageViews: MaxPageViews + 1})
	assert.ErrorIs(t, err, ErrOutOfRange)

	monet.PopularityIndex = MaxPopularityIndex
	assert.ErrorIs(t, db.UpdateFigure(ctx, monet), ErrOutOfRange)
	assert.ErrorIs(t, db.UpdateFigureByArticleID(ctx, monet), ErrOutOfRange)

	// Nothing unreadable reached the table.
	figures, err := db.ListFigures(ctx, OrderPopularity, 10, 0)
	require.NoError(t, err)
	require.Len(t, figures, 1)
	assert.Equal(t, "22.5", figures[0].PopularityIndex.String())
}

func TestGetOrCreateCityRejectsOutOfRangeCoordinates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	france, _, err := db.GetOrCreateCountry(ctx, "France", "Europe")
	require.NoError(t, err)

	_, _, err = db.GetOrCreateCity(ctx, CityParams{
		Name:      "Nowhere",
		CountryID: france.ID,
		Latitude:  decimal.NewNullDecimal(decimal.RequireFromString("1e400")),
	})
	assert.ErrorIs(t, err, ErrOutOfRange)

	paris, _, err := db.GetOrCreateCity(ctx, CityParams{
		Name:      "Paris",
		CountryID: france.ID,
		Latitude:  decimal.NewNullDecimal(decimal.RequireFromString("48.856613")),
		Longitude: decimal.NewNullDecimal(decimal.RequireFromString("2.352222")),
	})
	require.NoError(t, err)
	assert.Equal(t, "48.856613", paris.Latitude.Decimal.String())
}

func TestGetStatsPageViewTotalSaturates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Written directly to bypass the per-figure limit.
	for i, views := range []int64{9e18, 9e18} {
		_, err := db.conn.ExecContext(ctx,
			"INSERT INTO figures (article_id, full_name, page_views) VALUES (?, ?, ?)",
			i+1, "Viewed", views)
		require.NoError(t, err)
	}

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFigures)
	assert.Equal(t, int64(math.MaxInt64), stats.TotalPageViews)
}
