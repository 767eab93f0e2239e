package catalog

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/pantheon/internal/database"
)

func openTestService(t *testing.T, pageSize int) (*Service, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, pageSize), db
}

func ptr[T any](v T) *T { return &v }

func TestCreateWithNewCityAndOccupation(t *testing.T) {
	svc, db := openTestService(t, 100)
	ctx := context.Background()
	france, _, err := db.GetOrCreateCountry(ctx, "France", "Europe")
	require.NoError(t, err)

	f, err := svc.Create(ctx, FigureInput{
		ArticleID:         1,
		FullName:          "  Claude Monet ",
		BirthYear:         ptr(1840),
		NewCityName:       "Paris",
		NewCountryID:      &france.ID,
		NewOccupationName: "Painter",
		PageViews:         2_500_000,
		PopularityIndex:   decimal.RequireFromString("22.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Claude Monet", f.FullName)
	assert.Equal(t, "Paris, France", f.BirthLocation())
	assert.Equal(t, database.CategoryHigh, f.PopularityCategory())
	require.NotNil(t, f.Occupation)
	assert.Equal(t, database.Unspecified, f.Occupation.Industry)
	assert.Equal(t, database.Unspecified, f.Occupation.Domain)

	got, err := svc.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ArticleID, got.ArticleID)
}

func TestCreateDuplicateArticleID(t *testing.T) {
	svc, _ := openTestService(t, 100)
	ctx := context.Background()
	_, err := svc.Create(ctx, FigureInput{ArticleID: 7, FullName: "First"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, FigureInput{ArticleID: 7, FullName: "Second", NewOccupationName: "Scribe"})
	ve, ok := IsValidation(err)
	require.True(t, ok, "want ValidationError, got %v", err)
	assert.Contains(t, ve.Fields, "article_id")

	occs, err := svc.Occupations(ctx)
	require.NoError(t, err)
	assert.Empty(t, occs, "a rejected create writes nothing")
}

func TestCreateFieldValidation(t *testing.T) {
	svc, _ := openTestService(t, 100)
	_, err := svc.Create(context.Background(), FigureInput{
		PageViews:    -1,
		AverageViews: decimal.NewFromInt(-3),
		NewCityName:  "Atlantis",
	})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	for _, field := range []string{"article_id", "full_name", "page_views", "average_views", "new_country"} {
		assert.Contains(t, ve.Fields, field)
	}
}

func TestCreateRejectsOutOfRangeNumbers(t *testing.T) {
	svc, _ := openTestService(t, 100)
	ctx := context.Background()

	in, err := DecodeFigureForm(url.Values{
		"article_id":                  {"1"},
		"full_name":                   {"Overflow"},
		"page_views":                  {"99999999999999999"},
		"average_views":               {"1e400"},
		"historical_popularity_index": {"1e400"},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	ve, ok := IsValidation(err)
	require.True(t, ok, "got %v", err)
	for _, field := range []string{"page_views", "average_views", "historical_popularity_index"} {
		assert.Contains(t, ve.Fields, field)
	}

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := svc.Create(ctx, FigureInput{ArticleID: 2, FullName: "Fine", PopularityIndex: decimal.RequireFromString("999999.9999")})
	require.NoError(t, err)
	page, err := svc.List(ctx, database.OrderPopularity, 1)
	require.NoError(t, err)
	require.Len(t, page.Figures, 1)
	assert.Equal(t, f.ID, page.Figures[0].ID)
}

func TestCreateUnknownReferences(t *testing.T) {
	svc, _ := openTestService(t, 100)
	ctx := context.Background()

	_, err := svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "X", CityID: ptr(int64(99))})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "city")

	_, err = svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "X", OccupationID: ptr(int64(99))})
	ve, ok = IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "occupation")

	_, err = svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "X", NewCityName: "Y", NewCountryID: ptr(int64(99))})
	ve, ok = IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "new_country")
}

func TestUpdate(t *testing.T) {
	svc, db := openTestService(t, 100)
	ctx := context.Background()
	occ, _, _ := db.GetOrCreateOccupation(ctx, "Writer", "Language", "Humanities")

	a, err := svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "Hugo"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, FigureInput{ArticleID: 2, FullName: "Zola"})
	require.NoError(t, err)

	in := InputFromFigure(a)
	in.FullName = "Victor Hugo"
	in.OccupationID = &occ.ID
	updated, err := svc.Update(ctx, a.ID, in)
	require.NoError(t, err, "keeping its own article id is not a duplicate")
	assert.Equal(t, "Victor Hugo", updated.FullName)
	assert.Equal(t, "Writer", updated.OccupationLabel())

	in.ArticleID = 2
	_, err = svc.Update(ctx, a.ID, in)
	_, ok := IsValidation(err)
	assert.True(t, ok)

	_, err = svc.Update(ctx, 999, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	svc, _ := openTestService(t, 100)
	ctx := context.Background()
	f, err := svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "Hugo"})
	require.NoError(t, err)

	err = svc.Delete(ctx, f.ID, false)
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "confirm")

	require.NoError(t, svc.Delete(ctx, f.ID, true))
	_, err = svc.Get(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, f.ID, true), ErrNotFound)
}

func TestDeleteEntityProtected(t *testing.T) {
	svc, db := openTestService(t, 100)
	ctx := context.Background()
	country, _, _ := db.GetOrCreateCountry(ctx, "France", "Europe")
	f, err := svc.Create(ctx, FigureInput{ArticleID: 1, FullName: "Monet", NewCityName: "Paris", NewCountryID: &country.ID})
	require.NoError(t, err)

	err = svc.DeleteEntity(ctx, KindCity, *f.CityID)
	assert.ErrorIs(t, err, ErrProtected)
	cities, err := svc.Cities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, 1, cities[0].FigureCount)

	require.NoError(t, svc.Delete(ctx, f.ID, true))
	require.NoError(t, svc.DeleteEntity(ctx, KindCity, *f.CityID))
	require.NoError(t, svc.DeleteEntity(ctx, KindCountry, country.ID))
	assert.ErrorIs(t, svc.DeleteEntity(ctx, KindCountry, country.ID), ErrNotFound)
}

func TestListPagination(t *testing.T) {
	svc, _ := openTestService(t, 2)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := svc.Create(ctx, FigureInput{
			ArticleID:       int64(i),
			FullName:        string(rune('A' + i - 1)),
			PopularityIndex: decimal.NewFromInt(int64(10 + i)),
		})
		require.NoError(t, err)
	}

	p, err := svc.List(ctx, database.OrderPopularity, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumPages)
	assert.Equal(t, 5, p.Total)
	require.Len(t, p.Figures, 2)
	assert.Equal(t, "E", p.Figures[0].FullName)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p, err = svc.List(ctx, database.OrderPopularity, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Number, "past the end yields the last page")
	require.Len(t, p.Figures, 1)
	assert.Equal(t, "A", p.Figures[0].FullName)
	assert.Equal(t, 5, p.StartIndex())

	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 4, ParsePage(" 4 "))
}

func TestListEmpty(t *testing.T) {
	svc, _ := openTestService(t, 100)
	p, err := svc.List(context.Background(), database.OrderName, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.NumPages)
	assert.Empty(t, p.Figures)
	assert.Equal(t, 0, p.StartIndex())
}

func TestDecodeFigureForm(t *testing.T) {
	in, err := DecodeFigureForm(url.Values{
		"article_id":                  {"12"},
		"full_name":                   {" Ada Lovelace "},
		"birth_year":                  {""},
		"city":                        {""},
		"page_views":                  {"1000"},
		"average_views":               {"12.5"},
		"historical_popularity_index": {""},
		"article_languages":           {"40"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), in.ArticleID)
	assert.Equal(t, "Ada Lovelace", in.FullName)
	assert.Nil(t, in.BirthYear)
	assert.Nil(t, in.CityID)
	assert.True(t, in.AverageViews.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, in.PopularityIndex.IsZero())
	assert.Equal(t, 40, in.ArticleLanguages)
}

func TestDecodeFigureFormMalformedNumber(t *testing.T) {
	_, err := DecodeFigureForm(url.Values{
		"article_id":    {"1"},
		"full_name":     {"X"},
		"birth_year":    {"eighteen forty"},
		"average_views": {"lots"},
	})
	ve, ok := IsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, ve.Fields, "birth_year")
	assert.Contains(t, ve.Fields, "average_views")
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())
}
