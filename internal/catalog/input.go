package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/pantheon/internal/database"
)

// FigureInput is the editable field set of a figure. Exactly one of CityID or
// NewCityName (with NewCountryID) picks the birthplace; the same goes for
// OccupationID and NewOccupationName. New names win when both are given.
type FigureInput struct {
	ArticleID         int64           `form:"article_id" validate:"required,gt=0"`
	FullName          string          `form:"full_name" validate:"required,max=255"`
	BirthYear         *int            `form:"birth_year"`
	CityID            *int64          `form:"city"`
	OccupationID      *int64          `form:"occupation"`
	NewCityName       string          `form:"new_city_name" validate:"max=255"`
	NewCountryID      *int64          `form:"new_country" validate:"required_with=NewCityName"`
	NewOccupationName string          `form:"new_occupation_name" validate:"max=255"`
	PageViews         int64           `form:"page_views" validate:"gte=0,lte=1000000000000000"`
	AverageViews      decimal.Decimal `form:"average_views" validate:"gte=0,lt=10000000000"`
	PopularityIndex   decimal.Decimal `form:"historical_popularity_index" validate:"gte=0,lt=1000000"`
	ArticleLanguages  int             `form:"article_languages" validate:"gte=0"`

	OriginalCityName       string `form:"original_city_name" validate:"max=255"`
	OriginalCountryName    string `form:"original_country_name" validate:"max=255"`
	OriginalContinentName  string `form:"original_continent_name" validate:"max=100"`
	OriginalOccupationName string `form:"original_occupation_name" validate:"max=255"`
	OriginalIndustryName   string `form:"original_industry_name" validate:"max=255"`
	OriginalDomainName     string `form:"original_domain_name" validate:"max=255"`
}

// Normalize trims every free-text field.
func (in *FigureInput) Normalize() {
	for _, s := range []*string{
		&in.FullName, &in.NewCityName, &in.NewOccupationName,
		&in.OriginalCityName, &in.OriginalCountryName, &in.OriginalContinentName,
		&in.OriginalOccupationName, &in.OriginalIndustryName, &in.OriginalDomainName,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// InputFromFigure returns the input that reproduces f, used to prefill edit forms.
func InputFromFigure(f *database.Figure) FigureInput {
	return FigureInput{
		ArticleID:              f.ArticleID,
		FullName:               f.FullName,
		BirthYear:              f.BirthYear,
		CityID:                 f.CityID,
		OccupationID:           f.OccupationID,
		PageViews:              f.PageViews,
		AverageViews:           f.AverageViews,
		PopularityIndex:        f.PopularityIndex,
		ArticleLanguages:       f.ArticleLanguages,
		OriginalCityName:       f.OriginalCityName,
		OriginalCountryName:    f.OriginalCountryName,
		OriginalContinentName:  f.OriginalContinentName,
		OriginalOccupationName: f.OriginalOccupationName,
		OriginalIndustryName:   f.OriginalIndustryName,
		OriginalDomainName:     f.OriginalDomainName,
	}
}

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

var (
	decoder  = newDecoder()
	validate = newValidator()
)

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		s := strings.TrimSpace(vals[0])
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}, decimal.Decimal{})
	return d
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// DecodeFigureForm decodes submitted form values. Malformed numbers come back
// as a ValidationError keyed by field name.
func DecodeFigureForm(values url.Values) (FigureInput, error) {
	var in FigureInput
	if err := decoder.Decode(&in, values); err != nil {
		var de form.DecodeErrors
		if errors.As(err, &de) {
			ve := &ValidationError{Fields: make(map[string]string, len(de))}
			for field := range de {
				ve.Fields[field] = "enter a valid number"
			}
			return in, ve
		}
		return in, fmt.Errorf("decoding figure form: %w", err)
	}
	in.Normalize()
	return in, nil
}

// Validate checks field constraints only; references and uniqueness are
// checked by the Service against the store.
func (in *FigureInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Field()] = message(fe)
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "required_with":
		return "required when a new city is given"
	case "max":
		return fmt.Sprintf("at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "invalid value"
}
