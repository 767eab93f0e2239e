package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/pantheon/internal/database"
)

// FormatViews abbreviates a view count: 2500000 -> "2.5M", 1200 -> "1.2K".
func FormatViews(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return strconv.FormatInt(n, 10)
}

// WriteText renders the report as aligned plain text for the terminal.
func WriteText(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	ew.printf("=== PANTHEON DATA ANALYSIS ===\n")

	s := r.Stats
	ew.printf("\nOVERALL\n")
	ew.printf("   Figures:              %s\n", humanize.Comma(int64(s.TotalFigures)))
	ew.printf("   Page views:           %s\n", humanize.Comma(s.TotalPageViews))
	ew.printf("   Average popularity:   %.2f\n", s.AvgPopularity)
	ew.printf("   Highest popularity:   %.2f\n", s.MaxPopularity)
	ew.printf("   Lowest popularity:    %.2f\n", s.MinPopularity)
	ew.printf("   Average languages:    %.1f\n", s.AvgLanguages)
	ew.printf("   Countries / cities / occupations: %s / %s / %s\n",
		humanize.Comma(int64(s.TotalCountries)),
		humanize.Comma(int64(s.TotalCities)),
		humanize.Comma(int64(s.TotalOccupations)))

	ew.printf("\nBY CONTINENT\n")
	for _, g := range r.Continents {
		ew.printf("   %-15s: %6s (%.1f%%)\n", g.Name, humanize.Comma(int64(g.FigureCount)), g.Percentage)
	}

	ew.printf("\nTOP %d BY POPULARITY\n", len(r.TopPopular))
	for i, f := range r.TopPopular {
		ew.printf("   %2d. %-35s %5s | %s\n", i+1, truncate(f.FullName, 35), f.PopularityIndex.StringFixed(2), truncate(f.BirthLocation(), 30))
	}

	ew.printf("\nTOP %d OCCUPATIONS\n", len(r.TopOccupations))
	for i, o := range r.TopOccupations {
		ew.printf("   %d. %-30s %4s (%s)\n", i+1, truncate(o.Name, 30), humanize.Comma(int64(o.FigureCount)), orUnspecified(o.Domain))
	}

	ew.printf("\nTOP %d CITIES\n", len(r.TopCities))
	for i, c := range r.TopCities {
		ew.printf("   %d. %-20s, %-15s %3s\n", i+1, truncate(c.Name, 20), truncate(c.CountryName, 15), humanize.Comma(int64(c.FigureCount)))
	}

	ew.printf("\nTOP %d BY PAGE VIEWS\n", len(r.TopViews))
	for i, f := range r.TopViews {
		ew.printf("   %d. %-30s %8s views\n", i+1, truncate(f.FullName, 30), FormatViews(f.PageViews))
	}

	ew.printf("\nTOP %d BY LANGUAGES\n", len(r.TopLanguages))
	for i, f := range r.TopLanguages {
		ew.printf("   %d. %-30s %3d languages\n", i+1, truncate(f.FullName, 30), f.ArticleLanguages)
	}

	ew.printf("\nBY DOMAIN\n")
	for _, g := range r.Domains {
		ew.printf("   %-15s: %5s (%.1f%%)\n", g.Name, humanize.Comma(int64(g.FigureCount)), g.Percentage)
	}

	return ew.err
}

// Markdown renders the report as Markdown with one table per section.
func Markdown(r *Report) string {
	var sections []string

	s := r.Stats
	sections = append(sections, fmt.Sprintf(`## Overall

| Measure | Value |
|---|---:|
| Figures | %s |
| Page views | %s |
| Average popularity | %.2f |
| Highest popularity | %.2f |
| Lowest popularity | %.2f |
| Average languages | %.1f |
| Average views | %s |`,
		humanize.Comma(int64(s.TotalFigures)), humanize.Comma(s.TotalPageViews),
		s.AvgPopularity, s.MaxPopularity, s.MinPopularity, s.AvgLanguages,
		FormatViews(int64(s.AvgAverageViews))))

	sections = append(sections, shareTable("By continent", "Continent", r.Continents))

	rows := []string{"## Most popular", "", "| # | Name | Index | Category | Born |", "|---:|---|---:|---|---|"}
	for i, f := range r.TopPopular {
		rows = append(rows, fmt.Sprintf("| %d | %s | %s | %s | %s |", i+1, cell(f.FullName), f.PopularityIndex.StringFixed(2), f.PopularityCategory(), cell(f.BirthLocation())))
	}
	sections = append(sections, strings.Join(rows, "\n"))

	rows = []string{"## Occupations", "", "| # | Occupation | Figures | Domain |", "|---:|---|---:|---|"}
	for i, o := range r.TopOccupations {
		rows = append(rows, fmt.Sprintf("| %d | %s | %d | %s |", i+1, cell(o.Name), o.FigureCount, cell(orUnspecified(o.Domain))))
	}
	sections = append(sections, strings.Join(rows, "\n"))

	rows = []string{"## Cities", "", "| # | City | Country | Figures |", "|---:|---|---|---:|"}
	for i, c := range r.TopCities {
		rows = append(rows, fmt.Sprintf("| %d | %s | %s | %d |", i+1, cell(c.Name), cell(c.CountryName), c.FigureCount))
	}
	sections = append(sections, strings.Join(rows, "\n"))

	rows = []string{"## Page views", "", "| # | Name | Views |", "|---:|---|---:|"}
	for i, f := range r.TopViews {
		rows = append(rows, fmt.Sprintf("| %d | %s | %s |", i+1, cell(f.FullName), FormatViews(f.PageViews)))
	}
	sections = append(sections, strings.Join(rows, "\n"))

	rows = []string{"## Languages", "", "| # | Name | Languages |", "|---:|---|---:|"}
	for i, f := range r.TopLanguages {
		rows = append(rows, fmt.Sprintf("| %d | %s | %d |", i+1, cell(f.FullName), f.ArticleLanguages))
	}
	sections = append(sections, strings.Join(rows, "\n"))

	sections = append(sections, shareTable("By domain", "Domain", r.Domains))

	return strings.Join(sections, "\n\n")
}

func shareTable(title, label string, groups []database.GroupShare) string {
	rows := []string{"## " + title, "", "| " + label + " | Figures | Share |", "|---|---:|---:|"}
	for _, g := range groups {
		rows = append(rows, fmt.Sprintf("| %s | %s | %.1f%% |", cell(g.Name), humanize.Comma(int64(g.FigureCount)), g.Percentage))
	}
	return strings.Join(rows, "\n")
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return database.Unspecified
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
