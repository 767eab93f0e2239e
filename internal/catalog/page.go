package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/TobiSchelling/pantheon/internal/database"
)

// Page is one page of an ordered figure listing.
type Page struct {
	Figures  []database.Figure
	Order    database.FigureOrder
	Number   int
	NumPages int
	Total    int
	PerPage  int
}

// HasPrev reports whether a page precedes this one.
func (p *Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page) HasNext() bool { return p.Number < p.NumPages }

// Prev is the previous page number.
func (p *Page) Prev() int { return p.Number - 1 }

// Next is the next page number.
func (p *Page) Next() int { return p.Number + 1 }

// StartIndex is the 1-based position of the first figure on the page.
func (p *Page) StartIndex() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

// ParsePage reads a page number; anything unparsable or below 1 is page 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// List returns the requested page. A page past the end yields the last page.
func (s *Service) List(ctx context.Context, order database.FigureOrder, page int) (*Page, error) {
	total, err := s.db.CountFigures(ctx)
	if err != nil {
		return nil, err
	}
	numPages := (total + s.pageSize - 1) / s.pageSize
	if numPages < 1 {
		numPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > numPages {
		page = numPages
	}

	figs, err := s.db.ListFigures(ctx, order, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	return &Page{
		Figures:  figs,
		Order:    order,
		Number:   page,
		NumPages: numPages,
		Total:    total,
		PerPage:  s.pageSize,
	}, nil
}

// Recent returns the n most recently added figures.
func (s *Service) Recent(ctx context.Context, n int) ([]database.Figure, error) {
	return s.db.ListFigures(ctx, database.OrderRecent, n, 0)
}
