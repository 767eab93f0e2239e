// Package article fetches the source article of a figure and keeps a short
// readable summary of it.
package article

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/pantheon/internal/config"
	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/metrics"
)

// maxSummary bounds a stored summary, in runes.
const maxSummary = 600

// Result holds the results of a summary fetch run.
type Result struct {
	Fetched int
	Empty   int
	Failed  int
}

// Fetcher downloads article pages and extracts a summary with readability.
type Fetcher struct {
	db          *database.DB
	client      *http.Client
	urlTemplate string
	userAgent   string
}

// NewFetcher creates a fetcher from the fetch configuration.
func NewFetcher(db *database.DB, cfg config.Fetch) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		db:          db,
		urlTemplate: cfg.URLTemplate,
		userAgent:   cfg.UserAgent,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// ArticleURL returns the source article address for an article id.
func (f *Fetcher) ArticleURL(articleID int64) string {
	return fmt.Sprintf(f.urlTemplate, articleID)
}

// FetchMissing fetches summaries for up to limit figures that have never been
// attempted. Every attempt is recorded so a failing article is not retried on
// the next run.
func (f *Fetcher) FetchMissing(ctx context.Context, limit int) (*Result, error) {
	figures, err := f.db.FiguresNeedingSummary(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing figures without summary: %w", err)
	}
	if len(figures) == 0 {
		slog.Info("no figures need a summary")
		return &Result{}, nil
	}

	result := &Result{}
	for _, fig := range figures {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		summary, err := f.fetchSummary(ctx, f.ArticleURL(fig.ArticleID))
		switch {
		case err != nil:
			result.Failed++
			metrics.SummaryFetchesTotal.WithLabelValues("failed").Inc()
			slog.Warn("summary fetch failed", "article_id", fig.ArticleID, "error", err)
			if uerr := f.db.UpdateFigureSummary(ctx, fig.ID, nil); uerr != nil {
				return result, uerr
			}
		case summary == "":
			result.Empty++
			metrics.SummaryFetchesTotal.WithLabelValues("empty").Inc()
			slog.Info("no extractable summary", "article_id", fig.ArticleID)
			if uerr := f.db.UpdateFigureSummary(ctx, fig.ID, nil); uerr != nil {
				return result, uerr
			}
		default:
			result.Fetched++
			metrics.SummaryFetchesTotal.WithLabelValues("fetched").Inc()
			if uerr := f.db.UpdateFigureSummary(ctx, fig.ID, &summary); uerr != nil {
				return result, uerr
			}
			slog.Info("summary stored", "article_id", fig.ArticleID, "name", fig.FullName)
		}
	}

	slog.Info("summary fetch complete", "fetched", result.Fetched, "empty", result.Empty, "failed", result.Failed)
	return result, nil
}

func (f *Fetcher) fetchSummary(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(articleURL)
	doc, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}
	return Excerpt(doc.TextContent, maxSummary), nil
}

// Excerpt returns the first non-trivial paragraph of text, cut to at most n
// runes on a word boundary.
func Excerpt(text string, n int) string {
	var para string
	for _, p := range strings.Split(text, "\n") {
		p = strings.Join(strings.Fields(p), " ")
		if len(p) >= 40 {
			para = p
			break
		}
	}
	if para == "" {
		return ""
	}
	r := []rune(para)
	if len(r) <= n {
		return para
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}
