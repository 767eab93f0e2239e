package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/pantheon/internal/catalog"
	"github.com/TobiSchelling/pantheon/internal/config"
	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/logger"
	"github.com/TobiSchelling/pantheon/internal/metrics"
	"github.com/TobiSchelling/pantheon/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Server is the HTTP front end of the catalog.
type Server struct {
	db      *database.DB
	catalog *catalog.Service
	cfg     *config.Config
	log     *slog.Logger
	pages   map[string]*template.Template
	router  *mux.Router
}

// New creates a new Server.
func New(db *database.DB, cfg *config.Config, log *slog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"views":    report.FormatViews,
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"comma64":  humanize.Comma,
		"fixed":    func(d decimal.Decimal) string { return d.StringFixed(2) },
		"float":    func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
		"pct":      func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) + "%" },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"optInt": func(p *int) string {
			if p == nil {
				return ""
			}
			return strconv.Itoa(*p)
		},
		"optID": func(p *int64) string {
			if p == nil {
				return ""
			}
			return strconv.FormatInt(*p, 10)
		},
		"isID":   func(p *int64, id int64) bool { return p != nil && *p == id },
		"add":    func(a, b int) int { return a + b },
		"orders": func() []database.FigureOrder { return database.FigureOrders },
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page is parsed into its own clone of base so every page can
	// define "title" and "content".
	pageNames := []string{
		"home.html", "figures.html", "figure.html", "figure_form.html", "figure_delete.html",
		"statistics.html", "report.html", "import.html",
		"countries.html", "cities.html", "occupations.html", "error.html",
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		db:      db,
		catalog: catalog.New(db, cfg.Server.PageSize),
		cfg:     cfg,
		log:     log,
		pages:   pages,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return logger.AccessMiddleware(s.log)(s.router)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/figures", s.handleFigures).Methods(http.MethodGet)
	r.HandleFunc("/figures/new", s.handleFigureNew).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/figures/{id:[0-9]+}", s.handleFigure).Methods(http.MethodGet)
	r.HandleFunc("/figures/{id:[0-9]+}/edit", s.handleFigureEdit).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/figures/{id:[0-9]+}/delete", s.handleFigureDelete).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/{kind:countries|cities|occupations}", s.handleEntities).Methods(http.MethodGet)
	r.HandleFunc("/{kind:countries|cities|occupations}/{id:[0-9]+}/delete", s.handleEntityDelete).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
	})
}

// instrument labels request metrics with the matched route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.Instrument(route, next).ServeHTTP(w, r)
	})
}

// render executes a page. The total figure count shown in the layout is
// read per request.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	total, err := s.db.CountFigures(r.Context())
	if err != nil {
		s.log.Error("counting figures", "error", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	data["TotalFigures"] = total

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error.html", map[string]any{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": msg,
	})
}

// fail maps service errors onto responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "The requested record does not exist.")
	case errors.Is(err, catalog.ErrProtected):
		s.renderError(w, r, http.StatusConflict, "The record is still referenced and cannot be deleted.")
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs the HTTP server on 127.0.0.1:port until ctx is cancelled.
func Serve(ctx context.Context, db *database.DB, cfg *config.Config, log *slog.Logger, port int) error {
	srv, err := New(db, cfg, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.log.Info("server listening", "url", "http://"+addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
