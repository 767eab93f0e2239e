package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/TobiSchelling/pantheon/internal/catalog"
	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/importer"
	"github.com/TobiSchelling/pantheon/internal/report"
)

const recentFigures = 10

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.db.GetStats(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recent, err := s.catalog.Recent(ctx, recentFigures)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "home.html", map[string]any{
		"Stats":  stats,
		"Recent": recent,
	})
}

func (s *Server) handleFigures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := database.ParseFigureOrder(q.Get("order"))
	page, err := s.catalog.List(r.Context(), order, catalog.ParsePage(q.Get("page")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "figures.html", map[string]any{
		"Page": page,
	})
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	f, err := s.catalog.Get(r.Context(), pathID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "figure.html", map[string]any{
		"Figure": f,
	})
}

func (s *Server) handleFigureNew(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.renderForm(w, r, http.StatusOK, nil, catalog.FigureInput{}, nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	in, err := catalog.DecodeFigureForm(r.PostForm)
	if err == nil {
		var f *database.Figure
		if f, err = s.catalog.Create(r.Context(), in); err == nil {
			http.Redirect(w, r, "/figures/"+strconv.FormatInt(f.ID, 10), http.StatusSeeOther)
			return
		}
	}
	if ve, ok := catalog.IsValidation(err); ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, nil, in, ve.Fields)
		return
	}
	s.fail(w, r, err)
}

func (s *Server) handleFigureEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.catalog.Get(ctx, pathID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.Method == http.MethodGet {
		s.renderForm(w, r, http.StatusOK, current, catalog.InputFromFigure(current), nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	in, err := catalog.DecodeFigureForm(r.PostForm)
	if err == nil {
		if _, err = s.catalog.Update(ctx, current.ID, in); err == nil {
			http.Redirect(w, r, "/figures/"+strconv.FormatInt(current.ID, 10), http.StatusSeeOther)
			return
		}
	}
	if ve, ok := catalog.IsValidation(err); ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, current, in, ve.Fields)
		return
	}
	s.fail(w, r, err)
}

// renderForm shows the create form when figure is nil, the edit form otherwise.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, figure *database.Figure, in catalog.FigureInput, errs map[string]string) {
	ctx := r.Context()
	countries, err := s.catalog.Countries(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cities, err := s.catalog.Cities(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	occupations, err := s.catalog.Occupations(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, "figure_form.html", map[string]any{
		"Figure":      figure,
		"Input":       in,
		"Errors":      errs,
		"Countries":   countries,
		"Cities":      cities,
		"Occupations": occupations,
	})
}

func (s *Server) handleFigureDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := s.catalog.Get(ctx, pathID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.Method == http.MethodPost {
		confirm := r.PostFormValue("confirm")
		err = s.catalog.Delete(ctx, f.ID, confirm == "true" || confirm == "on")
		if err == nil {
			http.Redirect(w, r, "/figures", http.StatusSeeOther)
			return
		}
		ve, ok := catalog.IsValidation(err)
		if !ok {
			s.fail(w, r, err)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "figure_delete.html", map[string]any{
			"Figure": f,
			"Errors": ve.Fields,
		})
		return
	}

	s.render(w, r, http.StatusOK, "figure_delete.html", map[string]any{
		"Figure": f,
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := report.BuildStatistics(r.Context(), s.db, s.cfg.Report.StatsLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "statistics.html", map[string]any{
		"Statistics": stats,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Build(r.Context(), s.db, s.cfg.Report)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "report.html", map[string]any{
		"Markdown": report.Markdown(rep),
	})
}

const maxUpload = 64 << 20

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "import.html", map[string]any{
			"Columns": importer.Columns,
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.renderImportError(w, r, "The upload could not be read.")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.renderImportError(w, r, "Choose a CSV or XLSX file to import.")
		return
	}
	defer file.Close()

	src, err := importer.OpenReader(hdr.Filename, file, s.cfg.DelimiterRune())
	if err != nil {
		s.renderImportError(w, r, err.Error())
		return
	}
	defer importer.Close(src)
	update := r.PostFormValue("update_existing")
	im := importer.New(s.db, importer.Options{
		UpdateExisting: update == "true" || update == "on",
		Comma:          s.cfg.DelimiterRune(),
		ProgressEvery:  s.cfg.Import.ProgressEvery,
	})
	res, err := im.Import(r.Context(), src)
	if err != nil {
		s.renderImportError(w, r, err.Error())
		return
	}
	s.log.Info("upload imported", "file", hdr.Filename, "created", res.Created, "failed", res.Failed)
	s.render(w, r, http.StatusOK, "import.html", map[string]any{
		"Columns":  importer.Columns,
		"Result":   res,
		"Filename": hdr.Filename,
	})
}

func (s *Server) renderImportError(w http.ResponseWriter, r *http.Request, msg string) {
	s.render(w, r, http.StatusUnprocessableEntity, "import.html", map[string]any{
		"Columns": importer.Columns,
		"Error":   msg,
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	kind, _ := catalog.ParseKind(mux.Vars(r)["kind"])
	s.renderEntities(w, r, kind, http.StatusOK, "")
}

func (s *Server) renderEntities(w http.ResponseWriter, r *http.Request, kind catalog.Kind, status int, msg string) {
	ctx := r.Context()
	data := map[string]any{"Error": msg}
	var err error
	switch kind {
	case catalog.KindCountry:
		data["Items"], err = s.catalog.Countries(ctx)
	case catalog.KindCity:
		data["Items"], err = s.catalog.Cities(ctx)
	case catalog.KindOccupation:
		data["Items"], err = s.catalog.Occupations(ctx)
	default:
		err = catalog.ErrNotFound
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, string(kind)+".html", data)
}

func (s *Server) handleEntityDelete(w http.ResponseWriter, r *http.Request) {
	kind, _ := catalog.ParseKind(mux.Vars(r)["kind"])
	err := s.catalog.DeleteEntity(r.Context(), kind, pathID(r))
	switch {
	case err == nil:
		http.Redirect(w, r, "/"+string(kind), http.StatusSeeOther)
	case errors.Is(err, catalog.ErrProtected):
		s.renderEntities(w, r, kind, http.StatusConflict, "That entry is still referenced and cannot be deleted.")
	default:
		s.fail(w, r, err)
	}
}
