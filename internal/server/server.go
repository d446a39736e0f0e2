package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// SessionCookie identifies a browser; it scopes the cached result set.
const SessionCookie = "catalog_session"

// StateHeader carries the presentation state of a /results fragment.
const StateHeader = "X-Result-State"

// Server is the HTTP front end of the catalog.
type Server struct {
	svc    *catalog.Service
	pages  map[string]*template.Template
	mux    *http.ServeMux
	logger *zap.Logger
}

// New creates a new Server.
func New(svc *catalog.Service, logger *zap.Logger) (*Server, error) {
	base, err := template.New("base.html").ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page clones the base and brings its own "content" and "title".
	pageNames := []string{"index.html", "add.html", "success.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, pages: pages, mux: http.NewServeMux(), logger: logger}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/search", s.handleSearch)
	s.mux.HandleFunc("/results", s.handleResults)
	s.mux.HandleFunc("/clear", s.handleClear)
	s.mux.HandleFunc("/add", s.handleAddForm)
	s.mux.HandleFunc("/articles", s.handleAddArticle)
	s.mux.HandleFunc(catalog.SuccessLocation, s.handleOutcome("success.html"))
	s.mux.HandleFunc(catalog.ErrorLocation, s.handleOutcome("error.html"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view, err := s.svc.Restore(r.Context(), s.session(w, r))
	if err != nil {
		s.logger.Error("restoring results", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderResults(w, r.URL.Query().Get("q"), view)
}

// handleSearch runs a search from the plain form. A populated result is
// cached, so the client is sent back to the index, where a reload restores
// it without querying the store again.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	view, err := s.svc.Search(r.Context(), s.session(w, r), query)
	if err != nil {
		s.logger.Error("rendering search", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if view.State == catalog.StatePopulated {
		http.Redirect(w, r, "/?"+url.Values{"q": {query}}.Encode(), http.StatusSeeOther)
		return
	}
	s.renderResults(w, query, view)
}

// handleResults serves the results container contents only, for the page
// script to swap in without a reload.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Search(r.Context(), s.session(w, r), r.URL.Query().Get("q"))
	if err != nil {
		s.logger.Error("rendering search", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(StateHeader, view.State.String())
	if _, err := w.Write([]byte(view.Fragment.HTML)); err != nil {
		s.logger.Debug("writing fragment", zap.Error(err))
	}
}

// handleClear drops the caller's cached results and returns to the index.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.svc.Forget(r.Context(), s.session(w, r)); err != nil {
		s.logger.Error("clearing results", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "add.html", nil)
}

func (s *Server) handleAddArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/add", http.StatusFound)
		return
	}

	out := s.svc.Insert(r.Context(), articles.NewArticle{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Code:        r.FormValue("code"),
	})
	http.Redirect(w, r, out.Location, http.StatusFound)
}

func (s *Server) handleOutcome(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, page, nil)
	}
}

func (s *Server) renderResults(w http.ResponseWriter, query string, view catalog.View) {
	s.render(w, "index.html", map[string]any{
		"Query":   query,
		"State":   view.State.String(),
		"Results": view.Fragment.HTML,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
	}
}

// session returns the caller's session id, issuing a new cookie when the
// request carries none or an invalid one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", "http://"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
