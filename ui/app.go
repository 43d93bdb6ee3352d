package ui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"claimsim/adapters/report"
	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/errors"
	"claimsim/internal/logger"
	"claimsim/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*
var embeddedFiles embed.FS

// App serves the report and the single-claim viewer for one run
type App struct {
	router    *chi.Mux
	runs      ports.RunRepository
	templates *template.Template
	port      string

	mu  sync.RWMutex
	run *simulation.Run
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates the viewer. runs may be nil when nothing is persisted.
func NewApp(config Config, runs ports.RunRepository) (*App, error) {
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		runs:      runs,
		templates: templates,
		port:      config.Port,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

// SetRun replaces the run being served
func (a *App) SetRun(run *simulation.Run) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.run = run
}

func (a *App) current() *simulation.Run {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.run
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(requestLogger)
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleReport)
	a.router.Get("/claims/{id}", a.handleClaimFragment)
	a.router.Get("/api/claims/{id}", a.handleClaimJSON)
	a.router.Get("/runs", a.handleRuns)
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.FromContext(r.Context()).Debugw("[UI] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start))
	})
}

// Start serves until ctx is cancelled
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.FromContext(ctx).Infof("[UI] serving report on http://localhost:%s", a.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"error": err.Error(),
		"code":  errors.Classify(err),
	})
}

func (a *App) requireRun(w http.ResponseWriter) *simulation.Run {
	run := a.current()
	if run == nil || run.Summary == nil {
		http.Error(w, "no simulation run loaded", http.StatusServiceUnavailable)
		return nil
	}
	return run
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	run := a.requireRun(w)
	if run == nil {
		return
	}
	page, err := report.Page(run, report.PageOptions{Live: true})
	if err != nil {
		logger.FromContext(r.Context()).Errorw("[UI] report failed", "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func claimParam(r *http.Request) (core.ClaimID, error) {
	id, err := core.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	return id, nil
}

func (a *App) handleClaimFragment(w http.ResponseWriter, r *http.Request) {
	run := a.requireRun(w)
	if run == nil {
		return
	}
	id, err := claimParam(r)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	frag, err := report.ClaimFragment(run, id)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, frag)
}

// claimView is the JSON shape of /api/claims/{id}
type claimView struct {
	RunID   core.RunID              `json:"run_id"`
	Claim   simulation.ClaimSummary `json:"claim"`
	Payment []float64               `json:"payments,omitempty"`
}

func (a *App) handleClaimJSON(w http.ResponseWriter, r *http.Request) {
	run := a.requireRun(w)
	if run == nil {
		return
	}
	id, err := claimParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, ok := run.Summary.Claim(id)
	if !ok {
		writeError(w, core.NewNotFoundError("claim", id.String()))
		return
	}

	view := claimView{RunID: run.ID, Claim: c}
	if run.Result != nil {
		for _, t := range run.Result.ForClaim(id) {
			view.Payment = append(view.Payment, t.Payment)
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	var runs []*simulation.Summary
	if a.runs != nil {
		var err error
		if runs, err = a.runs.ListRuns(r.Context(), 50); err != nil {
			logger.FromContext(r.Context()).Errorw("[UI] list runs failed", "error", err)
			http.Error(w, "failed to load runs", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, "runs.html", map[string]interface{}{"Runs": runs}); err != nil {
		logger.FromContext(r.Context()).Errorw("[UI] template failed", "error", err)
	}
}
