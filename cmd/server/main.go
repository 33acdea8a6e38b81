package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/capcost/internal/calc"
	"github.com/Simplici0/capcost/internal/config"
	"github.com/Simplici0/capcost/internal/db"
	"github.com/Simplici0/capcost/internal/export"
	"github.com/Simplici0/capcost/internal/history"
	"github.com/Simplici0/capcost/internal/logger"
	"github.com/Simplici0/capcost/internal/metrics"
	"github.com/Simplici0/capcost/internal/middleware"
	"github.com/Simplici0/capcost/internal/migrations"
	"github.com/Simplici0/capcost/internal/preset"
	"github.com/Simplici0/capcost/internal/seed"
	"github.com/Simplici0/capcost/internal/workbench"
	"github.com/Simplici0/capcost/web"
)

type server struct {
	auth      *authService
	bench     *workbench.Workbench
	artifacts *export.Artifacts
	metrics   *metrics.Metrics
	logger    *zap.Logger
	glyph     string
	now       func() time.Time
}

type baseViewData struct {
	AuthEnabled    bool
	ErrorMessage   string
	SuccessMessage string
}

type loginViewData struct {
	baseViewData
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.IsDev(), cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		log.Fatal("failed to run database migrations", zap.Error(err))
	}

	catalog := preset.Default()
	if cfg.PresetsFile != "" {
		if catalog, err = preset.LoadFile(cfg.PresetsFile); err != nil {
			log.Fatal("failed to load preset file", zap.Error(err))
		}
	}
	stats, err := seed.Run(database, seed.Config{Catalog: catalog})
	if err != nil {
		log.Fatal("failed to seed cap types", zap.Error(err))
	}
	log.Info("seeded cap types", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	if catalog, err = preset.Query(context.Background(), database); err != nil {
		log.Fatal("failed to load cap types", zap.Error(err))
	}

	hlog := history.NewLog(history.NewSQLStore(database))
	artifacts := export.NewArtifacts(cfg.ExportTTL)

	sweeper, err := export.NewSweeper(artifacts, cfg.ExportSweepSchedule, logger.Named(log, "export"))
	if err != nil {
		log.Fatal("failed to schedule export sweeper", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &server{
		bench:     workbench.New(calc.DefaultConfig(), initialCapType(catalog), catalog, hlog),
		artifacts: artifacts,
		metrics:   metrics.New(artifacts),
		logger:    logger.Named(log, "http"),
		glyph:     cfg.CurrencyGlyph,
		now:       time.Now,
	}
	if cfg.AuthEnabled() {
		srv.auth = newAuthService(cfg.Passcode, cfg.SessionSecret)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics.Middleware)
	r.Use(middleware.RequestLogger(s.logger, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}))
	r.Use(s.authMiddleware)

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Get("/", s.handleHome)
	r.Post("/config", s.handleConfigSubmit)
	r.Post("/cap-type", s.handleCapTypeSubmit)
	r.Post("/reset", s.handleReset)
	r.Post("/generate", s.handleGenerate)
	r.Post("/history/export", s.handleExportAll)
	r.Post("/history/{id}/export", s.handleExportEntry)
	r.Get("/downloads/{token}", s.handleDownload)

	r.Get("/api/state", s.handleAPIState)
	r.Get("/api/history", s.handleAPIHistory)

	return r
}

// initialCapType is the default label, or the first catalog entry when a
// preset file leaves it out.
func initialCapType(catalog preset.Catalog) string {
	if _, ok := catalog.Lookup(preset.DefaultLabel); !ok && len(catalog.Labels()) > 0 {
		return catalog.Labels()[0]
	}
	return preset.DefaultLabel
}

func (s *server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"num":   calc.FormatNumber,
		"money": func(v float64) string { return s.glyph + calc.FormatNumber(v) },
		"join":  strings.Join,
	}
}

// renderTemplate executes page into a buffer so a failed render can still
// answer with a clean 500 instead of a partial page.
func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(s.templateFuncs()).ParseFS(
		web.FS,
		"templates/layout.html",
		"templates/"+page,
	)
	if err != nil {
		s.logger.Error("failed to parse template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formatCount renders whole-number throughput figures with thousands separators.
func formatCount(v float64) string {
	if !calc.IsFinite(v) {
		return calc.FormatNumber(v)
	}
	return humanize.Commaf(calc.Round2(v))
}
