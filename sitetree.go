package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/database/cached"
	"github.com/aquilax/sitetree/database/memory"
	"github.com/aquilax/sitetree/database/postgres"
	"github.com/aquilax/sitetree/database/sqlite"
	"github.com/aquilax/sitetree/logger"
	"github.com/aquilax/sitetree/metrics"
	"github.com/aquilax/sitetree/model"
	"github.com/aquilax/sitetree/node"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	itemsPerPage = 100
	feedItems    = 20
	sitemapItems = 1000
)

type SiteTree struct {
	config     *Config
	db         database.Database
	m          *model.Model
	tp         *TransPool
	sg         *SpamGuard
	dispatcher *activity.Dispatcher
	redis      *redis.Client
}

type appHandler func(http.ResponseWriter, *http.Request) error

func NewSiteTree() *SiteTree {
	return &SiteTree{}
}

func (l *SiteTree) Run(args []string) error {
	l.config = NewConfig()
	if err := l.config.Load(args); err != nil {
		return err
	}
	logger.SetLogger(logger.New(os.Stdout, l.config.LogLevel, l.config.LogText))

	if err := l.Init(); err != nil {
		return err
	}
	defer l.Close()

	srv := &http.Server{
		Addr:              l.config.Server,
		Handler:           l.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("database", l.config.Database))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Init opens the node store and the activity pipeline described by the
// loaded config.
func (l *SiteTree) Init() error {
	db, err := openDatabase(l.config.Database, l.config.Dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	l.db = db

	var recorder activity.Recorder = activity.LogRecorder{Logger: logger.Default()}
	if l.config.RedisURL != "" {
		opts, err := redis.ParseURL(l.config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		l.redis = redis.NewClient(opts)
		l.db = cached.New(db, l.redis)
		if l.config.Activity.RedisKey != "" {
			recorder = activity.NewRedisRecorder(l.redis, l.config.Activity.RedisKey, l.config.Activity.RedisMax)
		}
	}
	l.dispatcher = activity.NewDispatcher(recorder, l.config.Activity.Workers, l.config.Activity.QueueSize)

	families := node.DefaultFamilies().WithDepths(l.config.Depths)
	l.m = model.NewModel(l.db, model.WithFamilies(families), model.WithSink(l.dispatcher))
	l.tp = NewTransPool(l.config.Translations)
	l.sg = NewSpamGuard(l.config.blockDuration())
	return nil
}

func openDatabase(driver, dsn string) (database.Database, error) {
	var db database.Database
	switch driver {
	case "memory":
		db = memory.New()
	case "postgres":
		db = postgres.New()
	case "sqlite":
		db = sqlite.New()
	default:
		return nil, fmt.Errorf("unknown database %q", driver)
	}
	if err := db.Open(driver, dsn); err != nil {
		return nil, err
	}
	return db, nil
}

// Close drains the activity queue and releases the store.
func (l *SiteTree) Close() {
	if l.dispatcher != nil {
		l.dispatcher.Close()
	}
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			logger.Error("close database", slog.String("error", err.Error()))
		}
	}
	if l.redis != nil {
		l.redis.Close()
	}
}

func (l *SiteTree) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(l.instrument, l.withSite)

	r.HandleFunc("/healthz", appHandler(l.healthHandler).ServeHTTP).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/feed.xml", appHandler(l.feedHandler).ServeHTTP).Methods("GET")
	r.HandleFunc("/sitemap.xml", appHandler(l.sitemapHandler).ServeHTTP).Methods("GET")

	api := r.PathPrefix("/api/{family}").Subrouter()
	api.HandleFunc("/nodes", appHandler(l.listHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/nodes", appHandler(l.createHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/nodes/{id}", appHandler(l.getHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/nodes/{id}", appHandler(l.updateHandler).ServeHTTP).Methods("PATCH")
	api.HandleFunc("/nodes/{id}", appHandler(l.deleteHandler).ServeHTTP).Methods("DELETE")
	api.HandleFunc("/nodes/{id}/move", appHandler(l.moveHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/nodes/{id}/publish", appHandler(l.publishHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/order", appHandler(l.reorderHandler).ServeHTTP).Methods("PUT")
	api.HandleFunc("/published", appHandler(l.publishedHandler).ServeHTTP).Methods("GET")
	return r
}

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := fn(w, r)
	if err == nil {
		return
	}
	httpError := toHTTPError(err)
	if httpError.Code >= http.StatusInternalServerError {
		logger.WithSite(siteFrom(r).sc.SiteID).ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	if httpError.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(httpError.RetryAfter.Seconds()))))
	}
	body := TemplateData{"error": siteFrom(r).ln.Lang(httpError.Message)}
	if httpError.Code < http.StatusInternalServerError && httpError.Err != nil {
		body.Set("detail", httpError.Err.Error())
	}
	if httpError.Fields != nil {
		body.Set("fields", httpError.Fields)
	}
	_ = writeJSON(w, httpError.Code, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument counts and times requests by route template.
func (l *SiteTree) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
		logger.Default().DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(started)))
	})
}

func (l *SiteTree) healthHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := l.db.Ping(ctx); err != nil {
		return &HTTPError{Err: err, Message: "Database unavailable", Code: http.StatusServiceUnavailable}
	}
	return writeJSON(w, http.StatusOK, TemplateData{"status": "ok"})
}
