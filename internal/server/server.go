package server

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strefethen/wam-hub-go/internal/api"
	"github.com/strefethen/wam-hub-go/internal/config"
	"github.com/strefethen/wam-hub-go/internal/db"
	"github.com/strefethen/wam-hub-go/internal/discovery"
	"github.com/strefethen/wam-hub-go/internal/events"
	"github.com/strefethen/wam-hub-go/internal/groups"
	"github.com/strefethen/wam-hub-go/internal/scheduler"
	"github.com/strefethen/wam-hub-go/internal/speakers"
	"github.com/strefethen/wam-hub-go/internal/wam"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.NewRecoverer(nil))

	registerHealthRoutes(router)

	var hub *events.Hub
	var publisher speakers.Publisher
	if cfg.EventsEnabled {
		hub = events.NewHub(nil)
		events.RegisterRoutes(router, hub)
		publisher = hub
	}

	client := wam.NewClient(time.Duration(cfg.WamTimeoutMs) * time.Millisecond)

	// One lock instance serializes everything addressed to a speaker:
	// direct commands, hydration during rescans, and grouping steps.
	speakerLocks := wam.NewSpeakerLock(time.Duration(cfg.LockTimeoutMs)*time.Millisecond, nil)

	discoveryService := discovery.NewService(client, nil, speakerLocks, nil)

	speakerRepo := speakers.NewRepository(dbPair)
	speakerService := speakers.NewService(cfg, nil, client, speakerLocks, discoveryService, speakerRepo, publisher)
	if err := speakerService.Bootstrap(); err != nil {
		dbPair.Close()
		return nil, nil, err
	}
	speakers.RegisterRoutes(router, speakerService)

	coordinator := groups.NewCoordinator(client, speakerLocks, nil)
	groupRepo := groups.NewRepository(dbPair)
	groupService := groups.NewService(coordinator, speakerService, groupRepo, nil, publisher)
	groups.RegisterRoutes(router, groupService)

	rescanRunner := scheduler.NewRunner(nil, speakerService.Rescan,
		time.Duration(cfg.SSDPDiscoveryTimeoutMs+cfg.WamTimeoutMs*2)*time.Millisecond)
	if err := rescanRunner.Start(cfg.RescanCronSpec); err != nil {
		dbPair.Close()
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		rescanRunner.Stop()
		if hub != nil {
			hub.Close()
		}
		if err := speakerService.ExportLegacy(); err != nil {
			log.Printf("Legacy speakers export failed: %v", err)
		}
		if ctx == nil {
			ctx = context.Background()
		}
		return dbPair.Close()
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "wam-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
