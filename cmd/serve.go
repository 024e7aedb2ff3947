package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/handlers"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/api/services"
	"github.com/crash-ph/admin-console/internal/appconfig"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/internal/session"
	"github.com/crash-ph/admin-console/web"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	sessionCleanupInterval = 15 * time.Minute
	limiterIdle            = 10 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for the admin console",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := resolveSecrets(ctx, appCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve secrets")
		}

		// Initialize the session store
		store, closeStore, err := initializeSessionStore(ctx, appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize session store")
		}
		defer closeStore()

		// Initialize event publisher
		notifier := initializeNotifier(appCfg)
		defer notifier.Close()

		pages, err := services.NewRenderer(appCfg.BasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse page templates")
		}

		service := &services.Service{
			Config:  appCfg,
			Backend: backend.NewClient(appCfg.Backend.URL, appCfg.Backend.Timeout),
			Sessions: &middleware.Sessions{
				Store:      store,
				CookieName: appCfg.Session.CookieName,
				LoginPath:  services.JoinPath(appCfg.BasePath, "/login"),
			},
			Events: notifier,
			Pages:  pages,
		}

		limiter := middleware.NewRateLimiter(appCfg.Login.RatePerMinute, appCfg.Login.Burst)
		go every(ctx, limiterIdle, func() {
			if n := limiter.Cleanup(limiterIdle); n > 0 {
				log.Debug().Int("removed", n).Msg("pruned idle login limiters")
			}
		})

		if pg, ok := store.(*session.PostgresStore); ok {
			go every(ctx, sessionCleanupInterval, func() {
				n, err := pg.CleanupExpired(ctx)
				if err != nil {
					log.Error().Err(err).Msg("failed to remove expired sessions")
					return
				}
				log.Debug().Int64("removed", n).Msg("removed expired sessions")
			})
		}

		r := newRouter(service, limiter)

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info().Msg("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
			}
		}()

		log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("could not start server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

// newRouter registers the console routes under the configured base path.
func newRouter(service *services.Service, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handlers.Health()).Methods(http.MethodGet)

	console := r.NewRoute().Subrouter()
	if base := strings.TrimSuffix(service.Config.BasePath, "/"); base != "" {
		console = r.PathPrefix(base).Subrouter()
	}
	console.Use(middleware.WithLogger)

	console.PathPrefix("/static/").Handler(
		http.StripPrefix(service.Path("/static/"), http.FileServer(http.FS(web.Static()))),
	).Methods(http.MethodGet)

	// Sign in routes
	console.HandleFunc("/login", handlers.LoginPage(service)).Methods(http.MethodGet)
	console.Handle("/login", limiter.Limit(handlers.Login(service), handlers.LoginThrottled(service))).Methods(http.MethodPost)
	console.HandleFunc("/logout", handlers.Logout(service)).Methods(http.MethodPost)

	// Everything else needs an administrator session
	admin := console.NewRoute().Subrouter()
	admin.Use(service.Sessions.RequireSession)
	admin.Use(middleware.RequireRole(services.ConsoleRole))

	admin.Handle("/", http.RedirectHandler(service.Path("/offices"), http.StatusSeeOther)).Methods(http.MethodGet)

	// Police office routes
	admin.HandleFunc("/offices", handlers.ListOffices(service)).Methods(http.MethodGet)
	admin.HandleFunc("/offices", handlers.CreateOffice(service)).Methods(http.MethodPost)
	admin.HandleFunc("/offices/new", handlers.NewOffice(service)).Methods(http.MethodGet)
	admin.HandleFunc("/offices/{office-id}/edit", handlers.EditOffice(service)).Methods(http.MethodGet)
	admin.HandleFunc("/offices/{office-id}", handlers.UpdateOffice(service)).Methods(http.MethodPost)
	admin.HandleFunc("/offices/{office-id}/delete", handlers.DeleteOffice(service)).Methods(http.MethodPost)

	// Map routes
	admin.HandleFunc("/map", handlers.MapPage(service)).Methods(http.MethodGet)
	admin.HandleFunc("/map/live", handlers.LiveMap(service)).Methods(http.MethodGet)
	admin.HandleFunc("/geocode/reverse", handlers.ReverseGeocode(service)).Methods(http.MethodGet)

	// Report routes
	admin.HandleFunc("/reports/manual", handlers.ManualReportPage(service)).Methods(http.MethodGet)
	admin.HandleFunc("/reports/manual", handlers.CreateManualReport(service)).Methods(http.MethodPost)
	admin.HandleFunc("/users/search", handlers.SearchUsers(service)).Methods(http.MethodGet)

	// Profile and tool routes
	admin.HandleFunc("/profile", handlers.Profile(service)).Methods(http.MethodGet)
	admin.HandleFunc("/profile", handlers.UpdateProfile(service)).Methods(http.MethodPost)
	admin.HandleFunc("/profile/password", handlers.ChangePassword(service)).Methods(http.MethodPost)
	admin.HandleFunc("/tools/password-hash", handlers.PasswordHash(service)).Methods(http.MethodPost)
	admin.HandleFunc("/preferences/sidebar", handlers.SidebarPreference(service)).Methods(http.MethodPost)

	return r
}

// initializeSessionStore opens the configured session store. The returned
// func releases its connections.
func initializeSessionStore(ctx context.Context, cfg *appconfig.Config) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case appconfig.StoreRedis:
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis session store")
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil

	case appconfig.StorePostgres:
		log.Info().Msg("Using postgres session store")
		logger := log.Logger
		store, err := session.NewPostgresStore(cfg.Database.Source, &logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	default:
		log.Warn().Msg("Using in-memory session store, sessions are lost on restart")
		return session.NewMemoryStore(), func() {}, nil
	}
}

// initializeNotifier connects the audit event publisher, or drops events
// when Pulsar is not configured.
func initializeNotifier(cfg *appconfig.Config) events.Notifier {
	if cfg.Pulsar.URL == "" {
		log.Info().Msg("Pulsar URL not set, audit events are not published")
		return events.NoopNotifier{}
	}

	logger := log.Logger
	publisher, err := events.NewEventPublisher(cfg.Pulsar.URL, cfg.Pulsar.TopicProducer, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	return publisher
}

// every runs fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
