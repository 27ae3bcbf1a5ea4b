package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dailyDuoAPI/handlers"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/config"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/metrics"
	"dailyDuoAPI/internal/session"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/store/memory"
	"dailyDuoAPI/internal/store/postgres"
	"dailyDuoAPI/middleware"
	"dailyDuoAPI/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dailyduo",
		Short:        "Daily dual-photo posting API",
		SilenceUsage: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable is not set")
			}
			return migrate(cmd.Context(), cfg.DatabaseURL)
		},
	})

	return cmd
}

func migrate(ctx context.Context, dbURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Println("Schema applied")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Storage != config.StoragePostgres {
		log.Println("Using in-memory storage")
		return memory.New(), nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("Successfully connected to Postgres")
	return postgres.New(db), nil
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.RedisURL == "" {
		sessions := session.NewMemoryStore()
		go sessions.CleanupExpired(ctx, 10*time.Minute)
		log.Println("Using in-memory sessions")
		return sessions, nil
	}

	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Println("Using Redis sessions")
	return session.NewRedisStore(client), nil
}

func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.KafkaBrokers == "" {
		return events.Nop{}
	}
	log.Printf("Publishing events to %s on %s", cfg.KafkaTopic, cfg.KafkaBrokers)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func serve(cfg *config.Config) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := openStore(initCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing store...")
		st.Close()
	}()

	sessionStore, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}

	publisher := openPublisher(cfg)
	defer publisher.Close()

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	metrics.Register(prometheus.DefaultRegisterer)

	cal := calendar.New(cfg.Location)
	sessions := session.NewManager(sessionStore, cfg.JWTSecret, cfg.SessionTTL)

	userService := services.NewUserService(st, publisher)
	authService := services.NewAuthService(userService, sessions)
	friendService := services.NewFriendService(st, st, publisher)
	postService := services.NewPostService(st, st, cal, publisher)
	feedService := services.NewFeedService(st, st, friendService, cal)

	routes := &handlers.Routes{
		Auth:    handlers.NewAuthHandler(authService),
		Users:   handlers.NewUserHandler(userService),
		Friends: handlers.NewFriendHandler(friendService),
		Posts:   handlers.NewPostHandler(postService, feedService),
		Feed:    handlers.NewFeedHandler(feedService),
	}

	r := mux.NewRouter()
	standardRouter := r.PathPrefix("/").Subrouter()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.CleanupVisitors(ctx)

	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "storage unavailable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "dailyduo-api"}`))
	}).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()
	routes.Register(api, middleware.AuthMiddleware(authService))

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s (day boundary in %s)", port, cal.Location())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Println("Got signal:", sig)
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
	return nil
}
