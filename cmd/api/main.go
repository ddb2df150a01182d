package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/babysteps/internal/api"
	"example.com/babysteps/internal/assistant"
	"example.com/babysteps/internal/auth"
	"example.com/babysteps/internal/classifier"
	"example.com/babysteps/internal/config"
	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/events"
	"example.com/babysteps/internal/parser"
	persistence "example.com/babysteps/internal/persistence/postgres"
	httptransport "example.com/babysteps/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "babysteps-api").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	publisher := events.NewPublisher(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	var classifierClient classifier.Client = classifier.Disabled{}
	if cfg.ClassifierURL != "" {
		classifierClient = classifier.New(classifier.Config{
			Endpoint:   cfg.ClassifierURL,
			HTTPClient: &http.Client{Timeout: cfg.ClassifierTimeout},
		})
	}

	profile := domain.BabyProfile{
		ID:        cfg.BabyID,
		Name:      cfg.BabyName,
		Birthdate: cfg.BabyBirthdate,
	}

	p := parser.New(classifierClient, parser.WithLogger(logger))
	svc := assistant.NewService(p, repo, profile,
		assistant.WithLogger(logger),
		assistant.WithEvents(publisher),
	)

	handler := api.NewHandler(svc, repo, profile,
		api.WithEvents(publisher),
		api.WithWellness(repo),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	requestLogger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(requestLogger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("babysteps-api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
