package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classlive-session-service/internal/app"
	"classlive-session-service/internal/config"
	"classlive-session-service/internal/domain"
	"classlive-session-service/internal/infra/memory"
	pginfra "classlive-session-service/internal/infra/postgres"
	redisinfra "classlive-session-service/internal/infra/redis"
	transport "classlive-session-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var results app.ResultStore = memory.NewResultStore()
	if pool != nil {
		results = pginfra.NewResultStore(pool)
	}

	service := app.NewSessionService(registry, quizRepo, results, app.ServiceConfig{
		Session: app.SessionConfig{
			BasePoints:     cfg.Session.BasePoints,
			RevealDuration: time.Duration(cfg.Session.RevealSeconds) * time.Second,
			AllowLateJoin:  cfg.LateJoin(),
		},
		Retention: config.TTLDuration(cfg.Session.Retention, app.DefaultRetention),
	})
	wsHandler := transport.NewWSHandler(service)
	sessionHandler := transport.NewSessionHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/sessions", sessionHandler.CreateSession)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content when no Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"biology-101": {
			ID:    "biology-101",
			Title: "Biology Basics",
			Questions: []domain.Question{
				{
					Text:               "What is the powerhouse of the cell?",
					Options:            []string{"Nucleus", "Mitochondria", "Ribosome", "Endoplasmic Reticulum"},
					CorrectOptionIndex: 1,
					TimeLimitSeconds:   30,
				},
				{
					Text:               "How many bones are in the human body?",
					Options:            []string{"186", "206", "226", "246"},
					CorrectOptionIndex: 1,
					TimeLimitSeconds:   30,
				},
				{
					Text:               "What is photosynthesis?",
					Options:            []string{"Breaking down glucose", "Building glucose from sunlight", "Storing energy", "Moving water"},
					CorrectOptionIndex: 1,
					TimeLimitSeconds:   30,
				},
			},
		},
	}
}
