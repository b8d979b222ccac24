package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"timelyhub-quiz-engine/internal/app"
	"timelyhub-quiz-engine/internal/config"
	"timelyhub-quiz-engine/internal/domain"
	"timelyhub-quiz-engine/internal/generator"
	"timelyhub-quiz-engine/internal/infra/memory"
	pgarchive "timelyhub-quiz-engine/internal/infra/postgres"
	redisstore "timelyhub-quiz-engine/internal/infra/redis"
	transport "timelyhub-quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session engine",
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

	var store app.SessionStore = memory.NewSessionStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisstore.NewSessionStore(client)
	}

	var gen app.Generator
	if cfg.Generator.URL != "" {
		timeout := config.Duration(cfg.Generator.Timeout, 60*time.Second)
		gen = generator.NewClient(cfg.Generator.URL, cfg.Generator.APIKey, timeout)
	} else {
		log.Printf("no generator configured, serving the built-in sample quiz")
		gen = memory.NewStaticGenerator(sampleQuestions())
	}
	cacheTTL := config.Duration(cfg.Generator.CacheTTL, 10*time.Minute)
	gen = memory.NewGeneratorCache(gen, cacheTTL)

	service := app.NewService(store, gen)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		service.UseArchive(pgarchive.NewHistoryArchive(pool))
	}

	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session engine on :%s", finalPort)
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

// sampleQuestions is a minimal built-in set so the engine works without an
// upstream generation service.
func sampleQuestions() []domain.RawQuestion {
	return []domain.RawQuestion{
		{
			Prompt: "What is 2 + 2?",
			Options: []domain.LetterOption{
				{Letter: "A", Text: "3"},
				{Letter: "B", Text: "4"},
				{Letter: "C", Text: "5"},
			},
			AnswerKey:   "B",
			Explanation: "Basic addition.",
		},
		{
			Prompt: "Largest planet in the solar system?",
			Options: []domain.LetterOption{
				{Letter: "A", Text: "Mars"},
				{Letter: "B", Text: "Saturn"},
				{Letter: "C", Text: "Jupiter"},
			},
			AnswerKey:   "C",
			Explanation: "Jupiter is the largest.",
		},
	}
}
