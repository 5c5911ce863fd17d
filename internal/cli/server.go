package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/config"
	"peace-cake-service/internal/domain"
	"peace-cake-service/internal/infra/memory"
	pgcatalog "peace-cake-service/internal/infra/postgres"
	rediscache "peace-cake-service/internal/infra/redis"
	"peace-cake-service/internal/telemetry"
	transport "peace-cake-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// catalogCache is a catalog read path that can also be told to forget entries.
type catalogCache interface {
	app.QuizCatalog
	app.QuestionCache
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			// Per-call deadlines bound liveness marker writes.
			ContextTimeoutEnabled: true,
		})
		if err := telemetry.MonitorRedis(redisClient, cfg.Redis.Verbose); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var store app.CatalogStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store = pgcatalog.NewCatalogStore(pool)
	} else {
		log.Printf("no postgres url configured, serving the in-memory sample catalog")
		mem := memory.NewCatalogStore()
		profile, quiz := sampleCatalog()
		mem.Seed(profile, quiz)
		store = mem
	}

	cacheTTL := config.TTLDuration(cfg.Catalog.CacheTTL, 10*time.Minute)
	var cache catalogCache
	if redisClient != nil {
		cache = rediscache.NewQuestionCache(redisClient, store, cacheTTL)
	} else {
		cache = memory.NewQuestionCache(store, cacheTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	engine := app.NewEngine(sessions, app.Rules{
		StealPointsFactor: cfg.Game.StealPointsFactor,
		MinTeams:          cfg.Game.MinTeams,
		MaxTeams:          cfg.Game.MaxTeams,
	})
	router := transport.NewRouter(transport.Deps{
		Game:    app.NewGameService(engine, cache, cfg.Game.PrimaryTimerSeconds),
		Catalog: app.NewCatalogService(store, cache),
		Rules:   cfg.Game,

		AllowOrigins: cfg.Server.CORSOrigins,
	})

	return serve(ctx, router, finalPort)
}

func serve(ctx context.Context, router *gin.Engine, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Printf("starting peace-cake service on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// sampleCatalog gives the in-memory fallback something to play.
func sampleCatalog() (domain.Profile, domain.Quiz) {
	now := time.Now().UTC()
	easy, medium, hard := domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard
	profile := domain.Profile{ID: "sample-profile", Name: "Sample Host", CreatedAt: now}
	quiz := domain.Quiz{
		ID:        "sample-quiz",
		ProfileID: profile.ID,
		Title:     "General Knowledge",
		CreatedAt: now,
		UpdatedAt: now,
		Questions: []domain.Question{
			{
				ID:           "sample-q1",
				Prompt:       "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				Points:       100,
				Difficulty:   &easy,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			{
				ID:           "sample-q2",
				Prompt:       "Which planet is known as the red planet?",
				Options:      []string{"Venus", "Mars", "Jupiter", "Mercury"},
				CorrectIndex: 1,
				Points:       200,
				Difficulty:   &medium,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			{
				ID:         "sample-q3",
				Prompt:     "Name the longest river in Africa.",
				Options:    []string{},
				Points:     400,
				Difficulty: &hard,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
	}
	return profile, quiz
}
