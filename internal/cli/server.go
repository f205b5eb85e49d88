package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"starquiz-service/internal/app"
	"starquiz-service/internal/config"
	"starquiz-service/internal/domain"
	"starquiz-service/internal/infra/memory"
	pgstore "starquiz-service/internal/infra/postgres"
	rediscache "starquiz-service/internal/infra/redis"
	transport "starquiz-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		store    app.Store
		resolver app.QuestionResolver
		content  transport.ContentStore
		admins   transport.AdminChecker
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := pgstore.NewStore(db)
		store = pg
		content = pg
		admins = pg
		loader := pgstore.NewAnswerKeyLoader(pool)
		if redisClient != nil {
			resolver = rediscache.NewAnswerKeyCache(redisClient, loader, cacheTTL)
		} else {
			resolver = loader
		}
		logger.Info("using postgres store", zap.Bool("redis_cache", redisClient != nil))
	} else {
		mem := seedSampleStore()
		store = mem
		resolver = mem
		content = mem
		admins = mem
		logger.Info("using in-memory store with sample content")
	}

	auth := transport.NewAuthenticator(cfg.Auth.Secret)
	attempts := app.NewAttemptService(store, resolver, logger)
	economy := app.NewEconomyService(store, logger)
	handler := transport.NewHandler(attempts, economy, content, admins, auth, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	refillCtx, cancelRefill := context.WithCancel(ctx)
	defer cancelRefill()
	refillInterval := config.TTLDuration(cfg.Refill.Interval, app.DefaultRefillInterval)
	refillTarget := cfg.Refill.Target
	if refillTarget <= 0 {
		refillTarget = app.DefaultRefillTarget
	}
	go economy.RunRefillLoop(refillCtx, refillInterval, refillTarget)

	go func() {
		logger.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleStore builds an in-memory store with a demo user and a small
// content set so the service is usable without postgres.
func seedSampleStore() *memory.Store {
	mem := memory.NewStore()
	mem.AddUser("demo", 10, 5, false)
	mem.AddUser("admin", 10, 5, true)

	ctx := context.Background()
	subjectID, _ := mem.AddSubject(ctx, "Mathematics")
	quizID, _ := mem.AddQuiz(ctx, subjectID, "Arithmetic Basics", 10)
	_, _ = mem.AddQuestion(ctx, domain.QuestionInput{
		QuizID:             quizID,
		Text:               "What is 2 + 2?",
		Type:               "mcq",
		Options:            []string{"3", "4", "5"},
		CorrectOptionIndex: 1,
		StarsReward:        1,
	})
	_, _ = mem.AddQuestion(ctx, domain.QuestionInput{
		QuizID:             quizID,
		Text:               "7 is a prime number.",
		Type:               "ts",
		Options:            []string{"True", "False"},
		CorrectOptionIndex: 0,
		StarsReward:        1,
	})
	return mem
}
