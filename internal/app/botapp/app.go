package botapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/config"
	"github.com/tikhomirovv/tg-moderator-ai/internal/infra/httpclient"
	tginfra "github.com/tikhomirovv/tg-moderator-ai/internal/infra/telegram"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	redrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/redis"
	auditsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/audit"
	escalationsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/escalation"
	historysvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/history"
	judgesvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/judge"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	dispatcher *Dispatcher
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	botRepo := pgrepo.NewBotRepo(pool)
	ruleRepo := pgrepo.NewRuleRepo(pool)
	userContextRepo := pgrepo.NewUserContextRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	actionRepo := pgrepo.NewActionRepo(pool)
	statsRepo := pgrepo.NewStatsRepo(pool)
	cacheRepo := redrepo.NewHistoryRepo(redisClient, cfg.Moderation.HistoryWindow, cfg.Moderation.HistoryTTL)

	judgeClient, err := judgesvc.NewClient(judgesvc.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init judge client: %w", err)
	}

	historyService := historysvc.NewService(userContextRepo, messageRepo, cacheRepo, log)
	gateway := tginfra.NewGateway(httpclient.New(0), log)
	escalationService := escalationsvc.NewService(
		ruleRepo,
		historyService,
		actionRepo,
		statsRepo,
		judgeClient,
		gateway,
		escalationsvc.Config{JudgeTimeout: cfg.Moderation.JudgeTimeout},
		log,
	)
	auditService := auditsvc.NewService(actionRepo, statsRepo)

	dispatcher := NewDispatcher(escalationService, DispatcherConfig{
		Workers:   cfg.Moderation.Workers,
		QueueSize: cfg.Moderation.QueueSize,
	}, log)

	RegisterRoutes(r, Dependencies{
		Bots:       botRepo,
		BotList:    botRepo,
		Rules:      ruleRepo,
		Contexts:   userContextRepo,
		Dispatcher: dispatcher,
		Audit:      auditService,
		Logger:     log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		dispatcher: dispatcher,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.dispatcher.Start(ctx)
	a.logger.Info("moderation server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	// In-flight events finish before the stores go away.
	a.dispatcher.Wait()

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
