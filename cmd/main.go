package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/internal/command"
	"github.com/kpressOrg/user-service/internal/config"
	"github.com/kpressOrg/user-service/internal/handler"
	"github.com/kpressOrg/user-service/internal/metrics"
	"github.com/kpressOrg/user-service/internal/query"
	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/internal/startup"
	"github.com/kpressOrg/user-service/shared/events"
	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/token"
	"github.com/kpressOrg/user-service/shared/utils"
	_ "github.com/lib/pq"
)

const serviceName = "user-service"

func main() {
	cfg, cfgErr := config.Load()

	logger := logging.New(logging.Config{
		Service: serviceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if cfgErr != nil {
		logger.Error("invalid configuration", "error", cfgErr)
		os.Exit(1)
	}
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := startup.New(startup.Config{
		Addr:                cfg.Addr(),
		Queue:               cfg.NotificationQueue,
		DBRetry:             startup.RetryPolicy{Attempts: cfg.DBConnectAttempts, Delay: cfg.DBRetryDelay},
		DBAttemptTimeout:    cfg.DBAttemptTimeout,
		BrokerTimeout:       cfg.BrokerConnectTimeout,
		ShutdownGracePeriod: cfg.ShutdownGracePeriod,
	},
		startup.SQLConnector("postgres", cfg.DatabaseURL, repository.EnsureSchema),
		startup.BrokerDialer(cfg.BrokerURL),
		logger,
	)

	go func() {
		select {
		case <-orchestrator.Ready():
			logger.Info("user service listening", "url", cfg.PublicURL(), "addr", orchestrator.Addr())
		case <-ctx.Done():
		}
	}()

	err := orchestrator.Run(ctx, func(deps *startup.Dependencies) http.Handler {
		repo := repository.NewUserRepository(deps.DB)
		hasher := utils.PasswordHasher{Cost: utils.PasswordCost}
		issuer := token.NewIssuer(cfg.JWTSecret, token.DefaultTTL)
		recorder := metrics.New()

		commandSvc := command.NewUserCommandService(repo, hasher)
		commandSvc.OnUserCreated(events.UserCreatedNotifier(deps.Publisher, cfg.NotificationQueue))
		orchestrator.OnShutdown(commandSvc.Wait)

		authQuerySvc := query.NewAuthQueryService(repo, hasher, issuer)
		userQuerySvc := query.NewUserQueryService(repo)

		return handler.NewRouter(
			handler.NewAuthHandler(commandSvc, authQuerySvc, recorder),
			handler.NewUserHandler(commandSvc, userQuerySvc, recorder),
			handler.RouterConfig{
				Logger:         logger,
				RequestTimeout: cfg.RequestTimeout,
				RateLimit:      cfg.RateLimit,
				CORSOrigins:    cfg.CORSOrigins,
				Verifier:       issuer,
				Checks: map[string]handler.HealthChecker{
					"database": repo,
					"broker":   deps.Publisher,
				},
				Metrics: recorder.Handler(),
			},
		)
	})
	if err != nil {
		logger.Error("failed to start the server", "error", err)
		os.Exit(1)
	}
	logger.Info("user service stopped")
}
