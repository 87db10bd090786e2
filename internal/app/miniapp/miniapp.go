// Package miniapp собирает и запускает HTTP-сервис мини-приложения:
// хранилище, кеш, очередь заявок, клиент VPN-бэкенда и доменные сервисы.
package miniapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/cache"
	"github.com/glebknyazev/vpn-miniapp/internal/config"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/jwt"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/rabbitmq"
	"github.com/glebknyazev/vpn-miniapp/internal/migrations"
	"github.com/glebknyazev/vpn-miniapp/internal/services/devices"
	"github.com/glebknyazev/vpn-miniapp/internal/services/handoff"
	"github.com/glebknyazev/vpn-miniapp/internal/services/purchase"
	"github.com/glebknyazev/vpn-miniapp/internal/services/withdrawal"
	"github.com/glebknyazev/vpn-miniapp/internal/storage"
)

type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *storage.Storage
	rabbitConn *amqp.Connection
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	rabbitCh, err := rabbitmq.SetupChannel(rabbitConn)
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewTicketPublisher(rabbitCh)

	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)

	encoder, err := handoff.New(cfg.Handoff, logger)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	purchaseService := purchase.New(backendClient, purchase.NewPendingStore(cacheRedis), db, logger)
	withdrawalService := withdrawal.New(cacheRedis, backendClient, db, publisher, logger)
	devicesService := devices.New(backendClient, cacheRedis, db, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, &Deps{
		Config:     cfg,
		JWTMaker:   jwtMaker,
		Backend:    backendClient,
		Storage:    db,
		Purchase:   purchaseService,
		Withdrawal: withdrawalService,
		Devices:    devicesService,
		Encoder:    encoder,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.rabbitConn.Close(); cerr != nil {
			a.logger.Error("failed to close rabbitmq connection", slog.Any("err", cerr))
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close database", slog.Any("err", cerr))
		}
		return err
	}
}
