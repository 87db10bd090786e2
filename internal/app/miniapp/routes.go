// Package miniapp предоставляет маршруты HTTP-сервиса мини-приложения.
package miniapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/config"
	"github.com/glebknyazev/vpn-miniapp/internal/http/handlers/auth/session"
	deviceslist "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/devices/list"
	devicesremove "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/devices/remove"
	handofflink "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/handoff/link"
	"github.com/glebknyazev/vpn-miniapp/internal/http/handlers/health"
	purchaseattempt "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/purchase/attempt"
	purchasecancel "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/purchase/cancel"
	purchaseresume "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/purchase/resume"
	"github.com/glebknyazev/vpn-miniapp/internal/http/handlers/redirect"
	topupcreate "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/topup/create"
	userinfo "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/user/info"
	withdrawalback "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/withdrawal/back"
	withdrawalnext "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/withdrawal/next"
	withdrawalreset "github.com/glebknyazev/vpn-miniapp/internal/http/handlers/withdrawal/reset"
	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/jwt"
	"github.com/glebknyazev/vpn-miniapp/internal/services/devices"
	"github.com/glebknyazev/vpn-miniapp/internal/services/handoff"
	"github.com/glebknyazev/vpn-miniapp/internal/services/purchase"
	"github.com/glebknyazev/vpn-miniapp/internal/services/withdrawal"
	"github.com/glebknyazev/vpn-miniapp/internal/storage"
)

// Deps — зависимости маршрутов приложения.
type Deps struct {
	Config     *config.Config
	JWTMaker   jwt.Maker
	Backend    *backend.Client
	Storage    *storage.Storage
	Purchase   *purchase.Service
	Withdrawal *withdrawal.Service
	Devices    *devices.Service
	Encoder    *handoff.Encoder
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps *Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/session", session.New(logger, deps.JWTMaker).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.JWTMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/user/info", userinfo.New(logger, deps.Backend, deps.Storage).ServeHTTP)
			r.Post("/purchase/attempt", purchaseattempt.New(logger, deps.Backend, deps.Purchase).ServeHTTP)
			r.Post("/purchase/resume", purchaseresume.New(logger, deps.Purchase).ServeHTTP)
			r.Post("/purchase/cancel", purchasecancel.New(logger, deps.Purchase).ServeHTTP)
			r.Post("/topup/create", topupcreate.New(logger, deps.Backend).ServeHTTP)
			r.Post("/withdrawal/next", withdrawalnext.New(logger, deps.Backend, deps.Withdrawal).ServeHTTP)
			r.Post("/withdrawal/back", withdrawalback.New(logger, deps.Withdrawal).ServeHTTP)
			r.Post("/withdrawal/reset", withdrawalreset.New(logger, deps.Withdrawal).ServeHTTP)
			r.Get("/devices", deviceslist.New(logger, deps.Devices).ServeHTTP)
			r.Delete("/devices/{id}", devicesremove.New(logger, deps.Devices).ServeHTTP)
			r.Get("/handoff/link", handofflink.New(logger, deps.Devices, deps.Encoder, deps.Config.Handoff).ServeHTTP)
		})
	})

	r.Get("/redirect", redirect.New(logger).ServeHTTP)
	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
