// Package info возвращает сводку аккаунта: снимок с бэкенда, каталоги
// тарифов и способов оплаты, историю операций.
package info

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

const historyLimit = 50

// AccountProvider возвращает снимок аккаунта с бэкенда.
type AccountProvider interface {
	GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error)
}

// Ledger читает историю операций пользователя.
type Ledger interface {
	ListLedgerEntries(ctx context.Context, telegramID int64, limit int) ([]models.LedgerEntry, error)
}

// Handler обрабатывает запросы сводки аккаунта.
type Handler struct {
	log      *slog.Logger
	accounts AccountProvider
	ledger   Ledger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts AccountProvider, ledger Ledger) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
		ledger:   ledger,
	}
}

// ServeHTTP godoc
// @Summary Сводка аккаунта
// @Description Возвращает снимок аккаунта, каталоги тарифов и способов оплаты, историю операций
// @Tags User
// @Produce  json
// @Success 200 {object} response.Response "Сводка аккаунта"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /user/info [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.info"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	telegramID, ok := middlewarectx.TelegramIDFromContext(r.Context())
	if !ok {
		log.Error("telegram id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	account, err := h.accounts.GetUserInfo(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to get user info", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	history, err := h.ledger.ListLedgerEntries(r.Context(), telegramID, historyLimit)
	if err != nil {
		log.Error("failed to list ledger entries", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"account":         account,
		"plans":           models.VPNPlans(account.TrialUsed),
		"payment_methods": models.PaymentMethods(),
		"preset_amounts":  models.PresetAmounts,
		"history":         history,
	}))
}
