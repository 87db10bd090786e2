// Package next продвигает машину вывода реферального баланса на шаг вперёд.
package next

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
	"github.com/glebknyazev/vpn-miniapp/internal/services/withdrawal"
)

// AccountProvider возвращает снимок аккаунта с бэкенда.
type AccountProvider interface {
	GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error)
}

// Service определяет используемый метод машины вывода средств.
type Service interface {
	Next(ctx context.Context, account *models.Account, input withdrawal.Input) (models.WithdrawState, error)
}

// Handler обрабатывает запросы на продвижение машины вывода.
type Handler struct {
	log      *slog.Logger
	accounts AccountProvider
	service  Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts AccountProvider, service Service) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
		service:  service,
	}
}

// ServeHTTP godoc
// @Summary Следующий шаг вывода средств
// @Description Продвигает машину вывода на шаг вперёд, валидируя данные текущего шага
// @Tags Withdrawal
// @Accept  json
// @Produce  json
// @Param request body withdrawal.Input true "Данные текущего шага"
// @Success 200 {object} response.Response "Новое состояние машины"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации шага"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /withdrawal/next [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.withdrawal.next"
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

	var input withdrawal.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	account, err := h.accounts.GetUserInfo(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to get user info", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	state, err := h.service.Next(r.Context(), account, input)
	if err != nil {
		var vErr *withdrawal.ValidationError
		if errors.As(err, &vErr) {
			log.Info("withdrawal step rejected", slog.String("reason", vErr.Msg))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(vErr.Msg))
			return
		}
		log.Error("failed to advance withdrawal", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("withdrawal advanced", slog.Int("step", state.Step))
	render.JSON(w, r, response.StatusOKWithData(state))
}
