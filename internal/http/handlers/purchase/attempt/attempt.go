// Package attempt обрабатывает попытку покупки VPN-плана или whitelist-обхода.
package attempt

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
	"github.com/glebknyazev/vpn-miniapp/internal/services/purchase"
)

// Request представляет запрос на покупку.
type Request struct {
	Kind            string `json:"kind" validate:"required,oneof=vpn whitelist"`
	PlanID          string `json:"plan_id,omitempty"`
	GB              int    `json:"gb,omitempty"`
	UseAutoPay      bool   `json:"use_auto_pay,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// AccountProvider возвращает снимок аккаунта с бэкенда.
type AccountProvider interface {
	GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error)
}

// Service определяет используемый метод оркестратора покупок.
type Service interface {
	AttemptPurchase(ctx context.Context, account *models.Account, action models.PendingAction) (purchase.Outcome, error)
}

// Handler обрабатывает запросы на покупку.
type Handler struct {
	log      *slog.Logger
	accounts AccountProvider
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts AccountProvider, service Service) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Попытка покупки
// @Description Выполняет покупку VPN-плана или whitelist-обхода; при нехватке средств откладывает покупку и возвращает дефицит
// @Tags Purchase
// @Accept  json
// @Produce  json
// @Param request body Request true "Параметры покупки"
// @Success 200 {object} response.Response "Исход покупки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный план"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchase/attempt [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.attempt"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	account, err := h.accounts.GetUserInfo(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to get user info", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	var action models.PendingAction
	switch req.Kind {
	case "vpn":
		plan, found := models.FindPlan(models.VPNPlans(account.TrialUsed), req.PlanID)
		if !found {
			log.Error("unknown plan", slog.String("plan_id", req.PlanID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
			return
		}
		action = purchase.NewVPNIntent(plan, req.UseAutoPay, req.PaymentMethodID)
	case "whitelist":
		if req.GB <= 0 {
			log.Error("invalid whitelist volume", slog.Int("gb", req.GB))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid whitelist volume"))
			return
		}
		action = purchase.NewWhitelistIntent(req.GB, req.UseAutoPay, req.PaymentMethodID)
	}

	outcome, err := h.service.AttemptPurchase(r.Context(), account, action)
	if err != nil {
		log.Error("failed to attempt purchase", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("purchase attempted", slog.String("status", string(outcome.Status)))
	render.JSON(w, r, response.StatusOKWithData(outcome))
}
