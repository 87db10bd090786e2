// Package session обрабатывает выдачу токена сессии мини-приложения.
package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/jwt"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
)

// Request представляет запрос на создание сессии.
type Request struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	Username   string `json:"username"`
}

// Handler обрабатывает запросы на создание сессии.
type Handler struct {
	log      *slog.Logger
	maker    jwt.Maker
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, maker jwt.Maker) *Handler {
	return &Handler{
		log:      log,
		maker:    maker,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать сессию
// @Description Выдает JWT токен сессии по telegram id пользователя
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя Telegram"
// @Success 200 {object} response.Response "Токен сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка генерации токена"
// @Router /auth/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.session"
	log := h.log.With(slog.String("op", op))

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

	token, err := h.maker.GenerateToken(req.TelegramID, req.Username)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("session created", slog.Int64("telegram_id", req.TelegramID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"token": token,
	}))
}
