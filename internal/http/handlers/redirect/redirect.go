// Package redirect отдаёт промежуточную HTML-страницу, открывающую
// кастомную схему приложения. Хост-платформа не даёт открывать не-HTTPS
// схемы напрямую, поэтому страница пробует открыть deep-link сама и
// показывает исходную ссылку для ручного копирования как запасной вариант.
package redirect

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
)

var page = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Подключение VPN</title>
<style>
body{font-family:-apple-system,sans-serif;background:#0f1115;color:#e8e8e8;
display:flex;flex-direction:column;align-items:center;justify-content:center;
min-height:100vh;margin:0;padding:24px;text-align:center}
a.btn{display:inline-block;margin-top:16px;padding:12px 24px;border-radius:12px;
background:#3b82f6;color:#fff;text-decoration:none}
code{display:block;margin-top:24px;padding:12px;background:#1a1d24;
border-radius:8px;word-break:break-all;font-size:12px}
</style>
</head>
<body>
<h2>Открываем приложение…</h2>
<p>Если приложение не открылось, нажмите кнопку или скопируйте ссылку вручную.</p>
{{if .Redirect}}<a class="btn" href="{{.Redirect}}">Открыть приложение</a>{{end}}
{{if .Original}}<code>{{.Original}}</code>{{end}}
{{if .Redirect}}
<iframe src="{{.Redirect}}" style="display:none"></iframe>
<script>setTimeout(function(){window.location.href={{.Redirect}};},300);</script>
{{end}}
</body>
</html>`))

// Handler отдаёт страницу перенаправления.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Страница перенаправления
// @Description Отдаёт HTML-страницу, открывающую deep-link приложения с запасным вариантом ручного копирования
// @Tags Handoff
// @Produce  html
// @Param redirect query string false "Зашифрованная deep-link"
// @Param original query string false "Исходная ссылка подписки"
// @Success 200 {string} string "HTML-страница"
// @Router /redirect [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.redirect"

	data := struct {
		Redirect string
		Original string
	}{
		Redirect: r.URL.Query().Get("redirect"),
		Original: r.URL.Query().Get("original"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		h.log.With(slog.String("op", op)).Error("failed to render redirect page", sl.Err(err))
	}
}
