// Package handoff превращает выданный бэкендом URL подписки в зашифрованную
// deep-link для клиентского приложения. Стратегии две, независимые:
// сначала внешний сервис шифрования, при любой его неудаче — локальное
// RSA-OAEP шифрование на вшитом публичном ключе. Если не сработали обе,
// вызывающая сторона деградирует до ручного копирования исходной ссылки —
// активация устройства на ошибке шифрования не блокируется.
package handoff

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/glebknyazev/vpn-miniapp/internal/config"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
)

// ErrEncodingFailed возвращается, когда не сработали обе стратегии.
var ErrEncodingFailed = errors.New("both remote and local credential encoding failed")

// Максимальный размер блока для RSA-OAEP/SHA-256 на 4096-битном ключе.
const maxChunkSize = 446

// Публичный ключ RSA-4096 для локального шифрования.
const publicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIICIjANBgkqhkiG9w0BAQEFAAOCAg8AMIICCgKCAgEAlBetA0wjbaj+h7oJ/d/h
pNrXvAcuhOdFGEFcfCxSWyLzWk4SAQ05gtaEGZyetTax2uqagi9HT6lapUSUe2S8
nMLJf5K+LEs9TYrhhBdx/B0BGahA+lPJa7nUwp7WfUmSF4hir+xka5ApHjzkAQn6
cdG6FKtSPgq1rYRPd1jRf2maEHwiP/e/jqdXLPP0SFBjWTMt/joUDgE7v/IGGB0L
Q7mGPAlgmxwUHVqP4bJnZ//5sNLxWMjtYHOYjaV+lixNSfhFM3MdBndjpkmgSfmg
D5uYQYDL29TDk6Eu+xetUEqry8ySPjUbNWdDXCglQWMxDGjaqYXMWgxBA1UKjUBW
wbgr5yKTJ7mTqhlYEC9D5V/LOnKd6pTSvaMxkHXwk8hBWvUNWAxzAf5JZ7EVE3jt
0j682+/hnmL/hymUE44yMG1gCcWvSpB3BTlKoMnl4yrTakmdkbASeFRkN3iMRewa
IenvMhzJh1fq7xwX94otdd5eLB2vRFavrnhOcN2JJAkKTnx9dwQwFpGEkg+8U613
+Tfm/f82l56fFeoFN98dD2mUFLFZoeJ5CG81ZeXrH83niI0joX7rtoAZIPWzq3Y1
Zb/Zq+kK2hSIhphY172Uvs8X2Qp2ac9UoTPM71tURsA9IvPNvUwSIo/aKlX5KE3I
VE0tje7twWXL5Gb1sfcXRzsCAwEAAQ==
-----END PUBLIC KEY-----`

// Encoder шифрует ссылки подписки для передачи в клиентское приложение.
type Encoder struct {
	remoteURL    string
	schemePrefix string
	httpClient   *http.Client
	publicKey    *rsa.PublicKey
	log          *slog.Logger
}

// New создаёт Encoder, разбирая вшитый публичный ключ.
func New(cfg config.Handoff, log *slog.Logger) (*Encoder, error) {
	const op = "handoff.New"

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%s: failed to decode public key pem", op)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: public key is not RSA", op)
	}

	return &Encoder{
		remoteURL:    cfg.RemoteEncodeURL,
		schemePrefix: cfg.SchemePrefix,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		publicKey:    rsaKey,
		log:          log,
	}, nil
}

// EncodedLink возвращает зашифрованную deep-link для ссылки подписки.
// Сначала пробуется внешний сервис; при ошибке сети, не-2xx статусе или
// непригодном теле ответа выполняется локальное шифрование. Частичная
// или битая ссылка никогда не возвращается: либо валидный результат
// одной из стратегий, либо ErrEncodingFailed.
func (e *Encoder) EncodedLink(ctx context.Context, subscriptionURL string) (string, error) {
	const op = "handoff.EncodedLink"
	log := e.log.With(slog.String("op", op))

	link, err := e.remoteEncode(ctx, subscriptionURL)
	if err == nil {
		return link, nil
	}
	log.Warn("remote encoding failed, trying local RSA", sl.Err(err))

	link, err = e.localEncode(subscriptionURL)
	if err != nil {
		log.Error("local RSA encoding failed", sl.Err(err))
		return "", ErrEncodingFailed
	}
	return link, nil
}

func (e *Encoder) remoteEncode(ctx context.Context, subscriptionURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": subscriptionURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.remoteURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var data struct {
		Link string `json:"link"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.Link != "" {
		return data.Link, nil
	}
	if data.URL != "" {
		return data.URL, nil
	}
	return "", errors.New("response has neither link nor url")
}

// localEncode шифрует ссылку по блокам RSA-OAEP/SHA-256, склеивает
// шифроблоки в исходном порядке и кодирует URL-safe base64 без паддинга.
func (e *Encoder) localEncode(subscriptionURL string) (string, error) {
	data := []byte(subscriptionURL)

	var combined []byte
	for i := 0; i < len(data); i += maxChunkSize {
		end := i + maxChunkSize
		if end > len(data) {
			end = len(data)
		}
		encrypted, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.publicKey, data[i:end], nil)
		if err != nil {
			return "", err
		}
		combined = append(combined, encrypted...)
	}

	return e.schemePrefix + base64.RawURLEncoding.EncodeToString(combined), nil
}

// RedirectURL собирает ссылку на промежуточную страницу того же origin'а:
// хост-платформа не даёт открывать не-HTTPS кастомные схемы напрямую.
// Страница получает и зашифрованную, и исходную ссылку, чтобы открыть
// схему или предложить ручное копирование.
func RedirectURL(origin, redirectPath, encodedLink, originalURL string) string {
	q := url.Values{
		"redirect": {encodedLink},
		"original": {originalURL},
	}
	return origin + redirectPath + "?" + q.Encode()
}
