package roboflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ecotachos/internal/domain/entity"
)

const (
	DefaultAPIURL      = "https://serverless.roboflow.com"
	DefaultModelAPIURL = "https://classify.roboflow.com"
	DefaultTimeout     = 30 * time.Second
	probeTimeout       = 5 * time.Second
	maxResponseBytes   = 8 << 20
	maxErrorBody       = 512
)

// Config настройки доступа к Roboflow
type Config struct {
	APIURL      string
	APIKey      string
	Workspace   string
	WorkflowID  string
	ModelAPIURL string
	ModelID     string // project/version
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ModelAPIURL == "" {
		c.ModelAPIURL = DefaultModelAPIURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// client общий HTTP-транспорт для workflow и model бэкендов.
type client struct {
	http   *http.Client
	logger *slog.Logger
}

func newClient(timeout time.Duration, logger *slog.Logger) *client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// send выполняет запрос и возвращает тело ответа со статусом 200.
func (c *client) send(req *http.Request, backend entity.BackendKind) ([]byte, error) {
	callID := uuid.NewString()
	log := c.logger.With("call_id", callID, "backend", backend)
	start := time.Now()

	req.Header.Set("X-Request-Id", callID)
	log.Info("roboflow.request", "url", redact(req))

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("roboflow.transport_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	// Лишний байт отличает ответ ровно на лимите от обрезанного
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		log.Error("roboflow.read_error", "error", err)
		return nil, transportError(err)
	}

	log.Info("roboflow.response", "status", resp.StatusCode, "bytes", len(body), "elapsed_ms", time.Since(start).Milliseconds())
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", entity.ErrBackendUnavailable, resp.StatusCode, truncate(body, maxErrorBody))
	}
	if len(body) > maxResponseBytes {
		log.Error("roboflow.response_too_large", "limit", maxResponseBytes)
		return nil, fmt.Errorf("%w: response too large (over %d bytes)", entity.ErrBackendMalformedResponse, maxResponseBytes)
	}
	return body, nil
}

// ping проверяет, что адрес отвечает 200 за probeTimeout.
func (c *client) ping(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", entity.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// transportError отличает таймаут от прочих сетевых ошибок.
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %v", entity.ErrBackendUnavailable, entity.ErrBackendTimeout, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
}

// redact убирает api_key из логируемого адреса.
func redact(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func truncate(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
