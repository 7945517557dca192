package roboflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// ModelBackend вызывает хостед-классификатор Roboflow (project/version).
type ModelBackend struct {
	cfg    Config
	client *client
}

func NewModelBackend(cfg Config, logger *slog.Logger) *ModelBackend {
	cfg = cfg.withDefaults()
	return &ModelBackend{cfg: cfg, client: newClient(cfg.Timeout, logger)}
}

func (b *ModelBackend) Kind() entity.BackendKind {
	return entity.BackendRoboflowModel
}

func (b *ModelBackend) endpoint() string {
	q := url.Values{}
	q.Set("api_key", b.cfg.APIKey)
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(b.cfg.ModelAPIURL, "/"), strings.Trim(b.cfg.ModelID, "/"), q.Encode())
}

// Classify отправляет JPEG файлом и заворачивает ответ в {"outputs":[...]},
// чтобы нормализатор разбирал оба бэкенда одинаково.
func (b *ModelBackend) Classify(ctx context.Context, img *entity.NormalizedImage) (*entity.RawResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := b.client.send(req, b.Kind())
	if err != nil {
		return nil, err
	}
	if err := validate(modelSchema, body); err != nil {
		return nil, err
	}

	wrapped, err := json.Marshal(map[string][]json.RawMessage{"outputs": {body}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBackendMalformedResponse, err)
	}

	return &entity.RawResponse{
		Backend: b.Kind(),
		Scale:   entity.ScaleFraction,
		Body:    wrapped,
	}, nil
}

func (b *ModelBackend) Probe(ctx context.Context) error {
	return b.client.ping(ctx, b.cfg.ModelAPIURL)
}

func (b *ModelBackend) Info() entity.BackendInfo {
	return entity.BackendInfo{Kind: b.Kind(), Target: b.cfg.ModelID}
}

var _ port.InferenceBackend = (*ModelBackend)(nil)
