package roboflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

type workflowRequest struct {
	APIKey string         `json:"api_key"`
	Inputs workflowInputs `json:"inputs"`
}

type workflowInputs struct {
	Image workflowImage `json:"image"`
}

type workflowImage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// WorkflowBackend вызывает serverless workflow Roboflow.
type WorkflowBackend struct {
	cfg    Config
	client *client
}

func NewWorkflowBackend(cfg Config, logger *slog.Logger) *WorkflowBackend {
	cfg = cfg.withDefaults()
	return &WorkflowBackend{cfg: cfg, client: newClient(cfg.Timeout, logger)}
}

func (b *WorkflowBackend) Kind() entity.BackendKind {
	return entity.BackendRoboflowWorkflow
}

func (b *WorkflowBackend) endpoint() string {
	return fmt.Sprintf("%s/%s/workflows/%s", b.cfg.APIURL, url.PathEscape(b.cfg.Workspace), url.PathEscape(b.cfg.WorkflowID))
}

// Classify отправляет JPEG в base64 и возвращает ответ с конвертом outputs.
func (b *WorkflowBackend) Classify(ctx context.Context, img *entity.NormalizedImage) (*entity.RawResponse, error) {
	payload, err := json.Marshal(workflowRequest{
		APIKey: b.cfg.APIKey,
		Inputs: workflowInputs{Image: workflowImage{
			Type:  "base64",
			Value: base64.StdEncoding.EncodeToString(img.Data),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := b.client.send(req, b.Kind())
	if err != nil {
		return nil, err
	}
	if err := validate(workflowSchema, body); err != nil {
		return nil, err
	}

	return &entity.RawResponse{
		Backend: b.Kind(),
		Scale:   entity.ScaleFraction,
		Body:    body,
	}, nil
}

func (b *WorkflowBackend) Probe(ctx context.Context) error {
	return b.client.ping(ctx, b.cfg.APIURL)
}

func (b *WorkflowBackend) Info() entity.BackendInfo {
	return entity.BackendInfo{Kind: b.Kind(), Target: b.cfg.Workspace + "/" + b.cfg.WorkflowID}
}

var _ port.InferenceBackend = (*WorkflowBackend)(nil)
