//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"fmt"
	"log/slog"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// LocalBackend заглушка без OpenCV: веса ищутся, но модель не загружается.
type LocalBackend struct {
	cfg    LocalConfig
	logger *slog.Logger
}

func NewLocalBackend(cfg LocalConfig, logger *slog.Logger) *LocalBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBackend{cfg: cfg, logger: logger}
}

// Classify возвращает ошибку, если сборка без тега gocv.
func (b *LocalBackend) Classify(_ context.Context, _ *entity.NormalizedImage) (*entity.RawResponse, error) {
	path, err := ResolveWeights(b.cfg.WeightsPath, b.cfg.WeightsGlob)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s: gocv build tag is not enabled", entity.ErrModelLoad, path)
}

func (b *LocalBackend) Close() error {
	return nil
}

var _ port.InferenceBackend = (*LocalBackend)(nil)
