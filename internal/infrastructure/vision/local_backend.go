//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// LocalBackend классификатор на OpenCV DNN. Модель грузится при первом запросе.
type LocalBackend struct {
	cfg    LocalConfig
	logger *slog.Logger

	mu      sync.Mutex
	net     *gocv.Net
	classes []string
	path    string
}

func NewLocalBackend(cfg LocalConfig, logger *slog.Logger) *LocalBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBackend{cfg: cfg, logger: logger}
}

// Classify возвращает top-5 классов в долях единицы.
func (b *LocalBackend) Classify(ctx context.Context, img *entity.NormalizedImage) (*entity.RawResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrImageDecode, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: failed to decode image", entity.ErrImageDecode)
	}

	size := b.cfg.inputSize()
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, true)
	defer blob.Close()

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", entity.ErrModelLoad, err)
	}

	return &entity.RawResponse{
		Backend: entity.BackendLocal,
		Scale:   entity.ScaleFraction,
		TopK:    topScores(raw, b.classes, localTopK),
	}, nil
}

// load читает веса один раз. Вызывать под b.mu.
func (b *LocalBackend) load() error {
	if b.net != nil {
		return nil
	}

	path, err := ResolveWeights(b.cfg.WeightsPath, b.cfg.WeightsGlob)
	if err != nil {
		return err
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		net.Close()
		return fmt.Errorf("%w: cannot read %s", entity.ErrModelLoad, path)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("%w: %v", entity.ErrModelLoad, err)
	}

	b.net = &net
	b.path = path
	b.classes = LoadClassNames(b.cfg.ClassNames, path)
	b.logger.Info("local_model.loaded", "weights", path, "classes", b.classes, "input_size", b.cfg.inputSize())
	return nil
}

// Close освобождает сеть.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.net != nil {
		err := b.net.Close()
		b.net = nil
		return err
	}
	return nil
}

var _ port.InferenceBackend = (*LocalBackend)(nil)
