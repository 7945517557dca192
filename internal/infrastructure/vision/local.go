package vision

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ecotachos/internal/domain/entity"
)

const (
	DefaultInputSize = 224
	localTopK        = 5
)

// LocalConfig настройки локальной ONNX-модели
type LocalConfig struct {
	WeightsPath string
	WeightsGlob string
	ClassNames  []string
	InputSize   int
}

func (c LocalConfig) inputSize() int {
	if c.InputSize <= 0 {
		return DefaultInputSize
	}
	return c.InputSize
}

func (b *LocalBackend) Kind() entity.BackendKind {
	return entity.BackendLocal
}

// Info показывает найденные веса или шаблон поиска.
func (b *LocalBackend) Info() entity.BackendInfo {
	target := b.cfg.WeightsPath
	if target == "" {
		target = b.cfg.WeightsGlob
		if target == "" {
			target = DefaultWeightsGlob
		}
	}
	if path, err := ResolveWeights(b.cfg.WeightsPath, b.cfg.WeightsGlob); err == nil {
		target = path
	}
	return entity.BackendInfo{Kind: entity.BackendLocal, Target: target}
}

// Probe проверяет только наличие весов, модель не загружается.
func (b *LocalBackend) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := ResolveWeights(b.cfg.WeightsPath, b.cfg.WeightsGlob)
	return err
}

// topScores сортирует выход модели и берёт первые k классов.
// Если выход не похож на вероятности, применяется softmax.
func topScores(raw []float32, classes []string, k int) []entity.LabelScore {
	scores := make([]float64, len(raw))
	for i, v := range raw {
		scores[i] = float64(v)
	}
	if !isDistribution(scores) {
		scores = softmax(scores)
	}

	out := make([]entity.LabelScore, 0, len(scores))
	for i, s := range scores {
		out = append(out, entity.LabelScore{Label: className(classes, i), Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func className(classes []string, i int) string {
	if i < len(classes) {
		return classes[i]
	}
	return fmt.Sprintf("class_%d", i)
}

func isDistribution(scores []float64) bool {
	var sum float64
	for _, s := range scores {
		if s < 0 || s > 1 {
			return false
		}
		sum += s
	}
	return math.Abs(sum-1) < 1e-3
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	maxV := scores[0]
	for _, s := range scores[1:] {
		maxV = math.Max(maxV, s)
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
