package vision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ecotachos/internal/domain/entity"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestResolveWeights_NewestMatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	older := filepath.Join(dir, "runs/classify/train/weights/best.onnx")
	newer := filepath.Join(dir, "runs/classify/train2/weights/best.onnx")
	writeFile(t, older, "old", now.Add(-time.Hour))
	writeFile(t, newer, "new", now)

	got, err := ResolveWeights("", filepath.Join(dir, "runs/classify/*/weights/best.onnx"))
	require.NoError(t, err)
	require.Equal(t, newer, got)
}

func TestResolveWeights_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.onnx")
	writeFile(t, path, "x", time.Now())

	got, err := ResolveWeights(path, "ignored/*")
	require.NoError(t, err)
	require.Equal(t, path, got)

	_, err = ResolveWeights(filepath.Join(dir, "missing.onnx"), "")
	require.ErrorIs(t, err, entity.ErrWeightsNotFound)
}

func TestResolveWeights_NoMatch(t *testing.T) {
	_, err := ResolveWeights("", filepath.Join(t.TempDir(), "*.onnx"))
	require.ErrorIs(t, err, entity.ErrWeightsNotFound)
}

func TestLoadClassNames(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "train", "weights", "best.onnx")
	writeFile(t, weights, "x", time.Now())

	require.Equal(t, DefaultClassNames, LoadClassNames(nil, weights))
	require.Equal(t, []string{"a", "b"}, LoadClassNames([]string{" a ", "", "b"}, weights))

	writeFile(t, filepath.Join(dir, "train", labelsFile), "organico\nreciclable\n\n", time.Now())
	require.Equal(t, []string{"organico", "reciclable"}, LoadClassNames(nil, weights))

	writeFile(t, filepath.Join(dir, "train", "weights", labelsFile), "x\ny\nz\n", time.Now())
	require.Equal(t, []string{"x", "y", "z"}, LoadClassNames(nil, weights))
}

func TestTopScores(t *testing.T) {
	classes := []string{"inorganico", "organico", "reciclable"}

	probs := topScores([]float32{0.1, 0.7, 0.2}, classes, 5)
	require.Len(t, probs, 3)
	require.Equal(t, "organico", probs[0].Label)
	require.InDelta(t, 0.7, probs[0].Score, 1e-6)
	require.Equal(t, "reciclable", probs[1].Label)

	// Логиты переводятся в вероятности
	logits := topScores([]float32{2, 0, -1, 5, 1, 3}, classes, 5)
	require.Len(t, logits, 5)
	require.Equal(t, "class_3", logits[0].Label)
	var sum float64
	for _, ls := range topScores([]float32{2, 0, -1}, classes, 5) {
		sum += ls.Score
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}
