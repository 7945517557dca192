package vision

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ecotachos/internal/domain/entity"
)

const (
	DefaultWeightsGlob = "runs/classify/*/weights/best.onnx"
	labelsFile         = "labels.txt"
)

// DefaultClassNames порядок классов, в котором обучалась модель тачо.
var DefaultClassNames = []string{"inorganico", "organico", "reciclable"}

// ResolveWeights ищет файл весов: явный путь, иначе самый свежий по mtime файл по шаблону.
func ResolveWeights(explicit, pattern string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", entity.ErrWeightsNotFound, explicit)
		}
		return explicit, nil
	}

	if pattern == "" {
		pattern = DefaultWeightsGlob
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("%w: bad pattern %q: %v", entity.ErrWeightsNotFound, pattern, err)
	}

	var (
		newest  string
		newestT int64
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if t := info.ModTime().UnixNano(); newest == "" || t > newestT {
			newest, newestT = m, t
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no match for %s", entity.ErrWeightsNotFound, pattern)
	}
	return newest, nil
}

// LoadClassNames возвращает имена классов модели.
// Приоритет: явный список, labels.txt рядом с весами или уровнем выше, список по умолчанию.
func LoadClassNames(configured []string, weightsPath string) []string {
	if names := cleanNames(configured); len(names) > 0 {
		return names
	}

	dir := filepath.Dir(weightsPath)
	for _, candidate := range []string{filepath.Join(dir, labelsFile), filepath.Join(filepath.Dir(dir), labelsFile)} {
		if names, err := readLabels(candidate); err == nil && len(names) > 0 {
			return names
		}
	}
	return append([]string(nil), DefaultClassNames...)
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		names = append(names, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cleanNames(names), nil
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
