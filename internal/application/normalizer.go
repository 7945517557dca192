package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ecotachos/internal/domain/entity"
)

// Поля, в которых разные модели кладут метку и уверенность, в порядке приоритета.
var (
	labelKeys      = []string{"class", "predicted_class", "label", "class_name"}
	confidenceKeys = []string{"confidence", "score", "prob"}
)

type outputsEnvelope struct {
	Outputs []map[string]json.RawMessage `json:"outputs"`
}

// NormalizeResponse сводит ответ любого бэкенда к списку предсказаний,
// отсортированному по убыванию уверенности (в процентах).
// Пустой список означает «ничего не найдено» и ошибкой не является.
func NormalizeResponse(raw *entity.RawResponse) ([]entity.RawPrediction, error) {
	if raw == nil {
		return nil, nil
	}

	// Локальная модель уже отдаёт отсортированный top-K.
	if raw.TopK != nil {
		preds := make([]entity.RawPrediction, 0, len(raw.TopK))
		for _, ls := range raw.TopK {
			preds = append(preds, entity.RawPrediction{
				Label:      ls.Label,
				Confidence: raw.Scale.ToPercent(ls.Score),
			})
		}
		return preds, nil
	}

	if len(bytes.TrimSpace(raw.Body)) == 0 {
		return nil, nil
	}

	var env outputsEnvelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBackendMalformedResponse, err)
	}

	var items []map[string]any
	for _, out := range env.Outputs {
		if p, ok := out["predictions"]; ok {
			switch firstByte(p) {
			case '{':
				var nested struct {
					Predictions json.RawMessage `json:"predictions"`
				}
				if err := json.Unmarshal(p, &nested); err != nil {
					return nil, fmt.Errorf("%w: predictions: %v", entity.ErrBackendMalformedResponse, err)
				}
				items = appendObjects(items, nested.Predictions)
			case '[':
				items = appendObjects(items, p)
			}
		}
		if d, ok := out["detections"]; ok {
			items = appendObjects(items, d)
		}
		if top, ok := out["top"]; ok {
			items = appendObjects(items, top)
		}
	}

	preds := make([]entity.RawPrediction, 0, len(items))
	for _, item := range items {
		preds = append(preds, entity.RawPrediction{
			Label:      stringField(item, labelKeys),
			Confidence: raw.Scale.ToPercent(numberField(item, confidenceKeys)),
		})
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
	return preds, nil
}

// appendObjects добавляет элементы JSON-массива, которые являются объектами.
// Всё, что не массив объектов, пропускается.
func appendObjects(dst []map[string]any, raw json.RawMessage) []map[string]any {
	if firstByte(raw) != '[' {
		return dst
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return dst
	}
	for _, el := range list {
		if firstByte(el) != '{' {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(el, &obj); err != nil {
			continue
		}
		dst = append(dst, obj)
	}
	return dst
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func stringField(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// numberField берёт первое присутствующее поле; числа в строках тоже принимаются.
func numberField(obj map[string]any, keys []string) float64 {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
		return 0
	}
	return 0
}
