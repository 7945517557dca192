package entity

import "encoding/json"

// BackendKind тип бэкенда инференса
type BackendKind string

const (
	BackendRoboflowWorkflow BackendKind = "roboflow_workflow"
	BackendRoboflowModel    BackendKind = "roboflow_model"
	BackendLocal            BackendKind = "local"
)

// ConfidenceScale шкала, в которой бэкенд отдаёт уверенность.
type ConfidenceScale int

const (
	ScaleFraction ConfidenceScale = iota // 0..1
	ScalePercent                         // 0..100
)

// ToPercent переводит значение в проценты.
func (s ConfidenceScale) ToPercent(v float64) float64 {
	if s == ScaleFraction {
		return v * 100
	}
	return v
}

// LabelScore пара (метка, уверенность) локальной модели.
type LabelScore struct {
	Label string
	Score float64
}

// RawResponse ответ бэкенда до нормализации.
// Удалённые бэкенды заполняют Body ({"outputs": [...]}), локальный — TopK.
type RawResponse struct {
	Backend BackendKind
	Scale   ConfidenceScale
	Body    json.RawMessage
	TopK    []LabelScore
}

// RawPrediction одно предсказание после нормализации, Confidence в процентах.
type RawPrediction struct {
	Label      string
	Confidence float64
}

// BackendInfo описание сконфигурированного бэкенда.
type BackendInfo struct {
	Kind   BackendKind `json:"type"`
	Target string      `json:"target"`
}
