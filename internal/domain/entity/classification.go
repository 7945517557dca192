package entity

import "math"

// MaxTopPredictions длина списка top_predicciones.
const MaxTopPredictions = 5

const (
	msgNoDetection     = "No se detectaron objetos en la imagen"
	msgUnknownCategory = "No se pudo identificar la categoría del objeto"
	resultKindClassify = "clasificacion"
)

// NoDetectionSuggestions подсказки пользователю, когда модель ничего не нашла.
var NoDetectionSuggestions = []string{
	"Asegúrate de que el objeto esté bien iluminado",
	"Intenta acercar más la cámara al objeto",
	"Verifica que el objeto esté en el centro de la imagen",
	"La imagen debe contener un residuo claramente visible",
}

// Prediction категория с уверенностью в процентах.
type Prediction struct {
	Category   Category `json:"categoria"`
	Confidence float64  `json:"confianza"`
}

// ClassificationResult итог классификации. После создания не меняется.
type ClassificationResult struct {
	Success      bool            `json:"success"`
	Primary      *Prediction     `json:"clasificacion_principal,omitempty"`
	CategoryInfo *CategoryInfo   `json:"category_info,omitempty"`
	TopK         []Prediction    `json:"top_predicciones,omitempty"`
	Kind         string          `json:"tipo,omitempty"`
	Backend      BackendKind     `json:"backend,omitempty"`
	Actuation    ActuationSignal `json:"parpadeos"`
	DetectionID  int64           `json:"deteccion_id,omitempty"`
	NoDetection  bool            `json:"no_detection,omitempty"`
	Message      string          `json:"message,omitempty"`
	Suggestions  []string        `json:"suggestions,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// NewSuccessResult собирает успешный результат. Сигнал считается по исходной категории,
// поэтому неканоническая метка отображается как inorganico, но тачо не мигает.
// В top попадают только канонические категории.
func NewSuccessResult(primary Prediction, top []Prediction, backend BackendKind, detectionID int64) *ClassificationResult {
	signal := BlinkCount(primary.Category)
	primary.Category = primary.Category.OrDefault()
	primary.Confidence = roundConfidence(primary.Confidence)

	topK := make([]Prediction, 0, min(len(top), MaxTopPredictions))
	for _, p := range top {
		if len(topK) == MaxTopPredictions {
			break
		}
		if !p.Category.IsCanonical() {
			continue
		}
		topK = append(topK, Prediction{Category: p.Category, Confidence: roundConfidence(p.Confidence)})
	}

	info := InfoFor(primary.Category)
	return &ClassificationResult{
		Success:      true,
		Primary:      &primary,
		CategoryInfo: &info,
		TopK:         topK,
		Kind:         resultKindClassify,
		Backend:      backend,
		Actuation:    signal,
		DetectionID:  detectionID,
	}
}

// NewNoDetectionResult результат «ничего не найдено», это не ошибка.
func NewNoDetectionResult(backend BackendKind) *ClassificationResult {
	return &ClassificationResult{
		NoDetection: true,
		Backend:     backend,
		Message:     msgNoDetection,
		Suggestions: append([]string(nil), NoDetectionSuggestions...),
	}
}

// NewUnknownCategoryResult лучшая гипотеза без метки.
func NewUnknownCategoryResult(backend BackendKind) *ClassificationResult {
	return &ClassificationResult{
		NoDetection: true,
		Backend:     backend,
		Message:     msgUnknownCategory,
	}
}

// NewErrorResult результат с ошибкой; Primary всегда пустой.
func NewErrorResult(backend BackendKind, reason string) *ClassificationResult {
	return &ClassificationResult{
		Backend: backend,
		Error:   reason,
	}
}

func roundConfidence(v float64) float64 {
	return math.Round(v*100) / 100
}
