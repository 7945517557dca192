package entity

import "time"

// Detection сохранённый результат классификации для тачо.
// Физически не удаляется, только помечается неактивной.
type Detection struct {
	ID          int64       `json:"id"`
	BinCode     string      `json:"tacho"`
	Category    Category    `json:"clasificacion"`
	Confidence  float64     `json:"confianza_ia"`
	Latitude    float64     `json:"ubicacion_lat"`
	Longitude   float64     `json:"ubicacion_lon"`
	Backend     BackendKind `json:"backend"`
	Description string      `json:"descripcion,omitempty"`
	Processed   bool        `json:"procesado"`
	Active      bool        `json:"activo"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DetectionFilter параметры выборки детекций
type DetectionFilter struct {
	BinCode string
	Limit   int
}
