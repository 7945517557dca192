package entity

import (
	"fmt"
	"strings"
	"time"
)

// BinType тип тачо
type BinType string

const (
	BinPublic   BinType = "publico"
	BinPersonal BinType = "personal"
)

// BinStatus состояние тачо
type BinStatus string

const (
	BinStatusActive      BinStatus = "activo"
	BinStatusMaintenance BinStatus = "mantenimiento"
	BinStatusOutOfOrder  BinStatus = "fuera_servicio"
)

// Bin физический контейнер (тачо)
type Bin struct {
	ID          int64     `json:"id"`
	Code        string    `json:"codigo"`
	Name        string    `json:"nombre"`
	Type        BinType   `json:"tipo"`
	Latitude    float64   `json:"ubicacion_lat"`
	Longitude   float64   `json:"ubicacion_lon"`
	Description string    `json:"descripcion,omitempty"`
	Status      BinStatus `json:"estado"`
	FillLevel   int       `json:"nivel_llenado"`
	Active      bool      `json:"activo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate проверяет поля перед сохранением и проставляет значения по умолчанию.
func (b *Bin) Validate() error {
	b.Code = strings.TrimSpace(b.Code)
	if b.Code == "" {
		return fmt.Errorf("codigo is required")
	}
	if b.Type == "" {
		b.Type = BinPublic
	}
	if b.Type != BinPublic && b.Type != BinPersonal {
		return fmt.Errorf("invalid tipo %q", b.Type)
	}
	if b.Status == "" {
		b.Status = BinStatusActive
	}
	switch b.Status {
	case BinStatusActive, BinStatusMaintenance, BinStatusOutOfOrder:
	default:
		return fmt.Errorf("invalid estado %q", b.Status)
	}
	if b.Latitude < -90 || b.Latitude > 90 || b.Longitude < -180 || b.Longitude > 180 {
		return fmt.Errorf("invalid location %f,%f", b.Latitude, b.Longitude)
	}
	if b.FillLevel < 0 || b.FillLevel > 100 {
		return fmt.Errorf("nivel_llenado must be within 0..100")
	}
	return nil
}
