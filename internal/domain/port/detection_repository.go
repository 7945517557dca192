package port

import (
	"context"

	"ecotachos/internal/domain/entity"
)

// DetectionRecorder сохраняет результат классификации
type DetectionRecorder interface {
	// Record сохраняет детекцию, заполняя ID, координаты тачо и CreatedAt
	Record(ctx context.Context, d *entity.Detection) error
}

// DetectionRepository хранилище детекций
type DetectionRepository interface {
	DetectionRecorder

	// List возвращает активные детекции, новые первыми
	List(ctx context.Context, filter entity.DetectionFilter) ([]entity.Detection, error)

	// Get возвращает активную детекцию по ID
	Get(ctx context.Context, id int64) (*entity.Detection, error)

	// Deactivate помечает детекцию неактивной (логическое удаление)
	Deactivate(ctx context.Context, id int64) error
}

// DetectionExporter выгружает детекции в файл
type DetectionExporter interface {
	Export(ctx context.Context, detections []entity.Detection) ([]byte, error)
}
