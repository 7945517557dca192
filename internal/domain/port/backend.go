package port

import (
	"context"

	"ecotachos/internal/domain/entity"
)

// InferenceBackend интерфейс бэкенда классификации
type InferenceBackend interface {
	// Kind возвращает тип бэкенда
	Kind() entity.BackendKind

	// Classify отдаёт сырой ответ модели по нормализованному изображению
	Classify(ctx context.Context, img *entity.NormalizedImage) (*entity.RawResponse, error)

	// Probe проверяет доступность бэкенда
	Probe(ctx context.Context) error

	// Info описывает конфигурацию бэкенда
	Info() entity.BackendInfo
}
