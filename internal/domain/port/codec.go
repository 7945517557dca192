package port

import (
	"context"

	"ecotachos/internal/domain/entity"
)

// ImageCodec интерфейс нормализации входящих изображений
type ImageCodec interface {
	// Normalize декодирует изображение и перекодирует его в JPEG
	Normalize(ctx context.Context, in entity.ImageInput) (*entity.NormalizedImage, error)
}
