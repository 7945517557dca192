package port

import (
	"context"

	"ecotachos/internal/domain/entity"
)

// BinRepository хранилище тачо
type BinRepository interface {
	// Save создаёт тачо или обновляет существующий с тем же кодом
	Save(ctx context.Context, bin *entity.Bin) error

	// GetByCode возвращает активный тачо по коду
	GetByCode(ctx context.Context, code string) (*entity.Bin, error)

	// List возвращает активные тачо
	List(ctx context.Context) ([]entity.Bin, error)
}
