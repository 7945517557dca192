package port

import (
	"context"

	"ecotachos/internal/domain/entity"
)

// ActuationStore ожидающие команды для тачо: один сигнал на тачо.
type ActuationStore interface {
	// Put перезаписывает ожидающий сигнал для тачо
	Put(ctx context.Context, binCode string, signal entity.ActuationSignal) error

	// Take атомарно забирает и удаляет сигнал; если сигнала нет — SignalNone
	Take(ctx context.Context, binCode string) (entity.ActuationSignal, error)
}
