package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// ActuationService связывает отправку классификации с опросом контроллера тачо.
type ActuationService struct {
	store  port.ActuationStore
	logger *slog.Logger
}

func NewActuationService(store port.ActuationStore, logger *slog.Logger) *ActuationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActuationService{store: store, logger: logger}
}

// Submit переводит метку в сигнал и перезаписывает ожидающую команду тачо.
func (s *ActuationService) Submit(ctx context.Context, binCode, label string) (entity.ActuationSignal, error) {
	binCode = strings.TrimSpace(binCode)
	if binCode == "" {
		return entity.SignalNone, fmt.Errorf("%w: tacho_id is required", entity.ErrInvalidInput)
	}

	category := entity.MapCategory(label)
	signal := entity.BlinkCount(category)
	if err := s.store.Put(ctx, binCode, signal); err != nil {
		return entity.SignalNone, fmt.Errorf("store actuation: %w", err)
	}

	s.logger.Info("actuation.submitted", "tacho", binCode, "categoria", category, "parpadeos", signal)
	return signal, nil
}

// Poll забирает ожидающую команду; повторный опрос без новой отправки вернёт 0.
func (s *ActuationService) Poll(ctx context.Context, binCode string) (entity.ActuationSignal, error) {
	binCode = strings.TrimSpace(binCode)
	if binCode == "" {
		return entity.SignalNone, fmt.Errorf("%w: tacho_id is required", entity.ErrInvalidInput)
	}

	signal, err := s.store.Take(ctx, binCode)
	if err != nil {
		return entity.SignalNone, fmt.Errorf("take actuation: %w", err)
	}

	s.logger.Info("actuation.delivered", "tacho", binCode, "parpadeos", signal)
	return signal, nil
}
