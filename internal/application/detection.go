package app

import (
	"context"
	"errors"
	"strings"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

const defaultDetectionLimit = 100

type DetectionService struct {
	repo     port.DetectionRepository
	exporter port.DetectionExporter
}

func NewDetectionService(repo port.DetectionRepository, exporter port.DetectionExporter) *DetectionService {
	return &DetectionService{repo: repo, exporter: exporter}
}

func (s *DetectionService) List(ctx context.Context, filter entity.DetectionFilter) ([]entity.Detection, error) {
	filter.BinCode = strings.TrimSpace(filter.BinCode)
	if filter.Limit <= 0 {
		filter.Limit = defaultDetectionLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *DetectionService) Get(ctx context.Context, id int64) (*entity.Detection, error) {
	return s.repo.Get(ctx, id)
}

// Delete — логическое удаление.
func (s *DetectionService) Delete(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// Export выгружает активные детекции (с тем же фильтром, что и List).
func (s *DetectionService) Export(ctx context.Context, filter entity.DetectionFilter) ([]byte, error) {
	if s.exporter == nil {
		return nil, errors.New("exporter is not configured")
	}
	detections, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, detections)
}
