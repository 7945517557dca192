package app

import (
	"context"
	"fmt"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

type BinService struct {
	repo port.BinRepository
}

func NewBinService(repo port.BinRepository) *BinService {
	return &BinService{repo: repo}
}

func (s *BinService) Save(ctx context.Context, bin *entity.Bin) error {
	if err := bin.Validate(); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrInvalidInput, err)
	}
	bin.Active = true
	return s.repo.Save(ctx, bin)
}

func (s *BinService) Get(ctx context.Context, code string) (*entity.Bin, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *BinService) List(ctx context.Context) ([]entity.Bin, error) {
	return s.repo.List(ctx)
}
