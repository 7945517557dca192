package app

import (
	"context"
	"strings"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SetState(state)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SelectBin привязывает оператора к тачо; дальше каждое фото классифицируется для него.
func (s *UserService) SelectBin(ctx context.Context, userID, chatID int64, code string) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SelectBin(strings.TrimSpace(code))
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Cancel возвращает в главное меню, выбранный тачо сохраняется.
func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if _, err := s.repo.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, userID, entity.StateMainMenu); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, chatID)
}
