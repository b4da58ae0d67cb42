package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// UserService maintains Telegram-backed user records.
type UserService struct {
	store storage.Store
}

func NewUserService(store storage.Store) *UserService {
	return &UserService{store: store}
}

// CreateOrUpdate upserts the user record keyed by telegram_id and returns
// the stored row. Called on every successful login so the profile stays
// fresh.
func (s *UserService) CreateOrUpdate(ctx context.Context, telegramID int64, username, avatarURL string) (*model.User, error) {
	u := &model.User{
		TelegramID: telegramID,
		Username:   username,
		AvatarURL:  avatarURL,
	}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("user: upserted", "user_id", u.ID, "telegram_id", telegramID)
	return u, nil
}

// GetByID returns one user.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, notFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
