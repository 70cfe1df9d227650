package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rasamarket/fulfillment/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo MenuRepo
}

func NewService(repo MenuRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.MenuItem, error) {
	if strings.TrimSpace(id) == "" {
		return domain.MenuItem{}, ErrInvalidInput
	}
	return s.repo.GetItem(ctx, id)
}

func (s *Service) GetFulfiller(ctx context.Context, id string) (domain.Fulfiller, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Fulfiller{}, ErrInvalidInput
	}
	return s.repo.GetFulfiller(ctx, id)
}

func (s *Service) DefaultFulfiller(ctx context.Context) (domain.Fulfiller, error) {
	return s.repo.DefaultFulfiller(ctx)
}
