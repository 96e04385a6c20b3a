// Package mocks provides testify mocks for the board's repository
// boundary.
package mocks

import (
	"context"

	"github.com/Bushidonj/kanban-board/internal/kanban"
	"github.com/stretchr/testify/mock"
)

// Repository is a mock for board.Repository.
type Repository struct {
	mock.Mock
}

func (m *Repository) List(ctx context.Context) ([]kanban.Card, error) {
	args := m.Called(ctx)
	if cards, ok := args.Get(0).([]kanban.Card); ok {
		return cards, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Repository) Create(ctx context.Context, draft kanban.Card) (kanban.Card, error) {
	args := m.Called(ctx, draft)
	if card, ok := args.Get(0).(kanban.Card); ok {
		return card, args.Error(1)
	}
	return kanban.Card{}, args.Error(1)
}

func (m *Repository) Update(ctx context.Context, card kanban.Card) (kanban.Card, error) {
	args := m.Called(ctx, card)
	if updated, ok := args.Get(0).(kanban.Card); ok {
		return updated, args.Error(1)
	}
	return kanban.Card{}, args.Error(1)
}

func (m *Repository) Move(ctx context.Context, id string, status kanban.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *Repository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
