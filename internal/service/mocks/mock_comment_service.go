package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"programhub/internal/model"
)

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) Add(ctx context.Context, actor model.Actor, programID, text string) (*model.CommentDetail, error) {
	args := m.Called(ctx, actor, programID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommentDetail), args.Error(1)
}

func (m *MockCommentService) Update(ctx context.Context, actor model.Actor, commentID, text string) (*model.CommentDetail, error) {
	args := m.Called(ctx, actor, commentID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommentDetail), args.Error(1)
}

func (m *MockCommentService) Delete(ctx context.Context, actor model.Actor, commentID string) error {
	args := m.Called(ctx, actor, commentID)
	return args.Error(0)
}

type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCategoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}
