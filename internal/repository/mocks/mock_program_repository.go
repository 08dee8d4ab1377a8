package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"programhub/internal/model"
	"programhub/internal/repository"
)

type MockProgramRepository struct {
	mock.Mock
}

func (m *MockProgramRepository) Create(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	args := m.Called(ctx, p, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Program), args.Error(1)
}

func (m *MockProgramRepository) FindByID(ctx context.Context, id string) (*model.Program, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Program), args.Error(1)
}

func (m *MockProgramRepository) List(ctx context.Context, q repository.ProgramQuery) (*repository.PageResult[model.Program], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Program]), args.Error(1)
}

func (m *MockProgramRepository) Update(ctx context.Context, p *model.Program, categoryIDs []int64) (*model.Program, error) {
	args := m.Called(ctx, p, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Program), args.Error(1)
}

func (m *MockProgramRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) IncrementViews(ctx context.Context, programID string) (int64, error) {
	args := m.Called(ctx, programID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounterRepository) IncrementDownloads(ctx context.Context, programID string) (int64, error) {
	args := m.Called(ctx, programID)
	return args.Get(0).(int64), args.Error(1)
}
