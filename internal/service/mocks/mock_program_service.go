package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"programhub/internal/model"
	"programhub/internal/service"
)

type MockProgramService struct {
	mock.Mock
}

func (m *MockProgramService) Create(ctx context.Context, actor model.Actor, in service.CreateProgramInput) (*model.ProgramDetail, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgramDetail), args.Error(1)
}

func (m *MockProgramService) Get(ctx context.Context, actor model.Actor, id string) (*model.ProgramDetail, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgramDetail), args.Error(1)
}

func (m *MockProgramService) List(ctx context.Context, in service.ListProgramsInput) (*service.ProgramPage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProgramPage), args.Error(1)
}

func (m *MockProgramService) Update(ctx context.Context, actor model.Actor, id string, in service.UpdateProgramInput) (*model.ProgramDetail, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgramDetail), args.Error(1)
}

func (m *MockProgramService) Delete(ctx context.Context, actor model.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockProgramService) Download(ctx context.Context, actor model.Actor, id string) (*service.Download, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockProgramService) Thumbnail(ctx context.Context, actor model.Actor, id string) (*service.Download, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}
