package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// MockStore is a mock implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, table string, records any) error {
	args := m.Called(ctx, table, records)
	return args.Error(0)
}

func (m *MockStore) Upsert(ctx context.Context, table string, records any, conflictKey string) error {
	args := m.Called(ctx, table, records, conflictKey)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, table string, filter store.Filter) error {
	args := m.Called(ctx, table, filter)
	return args.Error(0)
}

func (m *MockStore) Query(ctx context.Context, table string, filter store.Filter, dest any) error {
	args := m.Called(ctx, table, filter, dest)
	return args.Error(0)
}

func (m *MockStore) RPC(ctx context.Context, name string, params any, dest any) error {
	args := m.Called(ctx, name, params, dest)
	return args.Error(0)
}
