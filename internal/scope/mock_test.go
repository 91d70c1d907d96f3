package scope

import (
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/stretchr/testify/mock"
)

type mockFsProvider struct {
	mock.Mock
}

func newMockFsProvider(t interface {
	mock.TestingT
	Cleanup(f func())
},
) *mockFsProvider {
	m := &mockFsProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockFsProvider) GetMetadata(path string) (*schema.Metadata, error) {
	args := m.Called(path)

	md, _ := args.Get(0).(*schema.Metadata)

	return md, args.Error(1)
}

func (m *mockFsProvider) NearestExisting(path string) (string, error) {
	args := m.Called(path)

	return args.String(0), args.Error(1)
}

type mockMountsProvider struct {
	mock.Mock
}

func newMockMountsProvider(t interface {
	mock.TestingT
	Cleanup(f func())
},
) *mockMountsProvider {
	m := &mockMountsProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockMountsProvider) Mounts() ([]Mount, error) {
	args := m.Called()

	mounts, _ := args.Get(0).([]Mount)

	return mounts, args.Error(1)
}
