package io

import (
	"github.com/stretchr/testify/mock"
	"golang.org/x/sys/unix"
)

type mockUnixProvider struct {
	mock.Mock
}

func newMockUnixProvider(t interface {
	mock.TestingT
	Cleanup(f func())
},
) *mockUnixProvider {
	m := &mockUnixProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockUnixProvider) Access(path string, mode uint32) error {
	return m.Called(path, mode).Error(0)
}

func (m *mockUnixProvider) Chmod(path string, mode uint32) error {
	return m.Called(path, mode).Error(0)
}

func (m *mockUnixProvider) Chown(path string, uid, gid int) error {
	return m.Called(path, uid, gid).Error(0)
}

func (m *mockUnixProvider) Lchown(path string, uid, gid int) error {
	return m.Called(path, uid, gid).Error(0)
}

func (m *mockUnixProvider) Link(oldpath, newpath string) error {
	return m.Called(oldpath, newpath).Error(0)
}

func (m *mockUnixProvider) LutimesNano(path string, times []unix.Timespec) error {
	return m.Called(path, times).Error(0)
}

func (m *mockUnixProvider) Mkdir(path string, mode uint32) error {
	return m.Called(path, mode).Error(0)
}

func (m *mockUnixProvider) Symlink(oldpath, newpath string) error {
	return m.Called(oldpath, newpath).Error(0)
}

func (m *mockUnixProvider) UtimesNano(path string, times []unix.Timespec) error {
	return m.Called(path, times).Error(0)
}
