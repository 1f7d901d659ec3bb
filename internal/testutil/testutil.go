// Package testutil provides mocks and fakes shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
)

// MockSurface is a mock implementation of host.Surface for testing.
type MockSurface struct {
	mock.Mock
}

// RunScript mocks the RunScript method.
func (m *MockSurface) RunScript(ctx context.Context, script string) (any, error) {
	args := m.Called(ctx, script)
	return args.Get(0), args.Error(1)
}

// RegisterMessageHandler mocks the RegisterMessageHandler method.
func (m *MockSurface) RegisterMessageHandler(name string, handler func(body []byte, ok bool)) error {
	args := m.Called(name, handler)
	return args.Error(0)
}

// UnregisterMessageHandler mocks the UnregisterMessageHandler method.
func (m *MockSurface) UnregisterMessageHandler(name string) {
	m.Called(name)
}

// NewMockSurface creates a mock surface where every call succeeds.
func NewMockSurface(t *testing.T) *MockSurface {
	t.Helper()
	m := new(MockSurface)

	m.On("RunScript", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("RegisterMessageHandler", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("UnregisterMessageHandler", mock.Anything).Return().Maybe()

	return m
}

// MockPoster is a mock implementation of surface.Poster for testing.
type MockPoster struct {
	mock.Mock
}

// PostMessage mocks the PostMessage method.
func (m *MockPoster) PostMessage(name string, body []byte, ok bool) error {
	args := m.Called(name, body, ok)
	return args.Error(0)
}

// ErrNoHandler is returned by FakeSurface.Post for names nobody registered.
var ErrNoHandler = errors.New("no handler registered")

// FakeSurface records injected scripts and lets tests post to the handlers
// registered on it.
type FakeSurface struct {
	mu       sync.Mutex
	scripts  []string
	handlers map[string]func(body []byte, ok bool)
	fail     func(script string) error
}

// NewFakeSurface creates an empty fake surface.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{handlers: make(map[string]func([]byte, bool))}
}

// FailWhen makes RunScript return the error produced by fn, when non-nil.
func (f *FakeSurface) FailWhen(fn func(script string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fn
}

// RunScript records script.
func (f *FakeSurface) RunScript(ctx context.Context, script string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(script); err != nil {
			return nil, err
		}
	}
	f.scripts = append(f.scripts, script)
	return nil, nil
}

// RegisterMessageHandler stores handler under name.
func (f *FakeSurface) RegisterMessageHandler(name string, handler func(body []byte, ok bool)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = handler
	return nil
}

// UnregisterMessageHandler removes the handler for name.
func (f *FakeSurface) UnregisterMessageHandler(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, name)
}

// Post delivers body to the handler registered for name.
func (f *FakeSurface) Post(name string, body []byte, ok bool) error {
	f.mu.Lock()
	h := f.handlers[name]
	f.mu.Unlock()

	if h == nil {
		return ErrNoHandler
	}
	h(body, ok)
	return nil
}

// Scripts returns a copy of the scripts injected so far.
func (f *FakeSurface) Scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// Handlers returns whether a handler is registered for name.
func (f *FakeSurface) Handlers(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[name]
	return ok
}
