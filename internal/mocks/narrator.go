package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/atmb4u/gamegirl/internal/game"
	"github.com/atmb4u/gamegirl/internal/story"
)

// MockNarrator is a mock type for the game.Narrator type
type MockNarrator struct {
	mock.Mock
}

// InitialOptions provides a mock function with given fields: ctx, m, kind
func (_m *MockNarrator) InitialOptions(ctx context.Context, m *story.Memory, kind story.ProfileKind) ([]story.Choice, error) {
	ret := _m.Called(ctx, m, kind)

	var r0 []story.Choice
	if rf, ok := ret.Get(0).(func(context.Context, *story.Memory, story.ProfileKind) []story.Choice); ok {
		r0 = rf(ctx, m, kind)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]story.Choice)
	}

	return r0, ret.Error(1)
}

// NextChoices provides a mock function with given fields: ctx, m
func (_m *MockNarrator) NextChoices(ctx context.Context, m *story.Memory) ([]story.Choice, error) {
	ret := _m.Called(ctx, m)

	var r0 []story.Choice
	if rf, ok := ret.Get(0).(func(context.Context, *story.Memory) []story.Choice); ok {
		r0 = rf(ctx, m)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]story.Choice)
	}

	return r0, ret.Error(1)
}

// Answer provides a mock function with given fields: ctx, m, question
func (_m *MockNarrator) Answer(ctx context.Context, m *story.Memory, question string) (string, error) {
	ret := _m.Called(ctx, m, question)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, *story.Memory, string) string); ok {
		r0 = rf(ctx, m, question)
	} else {
		r0 = ret.String(0)
	}

	return r0, ret.Error(1)
}

// Consequence provides a mock function with given fields: ctx, m, action
func (_m *MockNarrator) Consequence(ctx context.Context, m *story.Memory, action string) (story.Consequence, error) {
	ret := _m.Called(ctx, m, action)

	var r0 story.Consequence
	if rf, ok := ret.Get(0).(func(context.Context, *story.Memory, string) story.Consequence); ok {
		r0 = rf(ctx, m, action)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(story.Consequence)
	}

	return r0, ret.Error(1)
}

// NewMockNarrator creates a new instance of MockNarrator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNarrator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNarrator {
	m := &MockNarrator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ game.Narrator = (*MockNarrator)(nil)
