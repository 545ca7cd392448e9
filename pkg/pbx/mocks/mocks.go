// Package mocks provides testify mocks for the pbx collaborators.
package mocks

import (
	"context"
	"net/netip"

	"github.com/stretchr/testify/mock"

	"github.com/sccp-protocol/sccp-go/pkg/pbx"
)

// Router is a mock pbx.Router.
type Router struct {
	mock.Mock
}

// NewRouter creates a Router mock whose expectations are asserted at test
// cleanup.
func NewRouter(t interface {
	mock.TestingT
	Cleanup(func())
}) *Router {
	m := &Router{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Router) Allocate(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Router) Dial(ctx context.Context, ch pbx.ChannelRef, number string) error {
	return m.Called(ctx, ch, number).Error(0)
}

func (m *Router) Answer(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Router) Hangup(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Router) Transfer(ctx context.Context, from, to pbx.ChannelRef) error {
	return m.Called(ctx, from, to).Error(0)
}

func (m *Router) Park(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Router) Pickup(ctx context.Context, ch pbx.ChannelRef, group string) error {
	return m.Called(ctx, ch, group).Error(0)
}

func (m *Router) Redirect(ctx context.Context, ch pbx.ChannelRef, target string) error {
	return m.Called(ctx, ch, target).Error(0)
}

func (m *Router) Conference(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

// Media is a mock pbx.Media.
type Media struct {
	mock.Mock
}

// NewMedia creates a Media mock whose expectations are asserted at test
// cleanup.
func NewMedia(t interface {
	mock.TestingT
	Cleanup(func())
}) *Media {
	m := &Media{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Media) OpenReceive(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Media) CloseReceive(ctx context.Context, ch pbx.ChannelRef) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *Media) ReceiveOpened(ctx context.Context, ch pbx.ChannelRef, addr netip.AddrPort) error {
	return m.Called(ctx, ch, addr).Error(0)
}

// PostRegistration is a mock pbx.PostRegistration.
type PostRegistration struct {
	mock.Mock
}

// NewPostRegistration creates a PostRegistration mock whose expectations are
// asserted at test cleanup.
func NewPostRegistration(t interface {
	mock.TestingT
	Cleanup(func())
}) *PostRegistration {
	m := &PostRegistration{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *PostRegistration) Sync(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

// SettingsStore is a mock pbx.SettingsStore.
type SettingsStore struct {
	mock.Mock
}

// NewSettingsStore creates a SettingsStore mock whose expectations are
// asserted at test cleanup.
func NewSettingsStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SettingsStore {
	m := &SettingsStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SettingsStore) LoadDeviceSettings(ctx context.Context, deviceID string) (pbx.DeviceSettings, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(pbx.DeviceSettings), args.Error(1)
}

func (m *SettingsStore) SaveDeviceSettings(ctx context.Context, deviceID string, s pbx.DeviceSettings) error {
	return m.Called(ctx, deviceID, s).Error(0)
}

var (
	_ pbx.Router           = (*Router)(nil)
	_ pbx.Media            = (*Media)(nil)
	_ pbx.PostRegistration = (*PostRegistration)(nil)
	_ pbx.SettingsStore    = (*SettingsStore)(nil)
)
