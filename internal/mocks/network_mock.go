// Package mocks hand-maintains a go.uber.org/mock-shaped mock for
// message.Network, mirroring the method-per-call structure MockGen emits
// for consensus/tendermint/core's Backend interface
// (backend_mock.go) — reproduced by hand rather than generated, since this
// environment never invokes the Go toolchain. Use internal/netfake for
// end-to-end scenario tests; reach for MockNetwork when a test needs to
// assert exact call counts and argument values for individual broadcasts.
package mocks

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/autonity/tendercore/message"
)

// MockNetwork is a mock of the message.Network interface.
type MockNetwork struct {
	ctrl     *gomock.Controller
	recorder *MockNetworkMockRecorder
}

// MockNetworkMockRecorder is the mock recorder for MockNetwork.
type MockNetworkMockRecorder struct {
	mock *MockNetwork
}

// NewMockNetwork creates a new mock instance.
func NewMockNetwork(ctrl *gomock.Controller) *MockNetwork {
	mock := &MockNetwork{ctrl: ctrl}
	mock.recorder = &MockNetworkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockNetwork) EXPECT() *MockNetworkMockRecorder {
	return m.recorder
}

// BroadcastProposal mocks base method.
func (m *MockNetwork) BroadcastProposal(ctx context.Context, p message.ProposeBlockRequest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BroadcastProposal", ctx, p)
	ret0, _ := ret[0].(error)
	return ret0
}

// BroadcastProposal indicates an expected call of BroadcastProposal.
func (mr *MockNetworkMockRecorder) BroadcastProposal(ctx, p interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BroadcastProposal", reflect.TypeOf((*MockNetwork)(nil).BroadcastProposal), ctx, p)
}

// BroadcastPrevote mocks base method.
func (m *MockNetwork) BroadcastPrevote(ctx context.Context, p message.PrevoteMessage) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BroadcastPrevote", ctx, p)
	ret0, _ := ret[0].(error)
	return ret0
}

// BroadcastPrevote indicates an expected call of BroadcastPrevote.
func (mr *MockNetworkMockRecorder) BroadcastPrevote(ctx, p interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BroadcastPrevote", reflect.TypeOf((*MockNetwork)(nil).BroadcastPrevote), ctx, p)
}

// BroadcastPrecommit mocks base method.
func (m *MockNetwork) BroadcastPrecommit(ctx context.Context, p message.PrecommitMessage) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BroadcastPrecommit", ctx, p)
	ret0, _ := ret[0].(error)
	return ret0
}

// BroadcastPrecommit indicates an expected call of BroadcastPrecommit.
func (mr *MockNetworkMockRecorder) BroadcastPrecommit(ctx, p interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BroadcastPrecommit", reflect.TypeOf((*MockNetwork)(nil).BroadcastPrecommit), ctx, p)
}

var _ message.Network = (*MockNetwork)(nil)
