// Package sweeptest provides test doubles for the sweep package.
package sweeptest

import (
	"context"
	"sync"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

// MarkCall records one MarkMessageAsRead invocation.
type MarkCall struct {
	RoomID    int64
	MessageID string
}

// MockAPI is a configurable test double for sweep.API. Unset funcs return
// empty results.
type MockAPI struct {
	FetchRoomsFunc        func(ctx context.Context) ([]chatwork.Room, error)
	FetchMessagesFunc     func(ctx context.Context, roomID int64) ([]chatwork.Message, error)
	MarkMessageAsReadFunc func(ctx context.Context, roomID int64, messageID string) (chatwork.ReadStatus, error)

	mu            sync.Mutex
	roomsCalls    int
	messagesCalls []int64
	markCalls     []MarkCall
}

// Compile-time interface check.
var _ sweep.API = (*MockAPI)(nil)

// FetchRooms implements sweep.API.
func (m *MockAPI) FetchRooms(ctx context.Context) ([]chatwork.Room, error) {
	m.mu.Lock()
	m.roomsCalls++
	m.mu.Unlock()

	if m.FetchRoomsFunc != nil {
		return m.FetchRoomsFunc(ctx)
	}
	return nil, nil
}

// FetchMessages implements sweep.API.
func (m *MockAPI) FetchMessages(ctx context.Context, roomID int64) ([]chatwork.Message, error) {
	m.mu.Lock()
	m.messagesCalls = append(m.messagesCalls, roomID)
	m.mu.Unlock()

	if m.FetchMessagesFunc != nil {
		return m.FetchMessagesFunc(ctx, roomID)
	}
	return nil, nil
}

// MarkMessageAsRead implements sweep.API.
func (m *MockAPI) MarkMessageAsRead(ctx context.Context, roomID int64, messageID string) (chatwork.ReadStatus, error) {
	m.mu.Lock()
	m.markCalls = append(m.markCalls, MarkCall{RoomID: roomID, MessageID: messageID})
	m.mu.Unlock()

	if m.MarkMessageAsReadFunc != nil {
		return m.MarkMessageAsReadFunc(ctx, roomID, messageID)
	}
	return chatwork.ReadStatus{}, nil
}

// RoomsCalls returns how many times FetchRooms was called.
func (m *MockAPI) RoomsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomsCalls
}

// MessagesCalls returns the room ids passed to FetchMessages, in call order.
func (m *MockAPI) MessagesCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.messagesCalls...)
}

// MarkCalls returns the MarkMessageAsRead invocations, in call order.
func (m *MockAPI) MarkCalls() []MarkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MarkCall(nil), m.markCalls...)
}
