package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 实现内存会话存储，用于开发与测试环境。
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore 创建内存会话存储实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
	}
}

// Load 读取会话状态，不存在时返回空状态。
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[sessionID]
	if !ok {
		return NewState(), nil
	}

	// 返回副本，避免调用方直接修改存储内的状态。
	cp := *state
	cp.Files = append([]FileRef(nil), state.Files...)
	cp.Contents = append([]ContentRef(nil), state.Contents...)
	cp.URLs = append([]URLRef(nil), state.URLs...)
	return &cp, nil
}

// Save 保存会话状态。
func (s *MemoryStore) Save(_ context.Context, sessionID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	cp := *state
	cp.Files = append([]FileRef(nil), state.Files...)
	cp.Contents = append([]ContentRef(nil), state.Contents...)
	cp.URLs = append([]URLRef(nil), state.URLs...)
	s.states[sessionID] = &cp
	return nil
}

// Delete 删除会话状态。
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sessionID)
	return nil
}

// Close 释放全部会话。
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = make(map[string]*State)
	return nil
}

// 确保 MemoryStore 实现了 Store 接口。
var _ Store = (*MemoryStore)(nil)
