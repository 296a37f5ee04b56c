// Package store provides the room-state backends: an in-process map for
// single-node runs and tests, and Redis for multi-worker deployments.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/seekr-live/seekr/internal/game"
)

// Memory is the default store. Rooms are deep-copied through JSON on the way
// in and out so callers never share mutable state with the store — the same
// isolation a real Redis round-trip gives.
type Memory struct {
	mu     sync.Mutex
	rooms  map[string][]byte
	claims map[string]string // "<code>/<roundID>" → claimant
}

var _ game.Store = (*Memory)(nil)

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		rooms:  make(map[string][]byte),
		claims: make(map[string]string),
	}
}

func (m *Memory) Get(_ context.Context, code string) (*game.Room, error) {
	m.mu.Lock()
	raw, ok := m.rooms[code]
	m.mu.Unlock()
	if !ok {
		return nil, game.ErrRoomNotFound
	}

	var room game.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (m *Memory) Set(_ context.Context, code string, room *game.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rooms[code] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	delete(m.rooms, code)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	_, ok := m.rooms[code]
	m.mu.Unlock()
	return ok, nil
}

func (m *Memory) ClaimRoundWin(_ context.Context, code, roundID, claimant string) (bool, error) {
	key := code + "/" + roundID
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.claims[key]; taken {
		return false, nil
	}
	m.claims[key] = claimant
	return true, nil
}
