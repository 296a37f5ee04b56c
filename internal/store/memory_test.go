package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/seekr-live/seekr/internal/game"
)

func TestMemoryRoomCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "NOPE"); !errors.Is(err, game.ErrRoomNotFound) {
		t.Fatalf("Get missing room: err = %v, want ErrRoomNotFound", err)
	}

	host := game.NewPlayer("alice")
	room := game.NewRoom("AB12CD", host)
	if err := m.Set(ctx, room.Code, room); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	exists, err := m.Exists(ctx, room.Code)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v, want true, nil", exists, err)
	}

	got, err := m.Get(ctx, room.Code)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.HostID != host.ID || len(got.Players) != 1 {
		t.Errorf("loaded room = %+v, want host %s with 1 player", got, host.ID)
	}

	if err := m.Delete(ctx, room.Code); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(ctx, room.Code); !errors.Is(err, game.ErrRoomNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrRoomNotFound", err)
	}
}

// TestMemoryIsolation verifies callers cannot mutate stored state through
// the pointers they hold.
func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	room := game.NewRoom("XY34ZW", game.NewPlayer("bob"))
	if err := m.Set(ctx, room.Code, room); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Mutate the original after storing.
	room.Phase = game.PhaseResults
	room.Players[0].Score = 99

	got, err := m.Get(ctx, "XY34ZW")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Phase != game.PhaseLobby {
		t.Errorf("stored phase mutated to %q", got.Phase)
	}
	if got.Players[0].Score != 0 {
		t.Errorf("stored score mutated to %d", got.Players[0].Score)
	}

	// And mutating a loaded copy must not affect the next load.
	got.Players[0].Score = 7
	again, _ := m.Get(ctx, "XY34ZW")
	if again.Players[0].Score != 0 {
		t.Errorf("loaded copy shared state with store")
	}
}

// TestClaimRoundWinAtomic races many claimants; exactly one may win.
func TestClaimRoundWinAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			won, err := m.ClaimRoundWin(ctx, "AB12CD", "1", "player")
			if err != nil {
				t.Errorf("claim failed: %v", err)
				return
			}
			if won {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("%d claimants won, want exactly 1", wins.Load())
	}

	// A different round of the same room is claimable again.
	won, err := m.ClaimRoundWin(ctx, "AB12CD", "2", game.TimeoutClaimant)
	if err != nil || !won {
		t.Fatalf("claim of next round = %v, %v, want true, nil", won, err)
	}
}
