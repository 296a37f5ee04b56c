package game

import (
	"strings"
	"testing"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateRoomCode()
		if len(code) != 6 {
			t.Fatalf("code %q: length %d, want 6", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q: %q outside alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not varying")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := normalizeCode("  ab12cd "); got != "AB12CD" {
		t.Errorf("normalizeCode = %q, want AB12CD", got)
	}
}

func TestNewPlayer(t *testing.T) {
	p := NewPlayer(" alice ")
	if p.ID == "" {
		t.Error("player has no ID")
	}
	if p.Name != "ALICE" {
		t.Errorf("name = %q, want ALICE", p.Name)
	}
	if p.Initials != "A" {
		t.Errorf("initials = %q, want A", p.Initials)
	}
	if p.Score != 0 {
		t.Errorf("score = %d, want 0", p.Score)
	}

	if got := NewPlayer("").Initials; got != "?" {
		t.Errorf("empty-name initials = %q, want ?", got)
	}
}

func TestNewRoomDefaults(t *testing.T) {
	host := NewPlayer("bob")
	room := NewRoom("ABC123", host)

	if room.Phase != PhaseLobby {
		t.Errorf("phase = %q, want lobby", room.Phase)
	}
	if room.HostID != host.ID {
		t.Errorf("host = %q, want %q", room.HostID, host.ID)
	}
	if room.Settings.PointsToWin != 5 || room.Settings.RoundTimeout != 60 {
		t.Errorf("default settings = %+v", room.Settings)
	}
}

func TestApplySettings(t *testing.T) {
	room := NewRoom("ABC123", NewPlayer("bob"))

	room.ApplySettings(Settings{PointsToWin: 3, RoundTimeout: 90})
	if room.Settings.PointsToWin != 3 || room.Settings.RoundTimeout != 90 {
		t.Errorf("allowed values not applied: %+v", room.Settings)
	}

	// Values outside the allowed sets leave the room untouched.
	room.ApplySettings(Settings{PointsToWin: 7, RoundTimeout: 45})
	if room.Settings.PointsToWin != 3 || room.Settings.RoundTimeout != 90 {
		t.Errorf("disallowed values applied: %+v", room.Settings)
	}
}

func TestPlayerRemovalAndLookup(t *testing.T) {
	host := NewPlayer("a")
	room := NewRoom("ABC123", host)
	other := NewPlayer("b")
	room.Players = append(room.Players, other)
	other.Score = 2

	if got := room.FindPlayer(other.ID); got != other {
		t.Fatal("FindPlayer did not return the joined player")
	}
	if got := room.FindPlayer("missing"); got != nil {
		t.Fatal("FindPlayer returned a player for an unknown ID")
	}

	scores := room.Scores()
	if scores[host.ID] != 0 || scores[other.ID] != 2 {
		t.Errorf("scores = %v", scores)
	}

	if !room.RemovePlayer(other.ID) {
		t.Fatal("RemovePlayer reported nothing removed")
	}
	if room.RemovePlayer(other.ID) {
		t.Fatal("second removal should report false")
	}
	if len(room.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(room.Players))
	}
}
