// Package game runs the multiplayer scavenger-hunt flow: rooms, rounds,
// scoring, and the WebSocket hub players connect through.
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Phases a room moves through, in order.
const (
	PhaseLobby   = "lobby"
	PhaseGame    = "game"
	PhaseResults = "results"
)

// TimeoutClaimant is the sentinel the round timer claims a round with, so a
// timeout and a player win can never both fire for the same round.
const TimeoutClaimant = "__timeout__"

// ErrRoomNotFound is returned by stores for unknown room codes.
var ErrRoomNotFound = errors.New("game: room not found")

// Player is one participant of a room.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Initials string `json:"initials"`
	Score    int    `json:"score"`
}

// Settings are the host-adjustable room parameters.
type Settings struct {
	PointsToWin  int `json:"pointsToWin"`
	RoundTimeout int `json:"roundTimeout"` // seconds
}

// Values the host may pick from. Anything else is ignored.
var (
	AllowedPoints   = []int{3, 5, 10, 15}
	AllowedTimeouts = []int{30, 60, 90, 120}
)

// Round is one object hunt.
type Round struct {
	ID          string `json:"id"`
	ObjectID    string `json:"objectId"`
	DisplayName string `json:"displayName"`
	WinnerID    string `json:"winnerId,omitempty"`
	WinnerName  string `json:"winnerName,omitempty"`
}

// Room is the canonical room state, persisted as one document per code.
type Room struct {
	Code          string    `json:"code"`
	Players       []*Player `json:"players"`
	Settings      Settings  `json:"settings"`
	HostID        string    `json:"hostId"`
	Phase         string    `json:"phase"`
	CurrentRound  *Round    `json:"currentRound,omitempty"`
	RoundNumber   int       `json:"roundNumber"`
	UsedObjectIDs []string  `json:"usedObjectIds"`
}

// Store persists room state. ClaimRoundWin must be atomic: exactly one
// claimant per round succeeds, across every process sharing the store.
type Store interface {
	Get(ctx context.Context, code string) (*Room, error)
	Set(ctx context.Context, code string, room *Room) error
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
	ClaimRoundWin(ctx context.Context, code, roundID, claimant string) (bool, error)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// normalizeCode canonicalizes a user-typed join code.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateRoomCode returns a 6-character join code.
func GenerateRoomCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NewPlayer builds a player from a display name.
func NewPlayer(name string) *Player {
	n := strings.ToUpper(strings.TrimSpace(name))
	initials := "?"
	if n != "" {
		initials = n[:1]
	}
	return &Player{
		ID:       uuid.NewString(),
		Name:     n,
		Initials: initials,
	}
}

// NewRoom builds a lobby-phase room hosted by the given player.
func NewRoom(code string, host *Player) *Room {
	return &Room{
		Code:    code,
		Players: []*Player{host},
		Settings: Settings{
			PointsToWin:  5,
			RoundTimeout: 60,
		},
		HostID: host.ID,
		Phase:  PhaseLobby,
	}
}

// Scores maps player IDs to their current score.
func (r *Room) Scores() map[string]int {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}
	return scores
}

// FindPlayer returns the player with the given ID, or nil.
func (r *Room) FindPlayer(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// RemovePlayer drops the player with the given ID. Returns whether anything
// was removed.
func (r *Room) RemovePlayer(id string) bool {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

func allowed(v int, set []int) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// ApplySettings merges host-proposed settings, keeping only allowed values.
func (r *Room) ApplySettings(s Settings) {
	if allowed(s.PointsToWin, AllowedPoints) {
		r.Settings.PointsToWin = s.PointsToWin
	}
	if allowed(s.RoundTimeout, AllowedTimeouts) {
		r.Settings.RoundTimeout = s.RoundTimeout
	}
}
