package game

import "encoding/json"

// Event is the envelope for every message on the game WebSocket, both
// directions. Data carries the event-specific payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client → server event types.
const (
	EvtRoomCreate     = "room:create"
	EvtRoomJoin       = "room:join"
	EvtSettingsUpdate = "settings:update"
	EvtPlayerRemove   = "player:remove"
	EvtGameStart      = "game:start"
)

// Server → client event types.
const (
	EvtRoomCreated     = "room:created"
	EvtRoomJoined      = "room:joined"
	EvtPlayerJoined    = "player:joined"
	EvtPlayerLeft      = "player:left"
	EvtSettingsUpdated = "settings:updated"
	EvtGameStarted     = "game:started"
	EvtRoundStart      = "round:start"
	EvtRoundWon        = "round:won"
	EvtRoundTimeout    = "round:timeout"
	EvtGameEnded       = "game:ended"
	EvtError           = "error"
)

// Client payloads.

type roomCreateReq struct {
	PlayerName string `json:"playerName"`
}

type roomJoinReq struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type playerRemoveReq struct {
	PlayerID string `json:"playerId"`
}

// Server payloads.

type errorPayload struct {
	Message string `json:"message"`
}

type roomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
}

type roomJoinedPayload struct {
	Players  []*Player `json:"players"`
	Settings Settings  `json:"settings"`
	PlayerID string    `json:"playerId"`
	HostID   string    `json:"hostId"`
}

type playerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type gameStartedPayload struct {
	Players  []*Player `json:"players"`
	Settings Settings  `json:"settings"`
}

type roundStartPayload struct {
	RoundNumber    int            `json:"roundNumber"`
	ObjectID       string         `json:"objectId"`
	DisplayName    string         `json:"displayName"`
	TimeoutSeconds int            `json:"timeoutSeconds"`
	Players        []*Player      `json:"players"`
	Scores         map[string]int `json:"scores"`
}

type roundWonPayload struct {
	WinnerID    string         `json:"winnerId"`
	WinnerName  string         `json:"winnerName"`
	ObjectID    string         `json:"objectId"`
	DisplayName string         `json:"displayName"`
	Players     []*Player      `json:"players"`
	Scores      map[string]int `json:"scores"`
}

type roundTimeoutPayload struct {
	ObjectID    string         `json:"objectId"`
	DisplayName string         `json:"displayName"`
	Scores      map[string]int `json:"scores"`
}

type gameEndedPayload struct {
	WinnerID   string         `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
	Players    []*Player      `json:"players"`
	Scores     map[string]int `json:"scores"`
}

func mustEvent(typ string, payload interface{}) Event {
	raw, _ := json.Marshal(payload)
	return Event{Type: typ, Data: raw}
}

func decode(evt Event, v interface{}) error {
	return json.Unmarshal(evt.Data, v)
}
