package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seekr-live/seekr/internal/detect"
)

// fakeStore is an in-memory Store for hub tests. Rooms are kept as JSON so
// callers get copies, matching the persistence stores.
type fakeStore struct {
	mu     sync.Mutex
	rooms  map[string][]byte
	claims map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:  make(map[string][]byte),
		claims: make(map[string]string),
	}
}

func (s *fakeStore) Get(ctx context.Context, code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	var room Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *fakeStore) Set(ctx context.Context, code string, room *Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[code] = raw
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *fakeStore) ClaimRoundWin(ctx context.Context, code, roundID, claimant string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := code + "/" + roundID
	if _, taken := s.claims[key]; taken {
		return false, nil
	}
	s.claims[key] = claimant
	return true, nil
}

// ─── websocket helpers ─────────────────────────────────────────────────────

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(newFakeStore(), nil)
	hub.interRoundDelay = 50 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteJSON(Event{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// waitFor reads events until one of the wanted type arrives, skipping
// everything else.
func waitFor(t *testing.T, ws *websocket.Conn, typ string) Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ws.SetReadDeadline(deadline)
		var evt Event
		if err := ws.ReadJSON(&evt); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if evt.Type == typ {
			return evt
		}
	}
}

func decodeInto(t *testing.T, evt Event, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(evt.Data, v); err != nil {
		t.Fatalf("decode %s payload: %v", evt.Type, err)
	}
}

// createRoom drives room:create on ws and returns the room code and the
// creator's player ID.
func createRoom(t *testing.T, ws *websocket.Conn, name string) (code, playerID string) {
	t.Helper()
	sendEvent(t, ws, EvtRoomCreate, roomCreateReq{PlayerName: name})

	var created roomCreatedPayload
	decodeInto(t, waitFor(t, ws, EvtRoomCreated), &created)

	var joined roomJoinedPayload
	decodeInto(t, waitFor(t, ws, EvtRoomJoined), &joined)

	return created.RoomCode, joined.PlayerID
}

func joinRoom(t *testing.T, ws *websocket.Conn, code, name string) string {
	t.Helper()
	sendEvent(t, ws, EvtRoomJoin, roomJoinReq{RoomCode: code, PlayerName: name})
	var joined roomJoinedPayload
	decodeInto(t, waitFor(t, ws, EvtRoomJoined), &joined)
	return joined.PlayerID
}

// ─── tests ─────────────────────────────────────────────────────────────────

func TestRoomCreateAndJoin(t *testing.T) {
	_, srv := newTestHub(t)

	host := dialHub(t, srv)
	code, hostID := createRoom(t, host, "alice")
	if len(code) != 6 {
		t.Fatalf("room code %q", code)
	}

	guest := dialHub(t, srv)
	// Untrimmed lowercase input joins the same room.
	guestID := joinRoom(t, guest, " "+strings.ToLower(code)+" ", "bob")
	if guestID == hostID {
		t.Fatal("guest got the host's player ID")
	}

	var joined Player
	decodeInto(t, waitFor(t, host, EvtPlayerJoined), &joined)
	if joined.ID != guestID || joined.Name != "BOB" {
		t.Errorf("player:joined = %+v", joined)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	_, srv := newTestHub(t)

	ws := dialHub(t, srv)
	sendEvent(t, ws, EvtRoomJoin, roomJoinReq{RoomCode: "ZZZZZZ", PlayerName: "bob"})

	var msg errorPayload
	decodeInto(t, waitFor(t, ws, EvtError), &msg)
	if msg.Message != "Room not found" {
		t.Errorf("error = %q", msg.Message)
	}
}

func TestSettingsUpdateBroadcasts(t *testing.T) {
	_, srv := newTestHub(t)

	host := dialHub(t, srv)
	code, _ := createRoom(t, host, "alice")
	guest := dialHub(t, srv)
	joinRoom(t, guest, code, "bob")

	sendEvent(t, host, EvtSettingsUpdate, Settings{PointsToWin: 3, RoundTimeout: 30})

	var got Settings
	decodeInto(t, waitFor(t, guest, EvtSettingsUpdated), &got)
	if got.PointsToWin != 3 || got.RoundTimeout != 30 {
		t.Errorf("settings = %+v", got)
	}
}

func TestGameStartRequiresTwoPlayers(t *testing.T) {
	_, srv := newTestHub(t)

	host := dialHub(t, srv)
	createRoom(t, host, "alice")
	sendEvent(t, host, EvtGameStart, nil)

	var msg errorPayload
	decodeInto(t, waitFor(t, host, EvtError), &msg)
	if !strings.Contains(msg.Message, "2 players") {
		t.Errorf("error = %q", msg.Message)
	}
}

func TestRoundFlowWithDetection(t *testing.T) {
	hub, srv := newTestHub(t)

	host := dialHub(t, srv)
	code, _ := createRoom(t, host, "alice")
	guest := dialHub(t, srv)
	guestID := joinRoom(t, guest, code, "bob")

	sendEvent(t, host, EvtGameStart, nil)
	waitFor(t, host, EvtGameStarted)
	waitFor(t, guest, EvtGameStarted)

	var round roundStartPayload
	decodeInto(t, waitFor(t, guest, EvtRoundStart), &round)
	if round.RoundNumber != 1 || round.ObjectID == "" {
		t.Fatalf("round:start = %+v", round)
	}

	ctx := context.Background()

	// A "none" frame never claims anything.
	hub.HandleDetection(ctx, code, guestID, detect.Result{Label: detect.NoneLabel})

	hit := detect.Result{Label: round.ObjectID, Score: 0.4, Confidence: 0.9}
	hub.HandleDetection(ctx, code, guestID, hit)
	// The round is already claimed; this one must lose the race quietly.
	hub.HandleDetection(ctx, code, guestID, hit)

	var won roundWonPayload
	decodeInto(t, waitFor(t, host, EvtRoundWon), &won)
	if won.WinnerID != guestID || won.WinnerName != "BOB" {
		t.Errorf("round:won = %+v", won)
	}
	if won.Scores[guestID] != 1 {
		t.Errorf("winner score = %d, want 1", won.Scores[guestID])
	}

	// The duplicate claim must not produce a second win; the next event of
	// interest is the following round.
	var next roundStartPayload
	decodeInto(t, waitFor(t, guest, EvtRoundStart), &next)
	if next.RoundNumber != 2 {
		t.Errorf("next round = %d, want 2", next.RoundNumber)
	}
	if next.ObjectID == round.ObjectID {
		t.Errorf("object %q repeated across consecutive rounds", next.ObjectID)
	}
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	_, srv := newTestHub(t)

	host := dialHub(t, srv)
	code, _ := createRoom(t, host, "alice")
	guest := dialHub(t, srv)
	guestID := joinRoom(t, guest, code, "bob")
	waitFor(t, host, EvtPlayerJoined)

	guest.Close()

	var left playerLeftPayload
	decodeInto(t, waitFor(t, host, EvtPlayerLeft), &left)
	if left.PlayerID != guestID {
		t.Errorf("player:left = %+v, want %s", left, guestID)
	}
}
