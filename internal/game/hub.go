package game

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seekr-live/seekr/internal/detect"
	"github.com/seekr-live/seekr/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns every live game WebSocket and drives the room/round flow. Room
// state lives in the Store; the hub keeps only connection bookkeeping and
// local round timers.
type Hub struct {
	store    Store
	detector detect.Detector

	// interRoundDelay separates a round's resolution from the next round's
	// start, long enough for players to see the outcome.
	interRoundDelay time.Duration

	mu     sync.Mutex
	byRoom map[string]map[*client]struct{}
	timers map[string]*time.Timer
	closed bool
}

type client struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	playerID string
	roomCode string
}

// NewHub builds a hub over the given store. The detector is told the active
// object at every round start; pass detect.Null when no inference runs
// in-process.
func NewHub(store Store, detector detect.Detector) *Hub {
	if detector == nil {
		detector = detect.Null{}
	}
	return &Hub{
		store:           store,
		detector:        detector,
		interRoundDelay: 3 * time.Second,
		byRoom:          make(map[string]map[*client]struct{}),
		timers:          make(map[string]*time.Timer),
	}
}

// HandleWS upgrades the request and serves the connection until it drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{ws: ws}
	defer h.disconnect(r.Context(), c)

	for {
		var evt Event
		if err := ws.ReadJSON(&evt); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.LogDebug("game ws read: %v", err)
			}
			return
		}
		h.dispatch(r.Context(), c, evt)
	}
}

// Close cancels all round timers and closes every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for code, t := range h.timers {
		t.Stop()
		delete(h.timers, code)
	}
	var conns []*client
	for _, set := range h.byRoom {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.ws.Close()
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, evt Event) {
	switch evt.Type {
	case EvtRoomCreate:
		h.roomCreate(ctx, c, evt)
	case EvtRoomJoin:
		h.roomJoin(ctx, c, evt)
	case EvtSettingsUpdate:
		h.settingsUpdate(ctx, c, evt)
	case EvtPlayerRemove:
		h.playerRemove(ctx, c, evt)
	case EvtGameStart:
		h.gameStart(ctx, c)
	default:
		c.send(mustEvent(EvtError, errorPayload{Message: "unknown event: " + evt.Type}))
	}
}

// ─── connection bookkeeping ────────────────────────────────────────────────

func (c *client) send(evt Event) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(evt); err != nil {
		util.LogDebug("game ws write: %v", err)
	}
}

func (h *Hub) join(c *client, code, playerID string) {
	h.mu.Lock()
	c.roomCode = code
	c.playerID = playerID
	set, ok := h.byRoom[code]
	if !ok {
		set = make(map[*client]struct{})
		h.byRoom[code] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// broadcast sends evt to every connection in the room, optionally skipping one.
func (h *Hub) broadcast(code string, evt Event, skip *client) {
	h.mu.Lock()
	var targets []*client
	for c := range h.byRoom[code] {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.send(evt)
	}
}

func (h *Hub) disconnect(ctx context.Context, c *client) {
	c.ws.Close()

	h.mu.Lock()
	code, playerID := c.roomCode, c.playerID
	if set, ok := h.byRoom[code]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byRoom, code)
		}
	}
	h.mu.Unlock()

	if code == "" {
		return
	}

	room, err := h.store.Get(ctx, code)
	if err != nil {
		return
	}

	room.RemovePlayer(playerID)
	if len(room.Players) == 0 {
		h.stopTimer(code)
		h.store.Delete(ctx, code)
		return
	}

	// Re-assign host if the host left.
	if room.HostID == playerID {
		room.HostID = room.Players[0].ID
	}

	if err := h.store.Set(ctx, code, room); err != nil {
		util.LogWarning("persist room %s: %v", code, err)
		return
	}
	h.broadcast(code, mustEvent(EvtPlayerLeft, playerLeftPayload{PlayerID: playerID}), nil)
}

// ─── room management ───────────────────────────────────────────────────────

func (h *Hub) roomCreate(ctx context.Context, c *client, evt Event) {
	var req roomCreateReq
	if err := decode(evt, &req); err != nil {
		c.send(mustEvent(EvtError, errorPayload{Message: "bad room:create payload"}))
		return
	}

	code := GenerateRoomCode()
	for {
		exists, err := h.store.Exists(ctx, code)
		if err != nil {
			c.send(mustEvent(EvtError, errorPayload{Message: "store unavailable"}))
			return
		}
		if !exists {
			break
		}
		code = GenerateRoomCode()
	}

	player := NewPlayer(req.PlayerName)
	room := NewRoom(code, player)
	if err := h.store.Set(ctx, code, room); err != nil {
		c.send(mustEvent(EvtError, errorPayload{Message: "store unavailable"}))
		return
	}

	h.join(c, code, player.ID)

	c.send(mustEvent(EvtRoomCreated, roomCreatedPayload{RoomCode: code}))
	c.send(mustEvent(EvtRoomJoined, roomJoinedPayload{
		Players:  room.Players,
		Settings: room.Settings,
		PlayerID: player.ID,
		HostID:   player.ID,
	}))
	util.LogInfo("room %s created by %s", code, player.Name)
}

func (h *Hub) roomJoin(ctx context.Context, c *client, evt Event) {
	var req roomJoinReq
	if err := decode(evt, &req); err != nil {
		c.send(mustEvent(EvtError, errorPayload{Message: "bad room:join payload"}))
		return
	}

	code := normalizeCode(req.RoomCode)
	room, err := h.store.Get(ctx, code)
	if errors.Is(err, ErrRoomNotFound) {
		c.send(mustEvent(EvtError, errorPayload{Message: "Room not found"}))
		return
	}
	if err != nil {
		c.send(mustEvent(EvtError, errorPayload{Message: "store unavailable"}))
		return
	}
	if room.Phase != PhaseLobby {
		c.send(mustEvent(EvtError, errorPayload{Message: "Game already in progress"}))
		return
	}

	player := NewPlayer(req.PlayerName)
	room.Players = append(room.Players, player)
	if err := h.store.Set(ctx, code, room); err != nil {
		c.send(mustEvent(EvtError, errorPayload{Message: "store unavailable"}))
		return
	}

	h.join(c, code, player.ID)

	c.send(mustEvent(EvtRoomJoined, roomJoinedPayload{
		Players:  room.Players,
		Settings: room.Settings,
		PlayerID: player.ID,
		HostID:   room.HostID,
	}))
	h.broadcast(code, mustEvent(EvtPlayerJoined, player), c)
	util.LogInfo("room %s joined by %s", code, player.Name)
}

func (h *Hub) settingsUpdate(ctx context.Context, c *client, evt Event) {
	var req Settings
	if err := decode(evt, &req); err != nil {
		return
	}

	room, err := h.hostRoom(ctx, c)
	if err != nil {
		return
	}

	room.ApplySettings(req)
	if err := h.store.Set(ctx, room.Code, room); err != nil {
		return
	}
	h.broadcast(room.Code, mustEvent(EvtSettingsUpdated, room.Settings), nil)
}

func (h *Hub) playerRemove(ctx context.Context, c *client, evt Event) {
	var req playerRemoveReq
	if err := decode(evt, &req); err != nil {
		return
	}

	room, err := h.hostRoom(ctx, c)
	if err != nil {
		return
	}

	if !room.RemovePlayer(req.PlayerID) {
		return
	}
	if err := h.store.Set(ctx, room.Code, room); err != nil {
		return
	}
	h.broadcast(room.Code, mustEvent(EvtPlayerLeft, playerLeftPayload{PlayerID: req.PlayerID}), nil)
}

// hostRoom loads the caller's room and verifies the caller hosts it.
func (h *Hub) hostRoom(ctx context.Context, c *client) (*Room, error) {
	if c.roomCode == "" {
		return nil, ErrRoomNotFound
	}
	room, err := h.store.Get(ctx, c.roomCode)
	if err != nil {
		return nil, err
	}
	if room.HostID != c.playerID {
		return nil, errors.New("game: not the host")
	}
	return room, nil
}

// ─── game flow ─────────────────────────────────────────────────────────────

func (h *Hub) gameStart(ctx context.Context, c *client) {
	room, err := h.hostRoom(ctx, c)
	if err != nil {
		return
	}
	if len(room.Players) < 2 {
		c.send(mustEvent(EvtError, errorPayload{Message: "Need at least 2 players to start"}))
		return
	}
	if room.Phase != PhaseLobby {
		return
	}

	room.Phase = PhaseGame
	room.RoundNumber = 0
	room.UsedObjectIDs = nil
	room.CurrentRound = nil
	if err := h.store.Set(ctx, room.Code, room); err != nil {
		return
	}

	h.broadcast(room.Code, mustEvent(EvtGameStarted, gameStartedPayload{
		Players:  room.Players,
		Settings: room.Settings,
	}), nil)
	util.LogInfo("game started in %s", room.Code)

	h.after(time.Second, func() { h.startNextRound(context.Background(), room.Code) })
}

func (h *Hub) startNextRound(ctx context.Context, code string) {
	room, err := h.store.Get(ctx, code)
	if err != nil || room.Phase != PhaseGame {
		return
	}

	used := make(map[string]bool, len(room.UsedObjectIDs))
	for _, id := range room.UsedObjectIDs {
		used[id] = true
	}
	obj := detect.Random(used)
	if used[obj.ID] {
		// Bank exhausted; the exclusion list starts over.
		room.UsedObjectIDs = nil
	}
	room.UsedObjectIDs = append(room.UsedObjectIDs, obj.ID)

	room.RoundNumber++
	rnd := &Round{
		ID:          strconv.Itoa(room.RoundNumber),
		ObjectID:    obj.ID,
		DisplayName: obj.DisplayName,
	}
	room.CurrentRound = rnd

	h.detector.SetActiveObject(obj)

	if err := h.store.Set(ctx, code, room); err != nil {
		return
	}

	timeout := time.Duration(room.Settings.RoundTimeout) * time.Second
	h.setTimer(code, timeout, func() { h.roundTimedOut(context.Background(), code, rnd.ID) })

	h.broadcast(code, mustEvent(EvtRoundStart, roundStartPayload{
		RoundNumber:    room.RoundNumber,
		ObjectID:       obj.ID,
		DisplayName:    obj.DisplayName,
		TimeoutSeconds: room.Settings.RoundTimeout,
		Players:        room.Players,
		Scores:         room.Scores(),
	}), nil)
	util.LogInfo("round %d in %s: %s", room.RoundNumber, code, obj.DisplayName)
}

// HandleDetection is the bridge from the streaming side: called whenever a
// player's frame scored a positive detection. Only the first claim of a round
// wins; everything later is a no-op.
func (h *Hub) HandleDetection(ctx context.Context, code, playerID string, res detect.Result) {
	if res.Label == detect.NoneLabel {
		return
	}

	room, err := h.store.Get(ctx, code)
	if err != nil || room.Phase != PhaseGame || room.CurrentRound == nil {
		return
	}
	rnd := room.CurrentRound

	won, err := h.store.ClaimRoundWin(ctx, code, rnd.ID, playerID)
	if err != nil || !won {
		return
	}

	winner := room.FindPlayer(playerID)
	if winner == nil {
		return
	}
	winner.Score++
	rnd.WinnerID = playerID
	rnd.WinnerName = winner.Name
	if err := h.store.Set(ctx, code, room); err != nil {
		return
	}

	h.stopTimer(code)
	util.LogInfo("round won by %s in %s (score %d)", winner.Name, code, winner.Score)

	h.broadcast(code, mustEvent(EvtRoundWon, roundWonPayload{
		WinnerID:    playerID,
		WinnerName:  winner.Name,
		ObjectID:    rnd.ObjectID,
		DisplayName: rnd.DisplayName,
		Players:     room.Players,
		Scores:      room.Scores(),
	}), nil)

	if winner.Score >= room.Settings.PointsToWin {
		h.after(h.interRoundDelay, func() { h.endGame(context.Background(), code, playerID, winner.Name) })
		return
	}
	h.after(h.interRoundDelay, func() { h.startNextRound(context.Background(), code) })
}

func (h *Hub) roundTimedOut(ctx context.Context, code, roundID string) {
	room, err := h.store.Get(ctx, code)
	if err != nil || room.Phase != PhaseGame {
		return
	}
	rnd := room.CurrentRound
	if rnd == nil || rnd.ID != roundID {
		return
	}

	// Sentinel claim: a win racing this timeout loses exactly one of the two.
	claimed, err := h.store.ClaimRoundWin(ctx, code, roundID, TimeoutClaimant)
	if err != nil || !claimed {
		return
	}

	util.LogInfo("round %s timed out in %s", roundID, code)
	h.broadcast(code, mustEvent(EvtRoundTimeout, roundTimeoutPayload{
		ObjectID:    rnd.ObjectID,
		DisplayName: rnd.DisplayName,
		Scores:      room.Scores(),
	}), nil)

	h.after(h.interRoundDelay, func() { h.startNextRound(context.Background(), code) })
}

func (h *Hub) endGame(ctx context.Context, code, winnerID, winnerName string) {
	room, err := h.store.Get(ctx, code)
	if err != nil {
		return
	}

	room.Phase = PhaseResults
	if err := h.store.Set(ctx, code, room); err != nil {
		return
	}
	h.stopTimer(code)

	h.broadcast(code, mustEvent(EvtGameEnded, gameEndedPayload{
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Players:    room.Players,
		Scores:     room.Scores(),
	}), nil)
	util.LogInfo("game ended in %s, winner %s", code, winnerName)
}

// ─── timers ────────────────────────────────────────────────────────────────

func (h *Hub) setTimer(code string, d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if t, ok := h.timers[code]; ok {
		t.Stop()
	}
	h.timers[code] = time.AfterFunc(d, fn)
}

func (h *Hub) stopTimer(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[code]; ok {
		t.Stop()
		delete(h.timers, code)
	}
}

// after schedules fn unless the hub is closed.
func (h *Hub) after(d time.Duration, fn func()) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return
	}
	time.AfterFunc(d, fn)
}
