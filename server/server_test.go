package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/itoloop/itoserver/broadcast"
	"github.com/itoloop/itoserver/config"
	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/monitor"
	"github.com/itoloop/itoserver/network"
	"github.com/itoloop/itoserver/persistence"
	"github.com/itoloop/itoserver/room"
	"github.com/itoloop/itoserver/services"
	"github.com/itoloop/itoserver/session"
	"github.com/itoloop/itoserver/timer"
)

// Prometheus collectors register globally, so the test monitor is shared.
var testMonitor *monitor.Monitor

func TestMain(m *testing.M) {
	logger.Init()
	testMonitor = monitor.NewMonitor("itoserver_test")
	m.Run()
}

// memRepository keeps everything in maps; good enough for handler tests.
type memRepository struct {
	mu      sync.Mutex
	rooms   map[string]*models.Room
	players map[string][]*models.Player
	results map[string][]*models.RoundResult
}

func newMemRepository() *memRepository {
	return &memRepository{
		rooms:   make(map[string]*models.Room),
		players: make(map[string][]*models.Player),
		results: make(map[string][]*models.RoundResult),
	}
}

func (m *memRepository) SaveRoom(r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rooms[r.ID] = &cp
	return nil
}

func (m *memRepository) LoadRoomByCode(code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, persistence.ErrRecordNotFound
}

func (m *memRepository) SavePlayer(p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savePlayerLocked(p)
	return nil
}

func (m *memRepository) savePlayerLocked(p *models.Player) {
	cp := *p
	seats := m.players[p.RoomID]
	for i, existing := range seats {
		if existing.ID == p.ID {
			seats[i] = &cp
			return
		}
	}
	m.players[p.RoomID] = append(seats, &cp)
}

func (m *memRepository) LoadPlayers(roomID string) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Player, 0, len(m.players[roomID]))
	for _, p := range m.players[roomID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepository) DeletePlayer(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for roomID, seats := range m.players {
		for i, p := range seats {
			if p.ID == playerID {
				m.players[roomID] = append(seats[:i], seats[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memRepository) DeleteRoom(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	delete(m.players, roomID)
	delete(m.results, roomID)
	return nil
}

func (m *memRepository) AppendRoundResult(r *models.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.results[r.RoomID] {
		if existing.RoundNumber == r.RoundNumber {
			return fmt.Errorf("duplicate round result %d", r.RoundNumber)
		}
	}
	cp := *r
	m.results[r.RoomID] = append(m.results[r.RoomID], &cp)
	return nil
}

func (m *memRepository) LoadRoundResults(roomID string) ([]*models.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.RoundResult, 0, len(m.results[roomID]))
	for _, r := range m.results[roomID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepository) SaveRound(r *models.Room, players []*models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rooms[r.ID] = &cp
	for _, p := range players {
		m.savePlayerLocked(p)
	}
	return nil
}

func (m *memRepository) Close() error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := &GameServer{
		sessionManager: session.NewManager(),
		timerManager:   timer.NewTimerManager(),
		monitor:        testMonitor,
		defaults: config.GameConfig{
			DefaultMaxPlayers: 8,
			DefaultRounds:     2,
			DefaultClueTime:   60,
			DefaultGameMode:   "classic",
		},
		shutdownChan: make(chan struct{}),
		clueTimers:   make(map[string]int64),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	repo := newMemRepository()
	s.gateway = broadcast.NewGateway(s.sessionManager)
	s.registry = room.NewRegistry(repo, s.gateway)
	s.resultsService = services.NewResultsService(repo)

	ts := httptest.NewServer(s.instrument(s.routes()))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var raw map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&raw)
	return resp, raw
}

func decodeSnapshot(t *testing.T, raw map[string]json.RawMessage) room.Snapshot {
	t.Helper()
	var snap room.Snapshot
	if err := json.Unmarshal(raw["room"], &snap.Room); err != nil {
		t.Fatalf("Response has no room object: %v", err)
	}
	if err := json.Unmarshal(raw["players"], &snap.Players); err != nil {
		t.Fatalf("Response has no players array: %v", err)
	}
	return snap
}

func TestCreateRoom_GeneratedCodeAndDefaults(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/rooms",
		map[string]string{"device_id": "device-host", "name": "Ana"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	snap := decodeSnapshot(t, raw)
	if len(snap.Room.Code) != 6 {
		t.Errorf("Expected a generated 6-char code, got %q", snap.Room.Code)
	}
	if snap.Room.Status != models.PhaseLobby {
		t.Errorf("Expected lobby status, got %q", snap.Room.Status)
	}
	if snap.Room.MaxPlayers != 8 || snap.Room.Rounds != 2 || snap.Room.ClueTime != 60 {
		t.Errorf("Defaults not applied: %+v", snap.Room)
	}
	if len(snap.Players) != 1 || !snap.Players[0].IsHost || !snap.Players[0].IsReady {
		t.Errorf("Expected a single ready host seat, got %+v", snap.Players)
	}
}

func TestCreateRoom_InvalidConfig(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/rooms",
		map[string]interface{}{"device_id": "device-host", "name": "Ana", "rounds": 99})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for out-of-range rounds, got %d", resp.StatusCode)
	}
}

func TestCreateRoom_DuplicateCode(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"code": "AB2CD3", "device_id": "device-host", "name": "Ana"}
	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("First create failed with %d", resp.StatusCode)
	}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409 for duplicate code, got %d", resp.StatusCode)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/ZZZZZ2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGameFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/rooms"

	resp, _ := doJSON(t, http.MethodPost, base,
		map[string]string{"code": "AB2CD3", "device_id": "device-host", "name": "Ana"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create failed with %d", resp.StatusCode)
	}

	for i, name := range []string{"Bruno", "Clara"} {
		resp, _ := doJSON(t, http.MethodPost, base+"/AB2CD3/join",
			map[string]string{"device_id": fmt.Sprintf("device-%d", i), "name": name})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Join %s failed with %d", name, resp.StatusCode)
		}
	}

	// Non-host cannot start.
	resp, _ = doJSON(t, http.MethodPost, base+"/AB2CD3/start", map[string]string{"device_id": "device-0"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-host start, got %d", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodPost, base+"/AB2CD3/start", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Start failed with %d", resp.StatusCode)
	}
	snap := decodeSnapshot(t, raw)
	if snap.Room.Status != models.PhaseBriefing {
		t.Fatalf("Expected briefing after start, got %q", snap.Room.Status)
	}
	if snap.Room.CurrentTheme == "" {
		t.Error("Expected a theme after start")
	}

	// The host sees its own number, nobody else's.
	own := 0
	for _, p := range snap.Players {
		if p.SecretNumber != nil {
			own++
			if p.DeviceID != "device-host" {
				t.Errorf("Secret number leaked for device %s", p.DeviceID)
			}
		}
	}
	if own != 1 {
		t.Errorf("Expected exactly the caller's own number, got %d visible", own)
	}

	// Advance into clues; submitting a clue requires it.
	resp, _ = doJSON(t, http.MethodPost, base+"/AB2CD3/clue",
		map[string]string{"device_id": "device-host", "clue": "quente demais"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409 for clue outside clues phase, got %d", resp.StatusCode)
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/AB2CD3/advance", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Advance to clues failed with %d", resp.StatusCode)
	}
	if snap = decodeSnapshot(t, raw); snap.Room.Status != models.PhaseClues {
		t.Fatalf("Expected clues phase, got %q", snap.Room.Status)
	}

	// The gate: advancing with pending clues fails.
	resp, _ = doJSON(t, http.MethodPost, base+"/AB2CD3/advance", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409 while clues are pending, got %d", resp.StatusCode)
	}

	for _, device := range []string{"device-host", "device-0", "device-1"} {
		resp, _ = doJSON(t, http.MethodPost, base+"/AB2CD3/clue",
			map[string]string{"device_id": device, "clue": "morno como caldo"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Clue from %s failed with %d", device, resp.StatusCode)
		}
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/AB2CD3/advance", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Advance to discussion failed with %d", resp.StatusCode)
	}
	if snap = decodeSnapshot(t, raw); snap.Room.Status != models.PhaseDiscussion {
		t.Fatalf("Expected discussion phase, got %q", snap.Room.Status)
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/AB2CD3/advance", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Advance to reveal failed with %d", resp.StatusCode)
	}
	snap = decodeSnapshot(t, raw)
	if snap.Room.Status != models.PhaseReveal {
		t.Fatalf("Expected reveal phase, got %q", snap.Room.Status)
	}
	for _, p := range snap.Players {
		if p.SecretNumber == nil {
			t.Errorf("Expected public numbers at reveal, %s has none", p.Name)
		}
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/AB2CD3/advance", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Finishing the round failed with %d", resp.StatusCode)
	}
	if snap = decodeSnapshot(t, raw); snap.Room.Status != models.PhaseBriefing || snap.Room.CurrentRound != 2 {
		t.Fatalf("Expected round 2 briefing, got %q round %d", snap.Room.Status, snap.Room.CurrentRound)
	}

	// Round history is queryable mid-game.
	resp, raw = doJSON(t, http.MethodGet, base+"/AB2CD3/results", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Results failed with %d", resp.StatusCode)
	}
	var results []*models.RoundResult
	if err := json.Unmarshal(raw["results"], &results); err != nil {
		t.Fatalf("Results payload unreadable: %v", err)
	}
	if len(results) != 1 || results[0].RoundNumber != 1 {
		t.Fatalf("Expected one result for round 1, got %+v", results)
	}
}

func TestDeleteRoom_HostOnly(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/rooms"

	if resp, _ := doJSON(t, http.MethodPost, base,
		map[string]string{"code": "AB2CD3", "device_id": "device-host", "name": "Ana"}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create failed with %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, http.MethodPost, base+"/AB2CD3/join",
		map[string]string{"device_id": "device-1", "name": "Bruno"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("Join failed with %d", resp.StatusCode)
	}

	resp, _ := doJSON(t, http.MethodDelete, base+"/AB2CD3", map[string]string{"device_id": "device-1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-host delete, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, base+"/AB2CD3", map[string]string{"device_id": "device-host"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204 for host delete, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/AB2CD3", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestWebSocketSubscribeReceivesBroadcast(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/rooms"

	if resp, _ := doJSON(t, http.MethodPost, base,
		map[string]string{"code": "AB2CD3", "device_id": "device-host", "name": "Ana"}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create failed with %d", resp.StatusCode)
	}

	wsURL := "ws" + ts.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	sub, _ := json.Marshal(map[string]string{"device_id": "device-watch", "room_code": "AB2CD3"})
	frame := make([]byte, 4+len(sub))
	binary.BigEndian.PutUint16(frame[0:2], network.MsgTypeSubscribe)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(sub)))
	copy(frame[4:], sub)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("Subscribe write failed: %v", err)
	}

	// The subscribe reply carries the current snapshot.
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(msg) < 4 || binary.BigEndian.Uint16(msg[0:2]) != network.MsgTypeSnapshot {
		t.Fatalf("Expected snapshot frame, got % x", msg)
	}
	var snap room.Snapshot
	if err := json.Unmarshal(msg[4:], &snap); err != nil {
		t.Fatalf("Snapshot payload unreadable: %v", err)
	}
	if snap.Room.Code != "AB2CD3" {
		t.Fatalf("Expected snapshot for AB2CD3, got %q", snap.Room.Code)
	}

	// A mutation broadcast reaches the subscriber.
	if resp, _ := doJSON(t, http.MethodPost, base+"/AB2CD3/join",
		map[string]string{"device_id": "device-1", "name": "Bruno"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("Join failed with %d", resp.StatusCode)
	}
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Broadcast read failed: %v", err)
	}
	if err := json.Unmarshal(msg[4:], &snap); err != nil {
		t.Fatalf("Broadcast payload unreadable: %v", err)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("Expected 2 seats in broadcast, got %d", len(snap.Players))
	}
}
