// server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/itoloop/itoserver/game"
	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/room"
	"github.com/itoloop/itoserver/services"
)

// createCodeAttempts bounds the retry loop when the caller lets the server
// pick the room code and the pick collides.
const createCodeAttempts = 5

type createRoomRequest struct {
	Code         string   `json:"code"`
	DeviceID     string   `json:"device_id"`
	Name         string   `json:"name"`
	MaxPlayers   int      `json:"max_players"`
	Rounds       int      `json:"rounds"`
	ClueTime     int      `json:"clue_time"`
	GameMode     string   `json:"game_mode"`
	CustomThemes []string `json:"custom_themes"`
}

type deviceRequest struct {
	DeviceID string `json:"device_id"`
}

type joinRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type readyRequest struct {
	DeviceID string `json:"device_id"`
	Ready    bool   `json:"ready"`
}

type clueRequest struct {
	DeviceID string `json:"device_id"`
	Clue     string `json:"clue"`
}

type positionRequest struct {
	DeviceID string `json:"device_id"`
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cfg := room.Config{
		MaxPlayers:   req.MaxPlayers,
		Rounds:       req.Rounds,
		ClueTime:     req.ClueTime,
		GameMode:     models.GameMode(req.GameMode),
		CustomThemes: req.CustomThemes,
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = s.defaults.DefaultMaxPlayers
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = s.defaults.DefaultRounds
	}
	if cfg.ClueTime == 0 {
		cfg.ClueTime = s.defaults.DefaultClueTime
	}
	if cfg.GameMode == "" {
		cfg.GameMode = models.GameMode(s.defaults.DefaultGameMode)
	}

	var (
		rm  *room.Room
		err error
	)
	if req.Code != "" {
		rm, err = s.registry.CreateRoom(req.Code, req.DeviceID, req.Name, cfg)
	} else {
		for i := 0; i < createCodeAttempts; i++ {
			rm, err = s.registry.CreateRoom(game.GenerateRoomCode(), req.DeviceID, req.Name, cfg)
			if !errors.Is(err, room.ErrDuplicateCode) {
				break
			}
		}
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.monitor.SetActiveRooms(s.registry.Count())
	logger.Log.Infof("Device %s created room %s", req.DeviceID, rm.Code())
	s.writeJSON(w, http.StatusCreated, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(r.URL.Query().Get("device_id")))
}

func (s *GameServer) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	code := game.NormalizeRoomCode(r.PathValue("code"))
	if err := s.registry.DeleteRoom(code, req.DeviceID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.dropClueTimer(code)
	s.monitor.SetActiveRooms(s.registry.Count())
	logger.Log.Infof("Device %s deleted room %s", req.DeviceID, code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *GameServer) handleResults(w http.ResponseWriter, r *http.Request) {
	summary, err := s.resultsService.GetRoomSummary(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *GameServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if _, err := rm.Join(req.DeviceID, req.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.SetReady(req.DeviceID, req.Ready); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.StartGame(req.DeviceID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.syncClueTimer(rm)
	logger.Log.Infof("Room %s started by device %s", rm.Code(), req.DeviceID)
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.AdvancePhase(req.DeviceID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.syncClueTimer(rm)
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleClue(w http.ResponseWriter, r *http.Request) {
	var req clueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.SubmitClue(req.DeviceID, req.Clue); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.UpdatePosition(req.DeviceID, req.PlayerID, req.Position); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.SnapshotFor(req.DeviceID))
}

func (s *GameServer) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rm, err := s.registry.GetRoom(r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := rm.Leave(req.DeviceID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.Snapshot())
}

func (s *GameServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to encode response: %v", err)
	}
}

func (s *GameServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.monitor.IncOperationErrors()
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the room error taxonomy onto HTTP statuses.
func (s *GameServer) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrNotFound), errors.Is(err, services.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, room.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, room.ErrPhase),
		errors.Is(err, room.ErrNotAllReady),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrDuplicateCode):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("Operation failed: %v", err)
	}
	s.writeError(w, status, err.Error())
}
