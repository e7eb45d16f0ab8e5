// room/registry.go
package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itoloop/itoserver/game"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/persistence"
)

// Registry maps room codes to live Room instances. Creation and lookup are
// safe under concurrent callers. A lookup miss falls back to the repository
// so rooms survive a process restart.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	repo      persistence.Repository
	publisher Publisher
}

func NewRegistry(repo persistence.Repository, publisher Publisher) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		repo:      repo,
		publisher: publisher,
	}
}

// CreateRoom creates a room in the lobby phase with its host seated and
// ready. The duplicate check runs here, against both the live map and the
// store, so the domain error comes from the core and not from a unique
// constraint bubbling up.
func (g *Registry) CreateRoom(code, hostDeviceID, hostName string, cfg Config) (*Room, error) {
	code = game.NormalizeRoomCode(code)
	if err := game.ValidateRoomCode(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hostName, err := validateName(hostName)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.rooms[code]; exists {
		return nil, ErrDuplicateCode
	}
	if _, err := g.repo.LoadRoomByCode(code); err == nil {
		return nil, ErrDuplicateCode
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking room code: %w", err)
	}

	now := time.Now()
	hostID := uuid.New().String()
	state := &models.Room{
		ID:           uuid.New().String(),
		Code:         code,
		HostID:       hostID,
		MaxPlayers:   cfg.MaxPlayers,
		Rounds:       cfg.Rounds,
		ClueTime:     cfg.ClueTime,
		GameMode:     cfg.GameMode,
		CustomThemes: append([]string(nil), cfg.CustomThemes...),
		Status:       models.PhaseLobby,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	host := &models.Player{
		ID:        hostID,
		RoomID:    state.ID,
		Name:      hostName,
		DeviceID:  hostDeviceID,
		IsHost:    true,
		IsReady:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := g.repo.SaveRound(state, []*models.Player{host}); err != nil {
		return nil, fmt.Errorf("persisting room: %w", err)
	}

	room := newRoom(state, []*models.Player{host}, nil, g.repo, g.publisher)
	g.rooms[code] = room

	room.mu.Lock()
	room.publishLocked()
	room.mu.Unlock()
	return room, nil
}

// GetRoom resolves a code to its live instance, restoring from the store
// when this process has not seen the room yet.
func (g *Registry) GetRoom(code string) (*Room, error) {
	code = game.NormalizeRoomCode(code)

	g.mu.RLock()
	room, exists := g.rooms[code]
	g.mu.RUnlock()
	if exists {
		return room, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, exists := g.rooms[code]; exists {
		return room, nil
	}

	room, err := g.restoreLocked(code)
	if err != nil {
		return nil, err
	}
	g.rooms[code] = room
	return room, nil
}

// restoreLocked rebuilds a Room from storage; used themes come back from the
// round-result history so theme selection keeps avoiding repeats after a
// restart.
func (g *Registry) restoreLocked(code string) (*Room, error) {
	state, err := g.repo.LoadRoomByCode(code)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %s", ErrNotFound, code)
		}
		return nil, fmt.Errorf("loading room: %w", err)
	}
	players, err := g.repo.LoadPlayers(state.ID)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	results, err := g.repo.LoadRoundResults(state.ID)
	if err != nil {
		return nil, fmt.Errorf("loading round results: %w", err)
	}

	usedThemes := make([]string, 0, len(results)+1)
	for _, res := range results {
		usedThemes = append(usedThemes, res.Theme)
	}
	if state.CurrentTheme != "" {
		usedThemes = append(usedThemes, state.CurrentTheme)
	}

	room := newRoom(state, players, usedThemes, g.repo, g.publisher)
	room.roundStartedAt = time.Now()
	return room, nil
}

// DeleteRoom disposes of a room and cascades its players and results. Host
// only.
func (g *Registry) DeleteRoom(code, deviceID string) error {
	room, err := g.GetRoom(code)
	if err != nil {
		return err
	}

	room.mu.Lock()
	if err := room.requireHostLocked(deviceID); err != nil {
		room.mu.Unlock()
		return err
	}
	roomID := room.state.ID
	room.mu.Unlock()

	if err := g.repo.DeleteRoom(roomID); err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}

	g.mu.Lock()
	delete(g.rooms, game.NormalizeRoomCode(code))
	g.mu.Unlock()
	return nil
}

// Count returns the number of live rooms, for metrics.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
