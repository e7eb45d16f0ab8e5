// room/room.go
package room

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itoloop/itoserver/game"
	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/persistence"
)

const (
	MinPlayers = 3
	MaxRounds  = 20

	minClueTime = 10
	maxClueTime = 600
	maxNameLen  = 32
)

// Config carries the host-chosen settings for a new room.
type Config struct {
	MaxPlayers   int
	Rounds       int
	ClueTime     int
	GameMode     models.GameMode
	CustomThemes []string
}

// Validate checks the configuration bounds. MaxPlayers is capped by the
// number range: every active player needs a distinct number from [1, 100].
func (c Config) Validate() error {
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > game.NumberMax {
		return fmt.Errorf("%w: max players must be between %d and %d", ErrValidation, MinPlayers, game.NumberMax)
	}
	if c.Rounds < 1 || c.Rounds > MaxRounds {
		return fmt.Errorf("%w: rounds must be between 1 and %d", ErrValidation, MaxRounds)
	}
	if c.ClueTime < minClueTime || c.ClueTime > maxClueTime {
		return fmt.Errorf("%w: clue time must be between %d and %d seconds", ErrValidation, minClueTime, maxClueTime)
	}
	if !c.GameMode.Valid() {
		return fmt.Errorf("%w: unknown game mode %q", ErrValidation, c.GameMode)
	}
	return nil
}

// Room owns one session's authoritative state. Every mutating operation
// serializes on mu, validates, persists the would-be state, and only then
// commits it in memory; a failed operation never leaves a partial mutation
// behind. Independent rooms mutate fully in parallel.
type Room struct {
	mu             sync.Mutex
	state          *models.Room
	players        []*models.Player // insertion order
	usedThemes     []string
	roundStartedAt time.Time

	repo      persistence.Repository
	publisher Publisher
}

func newRoom(state *models.Room, players []*models.Player, usedThemes []string,
	repo persistence.Repository, publisher Publisher) *Room {
	return &Room{
		state:      state,
		players:    players,
		usedThemes: usedThemes,
		repo:       repo,
		publisher:  publisher,
	}
}

// Code returns the room's shareable code.
func (r *Room) Code() string {
	return r.state.Code
}

// ID returns the room's storage id.
func (r *Room) ID() string {
	return r.state.ID
}

// HostDeviceID returns the host seat's device id, or false for a hostless
// room (the host left and host status does not transfer).
func (r *Room) HostDeviceID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.IsHost {
			return p.DeviceID, true
		}
	}
	return "", false
}

// Snapshot returns a consistent read-only view with secrets redacted.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked("")
}

// SnapshotFor returns the view for one device, including that device's own
// secret number.
func (r *Room) SnapshotFor(deviceID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(deviceID)
}

// Join adds a seat while the room is in the lobby. A device that already
// holds a seat gets it back unchanged in any phase, since reconnects must not
// create duplicates or trip the phase gate.
func (r *Room) Join(deviceID, name string) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findByDeviceLocked(deviceID); existing != nil {
		cp := *existing
		return &cp, nil
	}

	if r.state.Status != models.PhaseLobby {
		return nil, fmt.Errorf("%w: cannot join in phase %q", ErrPhase, r.state.Status)
	}
	if len(r.players) >= r.state.MaxPlayers {
		return nil, ErrRoomFull
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	player := &models.Player{
		ID:        uuid.New().String(),
		RoomID:    r.state.ID,
		Name:      name,
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.SavePlayer(player); err != nil {
		return nil, fmt.Errorf("persisting player: %w", err)
	}

	r.players = append(r.players, player)
	r.publishLocked()

	cp := *player
	return &cp, nil
}

// SetReady toggles a seat's ready flag. Legal in the lobby and during the
// clue phase; readiness has no meaning anywhere else.
func (r *Room) SetReady(deviceID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != models.PhaseLobby && r.state.Status != models.PhaseClues {
		return fmt.Errorf("%w: cannot set ready in phase %q", ErrPhase, r.state.Status)
	}
	player := r.findByDeviceLocked(deviceID)
	if player == nil {
		return fmt.Errorf("%w: no player for device", ErrNotFound)
	}

	updated := *player
	updated.IsReady = ready
	updated.UpdatedAt = time.Now()
	if err := r.repo.SavePlayer(&updated); err != nil {
		return fmt.Errorf("persisting player: %w", err)
	}

	*player = updated
	r.publishLocked()
	return nil
}

// StartGame leaves the lobby: distributes numbers and positions, picks the
// first theme and enters briefing of round 1. Host only, three active
// players minimum.
func (r *Room) StartGame(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != models.PhaseLobby {
		return fmt.Errorf("%w: game already started", ErrPhase)
	}
	if err := r.requireHostLocked(deviceID); err != nil {
		return err
	}
	if r.activeCountLocked() < MinPlayers {
		return fmt.Errorf("%w: need at least %d active players", ErrValidation, MinPlayers)
	}

	theme := game.NextTheme(nil, r.state.CustomThemes)
	newState, newPlayers, err := r.dealRoundLocked(1, theme)
	if err != nil {
		return err
	}
	newState.Status = models.PhaseBriefing

	if err := r.repo.SaveRound(newState, newPlayers); err != nil {
		return fmt.Errorf("persisting round start: %w", err)
	}

	r.state = newState
	r.players = newPlayers
	r.usedThemes = []string{theme}
	r.roundStartedAt = time.Now()
	r.publishLocked()
	return nil
}

// AdvancePhase walks the forward chain one step. Host only. The clues ->
// discussion step is the concurrency gate: it refuses to move while any
// active player still owes a clue.
func (r *Room) AdvancePhase(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(deviceID); err != nil {
		return err
	}

	switch r.state.Status {
	case models.PhaseBriefing, models.PhaseDiscussion:
		return r.stepLocked()
	case models.PhaseClues:
		for _, p := range r.players {
			if p.Active() && !p.IsReady {
				return fmt.Errorf("%w: waiting for clue from %s", ErrNotAllReady, p.Name)
			}
		}
		return r.stepLocked()
	case models.PhaseReveal:
		return r.finishRoundLocked()
	default:
		return fmt.Errorf("%w: cannot advance from phase %q", ErrPhase, r.state.Status)
	}
}

// stepLocked performs a status-only transition.
func (r *Room) stepLocked() error {
	next, err := game.NextPhase(r.state.Status, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPhase, err)
	}

	newState := *r.state
	newState.Status = next
	newState.UpdatedAt = time.Now()
	if err := r.repo.SaveRoom(&newState); err != nil {
		return fmt.Errorf("persisting phase change: %w", err)
	}

	r.state = &newState
	r.publishLocked()
	return nil
}

// finishRoundLocked scores the reveal, appends the round result, and either
// deals the next round or finishes the game.
func (r *Room) finishRoundLocked() error {
	active := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Active() {
			active = append(active, p)
		}
	}
	outcome := game.EvaluateOrder(active, r.state.GameMode)

	completion := int(time.Since(r.roundStartedAt).Seconds())
	result := &models.RoundResult{
		ID:             uuid.New().String(),
		RoomID:         r.state.ID,
		RoundNumber:    r.state.CurrentRound,
		Theme:          r.state.CurrentTheme,
		WasCorrect:     outcome.Correct,
		Mistakes:       outcome.Mistakes,
		CompletionTime: &completion,
		CreatedAt:      time.Now(),
	}

	lastRound := r.state.CurrentRound >= r.state.Rounds
	var newState *models.Room
	var newPlayers []*models.Player
	var theme string

	if lastRound {
		st := *r.state
		st.Status = models.PhaseFinished
		st.CurrentTheme = ""
		st.UpdatedAt = time.Now()
		newState = &st
		newPlayers = clonePlayers(r.players)
	} else {
		theme = game.NextTheme(r.usedThemes, r.state.CustomThemes)
		st, players, err := r.dealRoundLocked(r.state.CurrentRound+1, theme)
		if err != nil {
			return err
		}
		st.Status = models.PhaseBriefing
		newState = st
		newPlayers = players
	}

	if outcome.Correct {
		for _, p := range newPlayers {
			if p.Active() {
				p.Score++
			}
		}
	}

	// The result row is written first; (room_id, round_number) uniqueness in
	// the store keeps a replayed advance from double-scoring.
	if err := r.repo.AppendRoundResult(result); err != nil {
		return fmt.Errorf("persisting round result: %w", err)
	}
	if err := r.repo.SaveRound(newState, newPlayers); err != nil {
		return fmt.Errorf("persisting round transition: %w", err)
	}

	r.state = newState
	r.players = newPlayers
	if !lastRound {
		r.usedThemes = append(r.usedThemes, theme)
		r.roundStartedAt = time.Now()
	}
	r.publishLocked()
	return nil
}

// dealRoundLocked builds the room and roster for a fresh round: distinct
// numbers and initial positions for active seats, ready flags and clues
// cleared everywhere. Nothing is committed; the caller persists and swaps.
func (r *Room) dealRoundLocked(roundNumber int, theme string) (*models.Room, []*models.Player, error) {
	numbers, err := game.DistributeNumbers(r.activeCountLocked())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	newPlayers := clonePlayers(r.players)
	i := 0
	for _, p := range newPlayers {
		p.IsReady = false
		p.Clue = nil
		p.SecretNumber = nil
		p.Position = nil
		p.UpdatedAt = now
		if p.Active() {
			num := numbers[i]
			pos := i
			p.SecretNumber = &num
			p.Position = &pos
			i++
		}
	}

	newState := *r.state
	newState.CurrentRound = roundNumber
	newState.CurrentTheme = theme
	newState.UpdatedAt = now
	return &newState, newPlayers, nil
}

// SubmitClue stores a clue during the clue phase and marks the seat ready.
// Submitting and being ready are deliberately the same transition; splitting
// them later only touches this method.
func (r *Room) SubmitClue(deviceID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != models.PhaseClues {
		return fmt.Errorf("%w: clues are only accepted in phase %q", ErrPhase, models.PhaseClues)
	}
	player := r.findByDeviceLocked(deviceID)
	if player == nil {
		return fmt.Errorf("%w: no player for device", ErrNotFound)
	}
	if !player.Active() {
		return fmt.Errorf("%w: spectators do not submit clues", ErrValidation)
	}
	if err := game.ValidateClue(text); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	updated := *player
	clue := strings.TrimSpace(text)
	updated.Clue = &clue
	updated.IsReady = true
	updated.UpdatedAt = time.Now()
	if err := r.repo.SavePlayer(&updated); err != nil {
		return fmt.Errorf("persisting clue: %w", err)
	}

	*player = updated
	r.publishLocked()
	return nil
}

// UpdatePosition stores a seat's claimed position. Positions stay mutable
// from briefing until the reveal transition; the machine stores whatever it
// is given, rearrangement mechanics live in the clients. Any seat may move
// any seat; per-player authorization, if wanted, belongs to the API layer.
func (r *Room) UpdatePosition(deviceID, playerID string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Status {
	case models.PhaseBriefing, models.PhaseClues, models.PhaseDiscussion:
	default:
		return fmt.Errorf("%w: positions are frozen in phase %q", ErrPhase, r.state.Status)
	}
	if r.findByDeviceLocked(deviceID) == nil {
		return fmt.Errorf("%w: no player for device", ErrNotFound)
	}

	var target *models.Player
	for _, p := range r.players {
		if p.ID == playerID {
			target = p
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: no such player", ErrNotFound)
	}
	if !target.Active() {
		return fmt.Errorf("%w: spectators hold no position", ErrValidation)
	}

	updated := *target
	pos := position
	updated.Position = &pos
	updated.UpdatedAt = time.Now()
	if err := r.repo.SavePlayer(&updated); err != nil {
		return fmt.Errorf("persisting position: %w", err)
	}

	*target = updated
	r.publishLocked()
	return nil
}

// Leave removes a seat. A leaving host is not replaced: the room becomes
// hostless and the calling application decides what to do with it.
func (r *Room) Leave(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.DeviceID == deviceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: no player for device", ErrNotFound)
	}

	if err := r.repo.DeletePlayer(r.players[idx].ID); err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.publishLocked()
	return nil
}

// --- internals, all called with mu held ---

func (r *Room) findByDeviceLocked(deviceID string) *models.Player {
	for _, p := range r.players {
		if p.DeviceID == deviceID {
			return p
		}
	}
	return nil
}

func (r *Room) requireHostLocked(deviceID string) error {
	player := r.findByDeviceLocked(deviceID)
	if player == nil {
		return fmt.Errorf("%w: no player for device", ErrNotFound)
	}
	if !player.IsHost {
		return ErrNotHost
	}
	return nil
}

func (r *Room) activeCountLocked() int {
	count := 0
	for _, p := range r.players {
		if p.Active() {
			count++
		}
	}
	return count
}

func (r *Room) publishLocked() {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(r.state.Code, r.snapshotLocked("")); err != nil {
		logger.Log.Warnf("Publish failed for room %s: %v", r.state.Code, err)
	}
}

func clonePlayers(players []*models.Player) []*models.Player {
	out := make([]*models.Player, 0, len(players))
	for _, p := range players {
		cp := *p
		cp.SecretNumber = copyIntPtr(p.SecretNumber)
		cp.Clue = copyStrPtr(p.Clue)
		cp.Position = copyIntPtr(p.Position)
		out = append(out, &cp)
	}
	return out
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxNameLen {
		return "", fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxNameLen)
	}
	return name, nil
}
