package models

import (
	"time"
)

// Phase is a room's position in the fixed forward chain
// lobby -> briefing -> clues -> discussion -> reveal -> (briefing | finished).
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseBriefing   Phase = "briefing"
	PhaseClues      Phase = "clues"
	PhaseDiscussion Phase = "discussion"
	PhaseReveal     Phase = "reveal"
	PhaseFinished   Phase = "finished"
)

// InRound reports whether a round is in progress, i.e. whether the room must
// carry a non-empty current theme.
func (p Phase) InRound() bool {
	switch p {
	case PhaseBriefing, PhaseClues, PhaseDiscussion, PhaseReveal:
		return true
	}
	return false
}

// GameMode governs scoring tolerance. Chaos scores like classic; its time
// pressure lives in the transport layer.
type GameMode string

const (
	ModeClassic GameMode = "classic"
	ModeEasy    GameMode = "easy"
	ModeChaos   GameMode = "chaos"
)

func (m GameMode) Valid() bool {
	return m == ModeClassic || m == ModeEasy || m == ModeChaos
}

// Room 房间数据模型
type Room struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	HostID       string    `json:"host_id"`
	MaxPlayers   int       `json:"max_players"`
	Rounds       int       `json:"rounds"`
	ClueTime     int       `json:"clue_time"` // seconds per clue phase
	GameMode     GameMode  `json:"game_mode"`
	CurrentRound int       `json:"current_round"`
	CurrentTheme string    `json:"current_theme,omitempty"`
	CustomThemes []string  `json:"custom_themes,omitempty"`
	Status       Phase     `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Player 玩家数据模型. SecretNumber, Clue and Position are nil outside an
// active round.
type Player struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	DeviceID     string    `json:"device_id"`
	IsHost       bool      `json:"is_host"`
	IsReady      bool      `json:"is_ready"`
	SecretNumber *int      `json:"secret_number,omitempty"`
	Clue         *string   `json:"clue,omitempty"`
	Position     *int      `json:"position,omitempty"`
	Score        int       `json:"score"`
	IsSpectator  bool      `json:"is_spectator"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active reports whether the player takes part in the ordering: spectators
// hold a seat and receive broadcasts but never get a number.
func (p *Player) Active() bool {
	return !p.IsSpectator
}

// RoundResult 回合结果记录, written exactly once per (room, round).
type RoundResult struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	RoundNumber    int       `json:"round_number"`
	Theme          string    `json:"theme"`
	WasCorrect     bool      `json:"was_correct"`
	Mistakes       int       `json:"mistakes"`
	CompletionTime *int      `json:"completion_time,omitempty"` // seconds
	CreatedAt      time.Time `json:"created_at"`
}
