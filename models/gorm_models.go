// models/gorm_models.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// GormRoom 房间模型
type GormRoom struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	Code         string         `gorm:"uniqueIndex;not null"`
	HostID       string         `gorm:"not null"`
	MaxPlayers   int            `gorm:"not null;default:8"`
	Rounds       int            `gorm:"not null;default:5"`
	ClueTime     int            `gorm:"not null;default:60"`
	GameMode     string         `gorm:"not null;default:classic"`
	CurrentRound int            `gorm:"not null;default:0"`
	CurrentTheme string
	CustomThemes pq.StringArray `gorm:"type:text[]"`
	Status       string         `gorm:"not null;default:lobby"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GormRoom) TableName() string { return "rooms" }

// GormPlayer 玩家模型
type GormPlayer struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	RoomID       string `gorm:"type:uuid;index;not null;uniqueIndex:idx_players_room_device,priority:1"`
	Name         string `gorm:"not null"`
	DeviceID     string `gorm:"not null;uniqueIndex:idx_players_room_device,priority:2"`
	IsHost       bool   `gorm:"not null;default:false"`
	IsReady      bool   `gorm:"not null;default:false"`
	SecretNumber *int
	Clue         *string
	Position     *int
	Score        int  `gorm:"not null;default:0"`
	IsSpectator  bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GormPlayer) TableName() string { return "players" }

// GormRoundResult 回合结果模型
type GormRoundResult struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	RoomID         string `gorm:"type:uuid;index;not null;uniqueIndex:idx_results_room_round,priority:1"`
	RoundNumber    int    `gorm:"not null;uniqueIndex:idx_results_room_round,priority:2"`
	Theme          string `gorm:"not null"`
	WasCorrect     bool   `gorm:"not null"`
	Mistakes       int    `gorm:"not null;default:0"`
	CompletionTime *int
	CreatedAt      time.Time
}

func (GormRoundResult) TableName() string { return "round_results" }

// --- 领域模型与存储模型互转 ---

func (r *GormRoom) ToDomain() *Room {
	return &Room{
		ID:           r.ID,
		Code:         r.Code,
		HostID:       r.HostID,
		MaxPlayers:   r.MaxPlayers,
		Rounds:       r.Rounds,
		ClueTime:     r.ClueTime,
		GameMode:     GameMode(r.GameMode),
		CurrentRound: r.CurrentRound,
		CurrentTheme: r.CurrentTheme,
		CustomThemes: []string(r.CustomThemes),
		Status:       Phase(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func RoomToGorm(r *Room) *GormRoom {
	return &GormRoom{
		ID:           r.ID,
		Code:         r.Code,
		HostID:       r.HostID,
		MaxPlayers:   r.MaxPlayers,
		Rounds:       r.Rounds,
		ClueTime:     r.ClueTime,
		GameMode:     string(r.GameMode),
		CurrentRound: r.CurrentRound,
		CurrentTheme: r.CurrentTheme,
		CustomThemes: pq.StringArray(r.CustomThemes),
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (p *GormPlayer) ToDomain() *Player {
	return &Player{
		ID:           p.ID,
		RoomID:       p.RoomID,
		Name:         p.Name,
		DeviceID:     p.DeviceID,
		IsHost:       p.IsHost,
		IsReady:      p.IsReady,
		SecretNumber: p.SecretNumber,
		Clue:         p.Clue,
		Position:     p.Position,
		Score:        p.Score,
		IsSpectator:  p.IsSpectator,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func PlayerToGorm(p *Player) *GormPlayer {
	return &GormPlayer{
		ID:           p.ID,
		RoomID:       p.RoomID,
		Name:         p.Name,
		DeviceID:     p.DeviceID,
		IsHost:       p.IsHost,
		IsReady:      p.IsReady,
		SecretNumber: p.SecretNumber,
		Clue:         p.Clue,
		Position:     p.Position,
		Score:        p.Score,
		IsSpectator:  p.IsSpectator,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (r *GormRoundResult) ToDomain() *RoundResult {
	return &RoundResult{
		ID:             r.ID,
		RoomID:         r.RoomID,
		RoundNumber:    r.RoundNumber,
		Theme:          r.Theme,
		WasCorrect:     r.WasCorrect,
		Mistakes:       r.Mistakes,
		CompletionTime: r.CompletionTime,
		CreatedAt:      r.CreatedAt,
	}
}

func RoundResultToGorm(r *RoundResult) *GormRoundResult {
	return &GormRoundResult{
		ID:             r.ID,
		RoomID:         r.RoomID,
		RoundNumber:    r.RoundNumber,
		Theme:          r.Theme,
		WasCorrect:     r.WasCorrect,
		Mistakes:       r.Mistakes,
		CompletionTime: r.CompletionTime,
		CreatedAt:      r.CreatedAt,
	}
}
