// services/results_service.go
package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/itoloop/itoserver/game"
	"github.com/itoloop/itoserver/models"
	"github.com/itoloop/itoserver/persistence"
)

var ErrRoomNotFound = errors.New("room not found")

// ResultsService answers round-history and scoreboard queries straight from
// the store. It only reads committed state, so it never needs the room lock.
type ResultsService struct {
	repo persistence.Repository
}

func NewResultsService(repo persistence.Repository) *ResultsService {
	return &ResultsService{repo: repo}
}

// ScoreEntry is one scoreboard line.
type ScoreEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// RoomSummary bundles a room's round history with its scoreboard.
type RoomSummary struct {
	Room          models.Room           `json:"room"`
	Scoreboard    []ScoreEntry          `json:"scoreboard"`
	Results       []*models.RoundResult `json:"results"`
	CorrectRounds int                   `json:"correct_rounds"`
}

// GetRoomSummary 获取房间的回合历史和计分板
func (s *ResultsService) GetRoomSummary(code string) (*RoomSummary, error) {
	code = game.NormalizeRoomCode(code)

	room, err := s.repo.LoadRoomByCode(code)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("loading room: %w", err)
	}

	players, err := s.repo.LoadPlayers(room.ID)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	results, err := s.repo.LoadRoundResults(room.ID)
	if err != nil {
		return nil, fmt.Errorf("loading round results: %w", err)
	}

	scoreboard := make([]ScoreEntry, 0, len(players))
	for _, p := range players {
		if p.IsSpectator {
			continue
		}
		scoreboard = append(scoreboard, ScoreEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(scoreboard, func(i, j int) bool {
		return scoreboard[i].Score > scoreboard[j].Score
	})

	correct := 0
	for _, res := range results {
		if res.WasCorrect {
			correct++
		}
	}

	return &RoomSummary{
		Room:          *room,
		Scoreboard:    scoreboard,
		Results:       results,
		CorrectRounds: correct,
	}, nil
}
