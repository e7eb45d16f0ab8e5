// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/itoloop/itoserver/models"
)

// Repository 存储接口. Implementations must keep (room_id, device_id) unique
// on players and (room_id, round_number) unique on round results.
type Repository interface {
	SaveRoom(room *models.Room) error
	LoadRoomByCode(code string) (*models.Room, error)
	SavePlayer(player *models.Player) error
	// LoadPlayers returns a room's players in insertion order.
	LoadPlayers(roomID string) ([]*models.Player, error)
	DeletePlayer(playerID string) error
	// DeleteRoom cascades players and round results.
	DeleteRoom(roomID string) error
	AppendRoundResult(result *models.RoundResult) error
	LoadRoundResults(roomID string) ([]*models.RoundResult, error)
	// SaveRound commits a room row and all player rows atomically. Round
	// starts and rollovers touch every seat; a partial write would leave the
	// roster in an inconsistent phase.
	SaveRound(room *models.Room, players []*models.Player) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
