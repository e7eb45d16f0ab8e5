// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/itoloop/itoserver/models"
)

// PostgreSQL 数据库实现 (database/sql + lib/pq)
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id UUID PRIMARY KEY,
            code TEXT NOT NULL UNIQUE,
            host_id TEXT NOT NULL,
            max_players INTEGER NOT NULL DEFAULT 8,
            rounds INTEGER NOT NULL DEFAULT 5,
            clue_time INTEGER NOT NULL DEFAULT 60,
            game_mode TEXT NOT NULL DEFAULT 'classic',
            current_round INTEGER NOT NULL DEFAULT 0,
            current_theme TEXT,
            custom_themes TEXT[],
            status TEXT NOT NULL DEFAULT 'lobby',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id UUID PRIMARY KEY,
            room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            device_id TEXT NOT NULL,
            is_host BOOLEAN NOT NULL DEFAULT false,
            is_ready BOOLEAN NOT NULL DEFAULT false,
            secret_number INTEGER,
            clue TEXT,
            position INTEGER,
            score INTEGER NOT NULL DEFAULT 0,
            is_spectator BOOLEAN NOT NULL DEFAULT false,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            UNIQUE(room_id, device_id)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS round_results (
            id UUID PRIMARY KEY,
            room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            round_number INTEGER NOT NULL,
            theme TEXT NOT NULL,
            was_correct BOOLEAN NOT NULL,
            mistakes INTEGER NOT NULL DEFAULT 0,
            completion_time INTEGER,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            UNIQUE(room_id, round_number)
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(code);
        CREATE INDEX IF NOT EXISTS idx_players_room_id ON players(room_id);
        CREATE INDEX IF NOT EXISTS idx_round_results_room_id ON round_results(room_id);
    `)

	return err
}

// SaveRoom 保存房间状态 (UPSERT)
func (p *PostgreSQL) SaveRoom(room *models.Room) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.saveRoomTx(ctx, p.db, room)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (p *PostgreSQL) saveRoomTx(ctx context.Context, tx execer, room *models.Room) error {
	query := `
        INSERT INTO rooms (id, code, host_id, max_players, rounds, clue_time, game_mode,
                           current_round, current_theme, custom_themes, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, CURRENT_TIMESTAMP)
        ON CONFLICT (id)
        DO UPDATE SET current_round = $8, current_theme = NULLIF($9, ''), status = $11,
                      updated_at = CURRENT_TIMESTAMP
    `

	_, err := tx.ExecContext(ctx, query,
		room.ID, room.Code, room.HostID, room.MaxPlayers, room.Rounds, room.ClueTime,
		string(room.GameMode), room.CurrentRound, room.CurrentTheme,
		pq.Array(room.CustomThemes), string(room.Status), room.CreatedAt)
	return err
}

// LoadRoomByCode 按房间码加载房间
func (p *PostgreSQL) LoadRoomByCode(code string) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, code, host_id, max_players, rounds, clue_time, game_mode,
               current_round, COALESCE(current_theme, ''), custom_themes, status, created_at, updated_at
        FROM rooms WHERE code = $1
    `

	var room models.Room
	var themes pq.StringArray
	var gameMode, status string
	err := p.db.QueryRowContext(ctx, query, code).Scan(
		&room.ID, &room.Code, &room.HostID, &room.MaxPlayers, &room.Rounds, &room.ClueTime,
		&gameMode, &room.CurrentRound, &room.CurrentTheme, &themes, &status,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	room.GameMode = models.GameMode(gameMode)
	room.Status = models.Phase(status)
	room.CustomThemes = []string(themes)
	return &room, nil
}

// SavePlayer 保存玩家 (UPSERT)
func (p *PostgreSQL) SavePlayer(player *models.Player) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.savePlayerTx(ctx, p.db, player)
}

func (p *PostgreSQL) savePlayerTx(ctx context.Context, tx execer, player *models.Player) error {
	query := `
        INSERT INTO players (id, room_id, name, device_id, is_host, is_ready,
                             secret_number, clue, position, score, is_spectator, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
        ON CONFLICT (id)
        DO UPDATE SET is_ready = $6, secret_number = $7, clue = $8, position = $9,
                      score = $10, is_host = $5, updated_at = CURRENT_TIMESTAMP
    `

	_, err := tx.ExecContext(ctx, query,
		player.ID, player.RoomID, player.Name, player.DeviceID, player.IsHost, player.IsReady,
		player.SecretNumber, player.Clue, player.Position, player.Score, player.IsSpectator,
		player.CreatedAt)
	return err
}

// LoadPlayers 按加入顺序加载房间玩家
func (p *PostgreSQL) LoadPlayers(roomID string) ([]*models.Player, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, room_id, name, device_id, is_host, is_ready,
               secret_number, clue, position, score, is_spectator, created_at, updated_at
        FROM players WHERE room_id = $1 ORDER BY created_at ASC
    `

	rows, err := p.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var player models.Player
		if err := rows.Scan(
			&player.ID, &player.RoomID, &player.Name, &player.DeviceID,
			&player.IsHost, &player.IsReady, &player.SecretNumber, &player.Clue,
			&player.Position, &player.Score, &player.IsSpectator,
			&player.CreatedAt, &player.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, &player)
	}
	return players, rows.Err()
}

// DeletePlayer 删除玩家
func (p *PostgreSQL) DeletePlayer(playerID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, playerID)
	return err
}

// DeleteRoom 删除房间, 外键级联清理玩家和回合结果
func (p *PostgreSQL) DeleteRoom(roomID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	return err
}

// AppendRoundResult 追加回合结果
func (p *PostgreSQL) AppendRoundResult(result *models.RoundResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO round_results (id, room_id, round_number, theme, was_correct, mistakes, completion_time)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := p.db.ExecContext(ctx, query,
		result.ID, result.RoomID, result.RoundNumber, result.Theme,
		result.WasCorrect, result.Mistakes, result.CompletionTime)
	return err
}

// LoadRoundResults 按回合序号加载回合结果
func (p *PostgreSQL) LoadRoundResults(roomID string) ([]*models.RoundResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, room_id, round_number, theme, was_correct, mistakes, completion_time, created_at
        FROM round_results WHERE room_id = $1 ORDER BY round_number ASC
    `

	rows, err := p.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.RoundResult
	for rows.Next() {
		var result models.RoundResult
		if err := rows.Scan(
			&result.ID, &result.RoomID, &result.RoundNumber, &result.Theme,
			&result.WasCorrect, &result.Mistakes, &result.CompletionTime,
			&result.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// SaveRound 在一个事务中提交房间和全部玩家
func (p *PostgreSQL) SaveRound(room *models.Room, players []*models.Player) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := p.saveRoomTx(ctx, tx, room); err != nil {
		return err
	}
	for _, player := range players {
		if err := p.savePlayerTx(ctx, tx, player); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
