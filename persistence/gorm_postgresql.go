// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/itoloop/itoserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoom{},
		&models.GormPlayer{},
		&models.GormRoundResult{},
	)
}

// SaveRoom 保存房间 (insert or update by primary key)
func (p *GormPostgreSQL) SaveRoom(room *models.Room) error {
	row := models.RoomToGorm(room)
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// LoadRoomByCode 按房间码加载房间
func (p *GormPostgreSQL) LoadRoomByCode(code string) (*models.Room, error) {
	var row models.GormRoom
	if err := p.db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// SavePlayer 保存玩家
func (p *GormPostgreSQL) SavePlayer(player *models.Player) error {
	row := models.PlayerToGorm(player)
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// LoadPlayers 按加入顺序加载房间玩家
func (p *GormPostgreSQL) LoadPlayers(roomID string) ([]*models.Player, error) {
	var rows []models.GormPlayer
	if err := p.db.Where("room_id = ?", roomID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	players := make([]*models.Player, 0, len(rows))
	for i := range rows {
		players = append(players, rows[i].ToDomain())
	}
	return players, nil
}

// DeletePlayer 删除玩家
func (p *GormPostgreSQL) DeletePlayer(playerID string) error {
	return p.db.Delete(&models.GormPlayer{}, "id = ?", playerID).Error
}

// DeleteRoom 删除房间并级联玩家和回合结果
func (p *GormPostgreSQL) DeleteRoom(roomID string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.GormRoundResult{}, "room_id = ?", roomID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.GormPlayer{}, "room_id = ?", roomID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.GormRoom{}, "id = ?", roomID).Error
	})
}

// AppendRoundResult 追加回合结果, uniqueness on (room_id, round_number) is
// enforced by the index.
func (p *GormPostgreSQL) AppendRoundResult(result *models.RoundResult) error {
	return p.db.Create(models.RoundResultToGorm(result)).Error
}

// LoadRoundResults 按回合序号加载回合结果
func (p *GormPostgreSQL) LoadRoundResults(roomID string) ([]*models.RoundResult, error) {
	var rows []models.GormRoundResult
	if err := p.db.Where("room_id = ?", roomID).Order("round_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]*models.RoundResult, 0, len(rows))
	for i := range rows {
		results = append(results, rows[i].ToDomain())
	}
	return results, nil
}

// SaveRound 在一个事务中提交房间和全部玩家
func (p *GormPostgreSQL) SaveRound(room *models.Room, players []*models.Player) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(models.RoomToGorm(room)).Error; err != nil {
			return err
		}
		for _, player := range players {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(models.PlayerToGorm(player)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
