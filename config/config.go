package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
}

type MonitorConfig struct {
	Address string `mapstructure:"address"`
}

// GameConfig holds the defaults applied when a create-room request leaves a
// setting unset.
type GameConfig struct {
	DefaultMaxPlayers int    `mapstructure:"default_max_players"`
	DefaultRounds     int    `mapstructure:"default_rounds"`
	DefaultClueTime   int    `mapstructure:"default_clue_time"`
	DefaultGameMode   string `mapstructure:"default_game_mode"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("game.default_max_players", 8)
	viper.SetDefault("game.default_rounds", 5)
	viper.SetDefault("game.default_clue_time", 60)
	viper.SetDefault("game.default_game_mode", "classic")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
