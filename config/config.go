package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Sweeper  Sweeper
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Sweeper controls the background pass that closes overdue attempts.
type Sweeper struct {
	IntervalSec int
	BatchSize   int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SWEEPER_INTERVAL_SEC", 60)
	viper.SetDefault("SWEEPER_BATCH_SIZE", 200)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Sweeper.IntervalSec = viper.GetInt("SWEEPER_INTERVAL_SEC")
	config.Sweeper.BatchSize = viper.GetInt("SWEEPER_BATCH_SIZE")

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
