package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env-default:"8080"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Game struct {
	// VersusDelaySeconds is how long the versus screen is shown before play starts.
	VersusDelaySeconds int `yaml:"versus-delay-seconds" env-default:"3"`
	// WaitingRoomTTLSeconds bounds how long an unclaimed room stays in matchmaking.
	WaitingRoomTTLSeconds int `yaml:"waiting-room-ttl-seconds" env-default:"300"`
	// FinishedRoomTTLSeconds keeps finished rooms readable for late fresh reads.
	FinishedRoomTTLSeconds int `yaml:"finished-room-ttl-seconds" env-default:"600"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Game) GetVersusDelay() time.Duration {
	return time.Duration(that.VersusDelaySeconds) * time.Second
}

func (that *Game) GetWaitingRoomTTL() time.Duration {
	return time.Duration(that.WaitingRoomTTLSeconds) * time.Second
}

func (that *Game) GetFinishedRoomTTL() time.Duration {
	return time.Duration(that.FinishedRoomTTLSeconds) * time.Second
}
