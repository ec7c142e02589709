package main

import (
	"fmt"
	"log/slog"
	"os"

	app "github.com/campusware/gameroom-backend/internal"
	"github.com/campusware/gameroom-backend/internal/config"
)

// defaultConfigFile sits next to the binary; CONFIG_FILE overrides it for
// containerized deployments where the config is mounted elsewhere.
const defaultConfigFile = "./config.yml"

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := config.MustLoad(configFile())
	logger := initLogger(conf).With("service", "gameroom")

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

func configFile() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}

	return defaultConfigFile
}

func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
