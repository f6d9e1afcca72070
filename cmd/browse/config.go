package main

import (
	"os"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the demo harness configuration, loaded from TOML.
type Config struct {
	// StartURL is shown in the address bar and passed to loaded pages.
	StartURL string `toml:"start_url" validate:"omitempty,url"`

	// PumpHz is the message-loop cadence on pump-driven platforms.
	PumpHz int `toml:"pump_hz" validate:"gte=1,lte=240"`

	Log      LogConfig      `toml:"log"`
	Headless HeadlessConfig `toml:"headless"`
}

type LogConfig struct {
	// File receives structured logs; empty disables file logging.
	File       string `toml:"file"`
	Level      string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0"`
}

type HeadlessConfig struct {
	// Module is an optional guest wasm page to load at startup.
	Module string `toml:"module"`

	// Mode selects the drive mode: auto (platform default), pump, or self.
	Mode string `toml:"mode" validate:"omitempty,oneof=auto pump self"`
}

func defaultConfig() Config {
	return Config{
		StartURL: "https://vercel.com",
		PumpHz:   60,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Headless: HeadlessConfig{Mode: "auto"},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
