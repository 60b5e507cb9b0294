package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkor14/veracity/internal/engine"
	"github.com/mkor14/veracity/internal/models"
)

// Config is the server configuration loaded from YAML. Every field has a
// sensible default, so a missing file starts a playable local server.
type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Game struct {
		FocusThreshold int                `yaml:"focus_threshold"`
		ForfeitPenalty *int               `yaml:"forfeit_penalty"`
		DiscussSeconds map[string]int     `yaml:"discuss_seconds"`
		Multipliers    map[string]float64 `yaml:"multipliers"`
	} `yaml:"game"`
	Catalog struct {
		PacksDir string `yaml:"packs_dir"`
	} `yaml:"catalog"`
	Events struct {
		Mode    string `yaml:"mode"` // "local" or "jetstream"
		NATSURL string `yaml:"nats_url"`
	} `yaml:"events"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Server.BaseURL = "http://localhost:8080"
	config.Catalog.PacksDir = "claimpacks"
	config.Events.Mode = "local"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// applyEnvOverrides lets environment variables win over the YAML file.
func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.BaseURL = getEnv("BASE_URL", c.Server.BaseURL)
	c.Catalog.PacksDir = getEnv("PACKS_DIR", c.Catalog.PacksDir)
	c.Events.Mode = getEnv("EVENTS_MODE", c.Events.Mode)
	c.Events.NATSURL = getEnv("NATS_URL", c.Events.NATSURL)
	c.Game.FocusThreshold = getEnvAsInt("FOCUS_THRESHOLD", c.Game.FocusThreshold)
}

// engineConfig builds the round engine tuning from the defaults plus any
// overrides in the file.
func (c *Config) engineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	for key, seconds := range c.Game.DiscussSeconds {
		tier := models.Difficulty(key)
		dc, ok := cfg.Difficulty[tier]
		if !ok {
			return engine.Config{}, fmt.Errorf("unknown difficulty %q in discuss_seconds", key)
		}
		dc.DiscussTime = time.Duration(seconds) * time.Second
		cfg.Difficulty[tier] = dc
	}
	for key, mult := range c.Game.Multipliers {
		tier := models.Difficulty(key)
		dc, ok := cfg.Difficulty[tier]
		if !ok {
			return engine.Config{}, fmt.Errorf("unknown difficulty %q in multipliers", key)
		}
		dc.Multiplier = mult
		cfg.Difficulty[tier] = dc
	}
	if c.Game.FocusThreshold > 0 {
		cfg.FocusThreshold = c.Game.FocusThreshold
	}
	if c.Game.ForfeitPenalty != nil {
		cfg.ForfeitPenalty = *c.Game.ForfeitPenalty
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("invalid game config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
