package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
		// CORSOrigins lists browser origins allowed to call the API; "*" allows any.
		CORSOrigins []string `yaml:"cors_origins" env:"PEACE_CORS_ORIGINS" envSeparator:","`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"PEACE_REDIS_ADDR"`
		Password string `yaml:"password" env:"PEACE_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"PEACE_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"PEACE_REDIS_TTL"`
		Verbose  bool   `yaml:"verbose" env:"PEACE_REDIS_VERBOSE"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"postgres"`
	Catalog struct {
		CacheTTL string `yaml:"cache_ttl" env:"PEACE_CATALOG_CACHE_TTL"`
	} `yaml:"catalog"`
	Game Game `yaml:"game"`
}

// Game holds the rules every live session is played by.
type Game struct {
	PrimaryTimerSeconds int     `yaml:"primary_timer_seconds" env:"PEACE_PRIMARY_TIMER_SECONDS" json:"primary_timer_seconds"`
	StealTimerSeconds   int     `yaml:"steal_timer_seconds" env:"PEACE_STEAL_TIMER_SECONDS" json:"steal_timer_seconds"`
	StealPointsFactor   float64 `yaml:"steal_points_factor" env:"PEACE_STEAL_POINTS_FACTOR" json:"steal_points_factor"`
	MinTeams            int     `yaml:"min_teams" env:"PEACE_MIN_TEAMS" json:"min_teams"`
	MaxTeams            int     `yaml:"max_teams" env:"PEACE_MAX_TEAMS" json:"max_teams"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Redis.TTL = "2h"
	cfg.Catalog.CacheTTL = "10m"
	cfg.Game = Game{
		PrimaryTimerSeconds: 20,
		StealTimerSeconds:   5,
		StealPointsFactor:   0.5,
		MinTeams:            2,
		MaxTeams:            4,
	}
	return cfg
}

// Load reads YAML config from path on top of Defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects game rules no session could be played with and CORS
// origins the middleware would refuse.
func (c Config) Validate() error {
	if len(c.Server.CORSOrigins) == 0 {
		return errors.New("server.cors_origins must not be empty")
	}
	for _, o := range c.Server.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.cors_origins: %q must be \"*\" or start with http:// or https://", o)
		}
	}

	g := c.Game
	if g.MinTeams < 1 {
		return fmt.Errorf("game.min_teams must be at least 1, got %d", g.MinTeams)
	}
	if g.MaxTeams < g.MinTeams {
		return fmt.Errorf("game.max_teams (%d) must not be below game.min_teams (%d)", g.MaxTeams, g.MinTeams)
	}
	if g.StealPointsFactor < 0 || g.StealPointsFactor > 1 {
		return fmt.Errorf("game.steal_points_factor must be within [0, 1], got %v", g.StealPointsFactor)
	}
	if g.PrimaryTimerSeconds <= 0 || g.StealTimerSeconds <= 0 {
		return fmt.Errorf("game timers must be positive")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
