// internal/config/config.go
// Configuration management using environment variables, shared by all
// three agent binaries (league manager, referee, player).

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the bootstrap configuration common to every agent process
// (spec.md §5, SPEC_FULL.md §1.1).
type Config struct {
	Environment string
	Server      ServerConfig
	Agent       AgentConfig
	League      LeagueConfig
	Data        DataConfig
}

// ServerConfig contains this agent's own HTTP listener settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AgentConfig identifies this process to the rest of the league and tells
// it how to authenticate itself.
type AgentConfig struct {
	AgentID         string
	ContactEndpoint string
	JWTSecret       string
	LMEndpoint      string // bootstrap endpoint used to register with the league manager
}

// LeagueConfig holds league settings. The league manager applies the
// league defaults to the league it creates; referees read
// MaxConcurrentMatches, and referees and players log LeagueID.
type LeagueConfig struct {
	LeagueID                string
	DefaultGameType         string
	MaxReferees             int
	MaxConcurrentPerReferee int
	MaxConcurrentMatches    int
	MinParticipants         int
	MaxParticipants         int
}

// DataConfig points at the root directory of this agent's durable state.
type DataConfig struct {
	Dir string
}

// Load reads configuration from environment variables, optionally seeded
// by a local .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8080"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Agent: AgentConfig{
			AgentID:         getEnvOrDefault("AGENT_ID", ""),
			ContactEndpoint: getEnvOrDefault("CONTACT_ENDPOINT", ""),
			JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
			LMEndpoint:      getEnvOrDefault("LM_ENDPOINT", ""),
		},
		League: LeagueConfig{
			LeagueID:                getEnvOrDefault("LEAGUE_ID", "league-1"),
			DefaultGameType:         getEnvOrDefault("LEAGUE_GAME_TYPE", "even_odd"),
			MaxReferees:             getIntOrDefault("LEAGUE_MAX_REFEREES", 16),
			MaxConcurrentPerReferee: getIntOrDefault("LEAGUE_MAX_CONCURRENT_PER_REFEREE", 5),
			MaxConcurrentMatches:    getIntOrDefault("LEAGUE_MAX_CONCURRENT_MATCHES", 50),
			MinParticipants:         getIntOrDefault("LEAGUE_MIN_PARTICIPANTS", 2),
			MaxParticipants:         getIntOrDefault("LEAGUE_MAX_PARTICIPANTS", 0),
		},
		Data: DataConfig{
			Dir: getEnvOrDefault("DATA_DIR", "./data"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present. LM_ENDPOINT
// is only required by referees and players, who call RequireLMEndpoint separately
// once they know their own role.
func (c *Config) Validate() error {
	if c.Agent.AgentID == "" {
		return fmt.Errorf("AGENT_ID is required")
	}
	if c.Agent.ContactEndpoint == "" {
		return fmt.Errorf("CONTACT_ENDPOINT is required")
	}
	if c.Agent.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// RequireLMEndpoint is called by referee and player binaries, which must
// know where to register.
func (c *Config) RequireLMEndpoint() error {
	if c.Agent.LMEndpoint == "" {
		return fmt.Errorf("LM_ENDPOINT is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
