// Package config loads the server's YAML configuration file, falling back
// to sensible defaults when the file is absent, in the same
// Default-struct-then-overlay-YAML shape the teacher uses for its own
// server configs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the persistence layer's connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the config as a libpq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// OriginConfig controls the optional Origin-authentication retriever flow.
type OriginConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// StaticContentConfig points at the on-disk legal-document overrides and
// their embedded fallbacks.
type StaticContentConfig struct {
	Dir string `yaml:"dir"` // overrides the embedded defaults when non-empty
}

// Server holds every tunable for one game-services process: the framed TCP
// listener, the tunnel relay's UDP and HTTP listeners, persistence, the
// optional Origin retriever, static legal content, and matchmaking timing.
type Server struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	TunnelUDPPort  int `yaml:"tunnel_udp_port"`
	TunnelHTTPPort int `yaml:"tunnel_http_port"`

	LogLevel string `yaml:"log_level"`

	MaxPacketBody int           `yaml:"max_packet_body"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	SendQueueSize int           `yaml:"send_queue_size"`

	MatchmakingTimeout time.Duration `yaml:"matchmaking_timeout"`

	Database DatabaseConfig       `yaml:"database"`
	Origin   OriginConfig         `yaml:"origin"`
	Static   StaticContentConfig `yaml:"static_content"`
}

// Default returns a Server configuration usable without any YAML file on
// disk, mirroring every field DefaultGameServer sets for the teacher's own
// game server.
func Default() Server {
	return Server{
		BindAddress:    "0.0.0.0",
		Port:           14219,
		TunnelUDPPort:  42130,
		TunnelHTTPPort: 42131,
		LogLevel:       "info",
		MaxPacketBody:  1 << 20,
		ReadTimeout:    120 * time.Second,
		SendQueueSize:  512,

		MatchmakingTimeout: 30 * time.Minute,

		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "gameserver",
			Password: "gameserver",
			DBName:  "gameserver",
			SSLMode: "disable",
		},
		Origin: OriginConfig{
			Enabled:     false,
			HTTPTimeout: 10 * time.Second,
		},
		Static: StaticContentConfig{
			Dir: "",
		},
	}
}

// Load reads path as YAML, overlaying it onto Default(). A missing file is
// not an error: it returns the defaults untouched, per the teacher's own
// LoadGameServer behavior.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
