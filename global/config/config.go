package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig is the process-wide configuration for the messaging sync
// client and the bundled reference broker.
type AppConfig struct {
	// ServerURL is the websocket endpoint of the chat broker.
	ServerURL string `yaml:"server_url"`

	// ListenAddr is where the reference broker binds when this process
	// runs one (dev and test setups).
	ListenAddr string `yaml:"listen_addr"`

	// JWTSecret signs/verifies session tokens on the authenticate frame.
	// Empty disables token verification on the broker side.
	JWTSecret string `yaml:"jwt_secret"`

	// NodeID feeds the snowflake id generator.
	NodeID int64 `yaml:"node_id"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`

	// RequestTimeout bounds request/response correlation
	// (create_conversation).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxReconnectAttempts and ReconnectBase shape the bounded linear
	// backoff: delay = ReconnectBase * min(attempt, 5).
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBase        time.Duration `yaml:"reconnect_base"`
}

// Global holds the active configuration. Defaults are usable as-is for a
// local broker on :8080.
var Global = Default()

func Default() AppConfig {
	return AppConfig{
		ServerURL:            "ws://127.0.0.1:8080/ws",
		ListenAddr:           ":8080",
		NodeID:               1,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		RequestTimeout:       5 * time.Second,
		MaxReconnectAttempts: 5,
		ReconnectBase:        time.Second,
	}
}

// fileConfig mirrors AppConfig with durations as strings so that yaml
// files can say "250ms" or "1m30s".
type fileConfig struct {
	ServerURL            string `yaml:"server_url"`
	ListenAddr           string `yaml:"listen_addr"`
	JWTSecret            string `yaml:"jwt_secret"`
	NodeID               *int64 `yaml:"node_id"`
	HandshakeTimeout     string `yaml:"handshake_timeout"`
	WriteTimeout         string `yaml:"write_timeout"`
	RequestTimeout       string `yaml:"request_timeout"`
	MaxReconnectAttempts *int   `yaml:"max_reconnect_attempts"`
	ReconnectBase        string `yaml:"reconnect_base"`
}

// Load reads a YAML file over the defaults and installs the result as
// Global. Missing keys keep their default values.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	cfg.JWTSecret = fc.JWTSecret
	if fc.NodeID != nil {
		cfg.NodeID = *fc.NodeID
	}
	if fc.MaxReconnectAttempts != nil {
		cfg.MaxReconnectAttempts = *fc.MaxReconnectAttempts
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.HandshakeTimeout, &cfg.HandshakeTimeout},
		{fc.WriteTimeout, &cfg.WriteTimeout},
		{fc.RequestTimeout, &cfg.RequestTimeout},
		{fc.ReconnectBase, &cfg.ReconnectBase},
	} {
		if d.raw == "" {
			continue
		}
		v, perr := time.ParseDuration(d.raw)
		if perr != nil {
			return cfg, errors.Wrapf(perr, "parse config %s", path)
		}
		*d.dst = v
	}

	cfg.normalize()
	Global = cfg
	return cfg, nil
}

func (c *AppConfig) normalize() {
	d := Default()
	if c.ServerURL == "" {
		c.ServerURL = d.ServerURL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = d.ReconnectBase
	}
}
