package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
)

// Config holds runtime settings for the zkkeeper CLI.
//
// SessionTTL bounds how long the password stays resident after login or
// unlock. Once it lapses, vault writes queue as pending until the user
// unlocks again.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	RequestTimeout      time.Duration
	SessionTTL          time.Duration
	KDFAlgorithm        string
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "zkkeeper/client.db"
	c.RequestTimeout = 10 * time.Second
	c.SessionTTL = 5 * time.Minute
	c.KDFAlgorithm = string(kdf.Argon2id)
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// KDFParams resolves the configured algorithm to its default parameters.
func (c *Config) KDFParams() (kdf.Params, error) {
	p, err := kdf.ParamsFor(c.KDFAlgorithm)
	if err != nil {
		return kdf.Params{}, fmt.Errorf("kdf algorithm %q: %w", c.KDFAlgorithm, err)
	}
	return p, nil
}
