package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Member declares one cluster member.
type Member struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

// Cluster declares local identity and full cluster membership.
type Cluster struct {
	LocalID int      `json:"localId"`
	Members []Member `json:"members"`
}

// ResourceDefaults captures baseline timing for resources that do not set
// their own.
type ResourceDefaults struct {
	HeartbeatIntervalMs int `json:"heartbeatIntervalMs"`
	ElectionTimeoutMs   int `json:"electionTimeoutMs"`
}

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir          string           `json:"dataDir"`
	ListenAddr       string           `json:"listenAddr"`
	Cluster          Cluster          `json:"cluster"`
	ResourceDefaults ResourceDefaults `json:"resourceDefaults"`
}

// Default returns built-in defaults: a single-member local cluster.
func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:5678",
		Cluster: Cluster{
			LocalID: 1,
			Members: []Member{{ID: 1, Address: "127.0.0.1:5678"}},
		},
		ResourceDefaults: ResourceDefaults{
			HeartbeatIntervalMs: 150,
			ElectionTimeoutMs:   750,
		},
	}
}

// HeartbeatInterval returns the default heartbeat interval as a duration.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.ResourceDefaults.HeartbeatIntervalMs) * time.Millisecond
}

// ElectionTimeout returns the default election timeout as a duration.
func (c Config) ElectionTimeout() time.Duration {
	return time.Duration(c.ResourceDefaults.ElectionTimeoutMs) * time.Millisecond
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if len(c.Cluster.Members) == 0 {
		return fmt.Errorf("config: cluster has no members")
	}
	seen := map[int]bool{}
	local := false
	for _, m := range c.Cluster.Members {
		if seen[m.ID] {
			return fmt.Errorf("config: duplicate member id %d", m.ID)
		}
		seen[m.ID] = true
		if m.ID == c.Cluster.LocalID {
			local = true
		}
	}
	if !local {
		return fmt.Errorf("config: local member %d not in member list", c.Cluster.LocalID)
	}
	if c.ResourceDefaults.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("config: heartbeat interval must be positive")
	}
	if c.ResourceDefaults.ElectionTimeoutMs <= c.ResourceDefaults.HeartbeatIntervalMs {
		return fmt.Errorf("config: election timeout must exceed heartbeat interval")
	}
	return nil
}
