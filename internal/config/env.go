package config

import (
	"os"
	"strconv"
)

// FromEnv overlays ATOMIX_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("ATOMIX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ATOMIX_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ATOMIX_LOCAL_MEMBER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.LocalID = n
		}
	}
	if v := os.Getenv("ATOMIX_HEARTBEAT_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ResourceDefaults.HeartbeatIntervalMs = n
		}
	}
	if v := os.Getenv("ATOMIX_ELECTION_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ResourceDefaults.ElectionTimeoutMs = n
		}
	}
}
