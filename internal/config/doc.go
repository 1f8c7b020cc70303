// Package config provides loading and environment overlay for Atomix server
// configuration: cluster membership, listen address, data directory, and
// resource timing defaults.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/atomix.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
