package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir picks the data directory for the host platform: XDG when
// set, the conventional system or per-user data dir when present, otherwise
// a dotdir under the user's home.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "atomix")
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}

	candidates := []struct {
		probe string
		dir   string
	}{
		{"/var/lib", "/var/lib/atomix"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Atomix")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Atomix")},
	}
	for _, c := range candidates {
		if info, err := os.Stat(c.probe); err == nil && info.IsDir() {
			return c.dir
		}
	}
	return filepath.Join(home, ".atomix")
}
