package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOptionsResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"dataDir":"/from/file","listenAddr":"127.0.0.1:7000"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Options{ConfigPath: path}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DataDir != "/from/file" || cfg.ListenAddr != "127.0.0.1:7000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	cfg, err = Options{ConfigPath: path, DataDir: "/from/flag", ListenAddr: ":7001"}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DataDir != "/from/flag" || cfg.ListenAddr != ":7001" {
		t.Fatalf("flags must override the file: %+v", cfg)
	}
}

func TestOptionsResolveDataDirFallback(t *testing.T) {
	cfg, err := Options{}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DataDir == "" {
		t.Fatal("empty data dir must fall back to the default location")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{DataDir: t.TempDir(), ListenAddr: "127.0.0.1:0"})
	}()
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}
