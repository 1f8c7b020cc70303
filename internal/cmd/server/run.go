package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/baymaxhuang/atomix/internal/config"
	"github.com/baymaxhuang/atomix/internal/resources/counter"
	"github.com/baymaxhuang/atomix/internal/resources/kvmap"
	"github.com/baymaxhuang/atomix/internal/resources/lock"
	grpcserver "github.com/baymaxhuang/atomix/internal/server/grpc"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// Options configures Run.
type Options struct {
	// ConfigPath is an optional JSON configuration file.
	ConfigPath string
	// DataDir overrides the configured data directory when set.
	DataDir string
	// ListenAddr overrides the configured listen address when set.
	ListenAddr string
	// Logger defaults to an env-configured logger when nil.
	Logger log.Logger
}

// Resolve loads configuration from file, environment and flags, in that
// order of increasing precedence.
func (o Options) Resolve() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = config.DefaultDataDir()
	}
	return cfg, cfg.Validate()
}

// Run starts the session server with the built-in resource types registered
// and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromEnv()
	}

	reg := grpcserver.NewRegistry()
	kvmap.Register(reg)
	counter.Register(reg)
	lock.Register(reg)

	s, err := grpcserver.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting server",
		log.Str("addr", cfg.ListenAddr),
		log.Str("data_dir", cfg.DataDir),
		log.Int("member", cfg.Cluster.LocalID))
	return s.ListenAndServe(sctx, cfg.ListenAddr)
}
