// Package server parses arena server flags and starts the domain runtime.
package server

import (
	"context"
	"flag"

	entrypoint "github.com/Tejaspatil1175/codecore-backend/internal/platform/cmd"
	app "github.com/Tejaspatil1175/codecore-backend/internal/services/arena/app"
)

// Config holds arena server command configuration.
type Config struct {
	Port int    `env:"CODECORE_GRPC_PORT" envDefault:"8080"`
	Addr string `env:"CODECORE_GRPC_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The arena server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The arena server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the arena domain API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(context.Context) error {
		if cfg.Addr != "" {
			return app.RunWithAddr(ctx, cfg.Addr)
		}
		return app.Run(ctx, cfg.Port)
	})
}
