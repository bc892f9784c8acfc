// Command scabbardstore bootstraps a consensus Store against a real
// backend and ensures its schema exists, the same role fc-server/main.go
// played for the teacher's benchmark harness — pick a backend, wire its
// config, connect, and get out of the way. It is not a long-running
// server: the consensus engine that embeds this module drives Store
// directly, in-process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scabbardhq/consensus-store/store/mongo"
	"github.com/scabbardhq/consensus-store/store/postgres"
)

func main() {
	backend := flag.String("backend", "postgres", "storage backend: postgres or mongo")
	dsn := flag.String("dsn", "", "override the backend's default connection string")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx := context.Background()
	if err := run(ctx, *backend, *dsn); err != nil {
		log.Error().Err(err).Msg("scabbardstore: bootstrap failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, backend, dsnOverride string) error {
	switch backend {
	case "postgres":
		cfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return err
		}
		if dsnOverride != "" {
			cfg.DSN = dsnOverride
		}
		s, err := postgres.New(ctx, cfg, log.Logger)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info().Str("backend", "postgres").Msg("schema ready")
		return nil

	case "mongo":
		cfg := mongo.ConfigFromEnv()
		if dsnOverride != "" {
			cfg.URI = dsnOverride
		}
		s, err := mongo.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		if err := s.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info().Str("backend", "mongo").Msg("schema ready")
		return nil

	default:
		return fmt.Errorf("unknown backend %q, want postgres or mongo", backend)
	}
}
