package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/claimflow/internal/api"
	"github.com/claimflow/internal/config"
	"github.com/claimflow/internal/evidence"
	"github.com/claimflow/internal/fnol"
	"github.com/claimflow/internal/jobqueue"
	"github.com/claimflow/internal/policy"
	"github.com/claimflow/internal/session"
)

// APICommand returns the CLI command for starting the API server.
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the ClaimFlow API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			setupLogging(c.Bool("debug"))

			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			port := cfg.Server.Port
			if c.Int("port") != 0 {
				port = c.Int("port")
			}

			ctx := context.Background()
			ttl := time.Duration(cfg.Session.TTLHours) * time.Hour

			var store fnol.SessionStore
			if cfg.Redis.URL != "" {
				opt, err := redis.ParseURL(cfg.Redis.URL)
				if err != nil {
					return fmt.Errorf("invalid redis url: %w", err)
				}
				store = session.NewRedis(redis.NewClient(opt), ttl)
				log.Info().Msg("using Redis session store")
			} else {
				store = session.NewMemory(ttl)
				log.Warn().Msg("no redis.url configured, sessions are in-memory only")
			}

			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is required")
			}
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to create connection pool: %w", err)
			}
			defer pool.Close()
			ledger := policy.NewPGLedger(pool)

			if cfg.Evidence.BaseURL == "" {
				return fmt.Errorf("evidence.base_url is required")
			}
			evStore := evidence.NewHTTPStore(cfg.Evidence.BaseURL)

			thresholds := cfg.Thresholds()
			machine := fnol.New(store, ledger, evStore, fnol.Options{
				Thresholds: &thresholds,
			})

			jq, err := jobqueue.New(pool, machine)
			if err != nil {
				return err
			}
			if err := jq.Start(ctx); err != nil {
				return fmt.Errorf("failed to start job queue: %w", err)
			}
			defer jq.Stop(ctx)

			log.Info().Int("port", port).Msg("starting ClaimFlow API server")
			server := api.NewServer(port, machine)
			return server.Start()
		},
	}
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
