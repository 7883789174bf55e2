package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/fableweave/fableweave/internal/api"
	"github.com/fableweave/fableweave/internal/config"
	"github.com/fableweave/fableweave/internal/events"
	"github.com/fableweave/fableweave/internal/game"
	"github.com/fableweave/fableweave/internal/narrator"
	"github.com/fableweave/fableweave/internal/narrator/openai"
	"github.com/fableweave/fableweave/internal/profile"
	"github.com/fableweave/fableweave/internal/service"
	"github.com/fableweave/fableweave/internal/store"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to YAML config file (overrides CONFIG_PATH env var)")
		portFlag    = flag.Int("port", 0, "Port to listen on (overrides config)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Fableweave - collaborative storytelling game server

Usage: %s [options]

Options:
  -h, --help       Show this help message
  -v, --version    Show version information
  --config PATH    Path to YAML config file (default: CONFIG_PATH env var)
  --port PORT      Port to listen on (overrides config)

Environment Variables:
  CONFIG_PATH      Path to YAML config file
  ${VAR} references inside the config file are expanded from the environment.

Examples:
  %s                            Start with built-in defaults
  %s --config config.yaml       Start with a config file
  %s --port 3000                Start on port 3000
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Fableweave %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log := zerologlog.Output(cw)

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("loading config")
		}
		cfg = loaded
	}
	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	ctx := context.Background()

	sessions, err := store.NewRedisStore(&cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}

	var profiles profile.Store
	if cfg.Postgres.Enabled {
		pg, err := profile.NewPostgresStore(ctx, &cfg.Postgres, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to postgres")
		}
		defer pg.Close()
		profiles = pg
	}

	var pub events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(&cfg.Kafka, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to kafka")
		}
		pub = kp
	}
	defer pub.Close()

	var narr narrator.Provider
	if cfg.Narrator.Enabled {
		narr = openai.New(cfg.Narrator.APIKey, cfg.Narrator.BaseURL, cfg.Narrator.Model)
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := game.NewRand(seed)

	svc := service.New(sessions, game.StaticFlags(cfg.Game.Flags), profiles, pub, narr, rng, log)
	r := api.NewRouter(svc, log).Handler()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Str("version", version).Msg("listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
