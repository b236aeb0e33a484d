package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/logger"
)

func main() {
	var migrationDir, dbURL string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.StringVar(&dbURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}
	if dbURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(2)
	}

	m, err := migrate.New("file://"+migrationDir, dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed to initialize")
	}
	defer m.Close()

	switch cmd := args[0]; cmd {
	case "up":
		check(log, "up", m.Up())
	case "down":
		check(log, "down", m.Down())
	case "steps":
		n := intArg(args, "steps")
		check(log, "steps", m.Steps(n))
	case "force":
		v := intArg(args, "force")
		if err := m.Force(v); err != nil {
			log.Fatal().Err(err).Int("version", v).Msg("Force failed")
		}
	case "version":
	default:
		printUsage()
		os.Exit(2)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("No migrations applied")
	case err != nil:
		log.Fatal().Err(err).Msg("Version failed")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	}
}

// check treats ErrNoChange as success.
func check(log zerolog.Logger, step string, err error) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("step", step).Msg("Migration failed")
	}
}

func intArg(args []string, cmd string) int {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "%s requires a numeric argument\n", cmd)
		os.Exit(2)
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s argument %q: %v\n", cmd, args[1], err)
		os.Exit(2)
	}
	return v
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, steps <n>, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
