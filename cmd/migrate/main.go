// Command migrate manages the engine's schema.
//
//	migrate -cmd up|down|status|to|create|validate [-dir path] [-name n] [-version v]
//
// up, down, status and to run the migrations embedded in this binary unless
// -dir points somewhere else. create and validate work on the source tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|to|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	name := flag.String("name", "", "migration name for create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for to")
	flag.Parse()

	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exit("create: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exit("validate: %v", err)
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		exit("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}

	var source fs.FS = migrate.Embedded()
	if *dir != migrate.DefaultDir {
		source = os.DirFS(*dir)
	}
	m, err := migrate.New(sqlDB, source)
	if err != nil {
		logg.Error(ctx, "loading migrations", err)
		os.Exit(1)
	}

	var results []*goose.MigrationResult
	switch *cmd {
	case "up":
		results, err = m.Up(ctx)
	case "down":
		results, err = m.Down(ctx)
	case "to":
		target, perr := migrate.ParseVersion(*version)
		if perr != nil {
			exit("to: %v", perr)
		}
		results, err = m.To(ctx, target)
	case "status":
		statuses, serr := m.Status(ctx)
		if serr != nil {
			logg.Error(ctx, "status failed", serr)
			os.Exit(1)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-20s %d %s\n", applied, s.Source.Version, s.Source.Path)
		}
		return
	default:
		exit("unknown -cmd %q", *cmd)
	}

	for _, r := range results {
		fmt.Printf("%-4s %d %s (%s)\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration)
	}
	if err != nil {
		logg.Error(ctx, *cmd+" failed", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "migrations", len(results)), *cmd+" complete")
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
