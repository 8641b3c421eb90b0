package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/blog"
	"github.com/2beens/portfoliocms/internal/logging"
)

type toolEnv struct {
	DatabaseURL string `env:"DATABASE_URL"`
	ContentDir  string `env:"CONTENT_DIR" envDefault:"content"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

const usage = `usage: blogtool <command> [flags]

commands:
  extract   read blog_posts rows from a plain SQL dump into a posts JSON file
  merge     merge the extracted backup posts into the posts JSON file
  seed      upsert the posts JSON file into the blog_posts table
`

func main() {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("load .env.local: %s", err)
	}

	var cfg toolEnv
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %s", err)
	}
	log.SetLevel(logging.GetLevel(cfg.LogLevel))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Errorf("%s: %s", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg toolEnv, command string, args []string) error {
	postsPath := filepath.Join(cfg.ContentDir, "blog", "posts.json")
	backupPath := filepath.Join(cfg.ContentDir, "blog", "posts_from_backup.json")

	switch command {
	case "extract":
		fs := flag.NewFlagSet("extract", flag.ExitOnError)
		dumpPath := fs.String("dump", "backup.sql", "plain SQL dump to read")
		outPath := fs.String("out", backupPath, "posts JSON file to write")
		_ = fs.Parse(args)
		if fs.NArg() > 0 {
			*dumpPath = fs.Arg(0)
		}
		_, err := extractToFile(*dumpPath, *outPath)
		return err

	case "merge":
		fs := flag.NewFlagSet("merge", flag.ExitOnError)
		from := fs.String("backup", backupPath, "extracted backup posts JSON file")
		into := fs.String("posts", postsPath, "posts JSON file to merge into")
		_ = fs.Parse(args)
		_, err := mergeFiles(*from, *into)
		return err

	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		from := fs.String("posts", postsPath, "posts JSON file to seed from")
		_ = fs.Parse(args)
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set, add it to .env.local or the environment")
		}

		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer dbPool.Close()

		_, err = seedFromFile(ctx, blog.NewRepo(dbPool), *from, time.Now())
		return err

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}
