package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/vinizap/foldnote/auth"
	"github.com/vinizap/foldnote/config"
	httphandlers "github.com/vinizap/foldnote/http"
	"github.com/vinizap/foldnote/storage"
	"github.com/vinizap/foldnote/store"
	"github.com/vinizap/foldnote/workspace"
	"github.com/vinizap/foldnote/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if err := hashToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func hashToken(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: foldnote hash-token <token>")
	}
	hash, err := auth.HashToken(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogFormat == "json" {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return log.Level(level).With().Timestamp().Logger()
}

func run(args []string) error {
	fs := flag.NewFlagSet("foldnote", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "YAML config file (default "+config.DefaultFile+" if present)")
	flags := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)
	if cfg.IsDev() && cfg.TokenHash == "" && cfg.Token == "dev" {
		log.Warn().Msg("using the default development token")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, storage.Options{
		Kind:          storage.Kind(cfg.Backend),
		DataDir:       cfg.DataDir,
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("close backend")
		}
	}()

	storeLog := log.With().Str("component", "store").Logger()
	folders, err := store.NewFolderStore(ctx, backend, storeLog)
	if err != nil {
		return err
	}
	notes, err := store.NewNoteStore(ctx, backend, storeLog)
	if err != nil {
		return err
	}
	space := workspace.New(folders, notes)

	if cfg.FeedURL != "" {
		feedLog := log.With().Str("component", "feed").Logger()
		client := ws.NewClient(cfg.FeedURL, ws.NewDispatcher(folders, notes, feedLog), feedLog)
		go func() {
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("feed stopped")
			}
		}()
	}

	app := httphandlers.NewServer(space, cfg.Token, cfg.TokenHash, log.With().Str("component", "http").Logger()).App()

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("backend", cfg.Backend).
			Int("folders", folders.Len()).
			Int("notes", notes.Len()).
			Msg("server starting")
		errc <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
