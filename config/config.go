// Package config loads server settings from, in increasing precedence,
// built-in defaults, a .env file, an optional YAML file, FOLDNOTE_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "foldnote.yaml"

var errInvalid = errors.New("invalid config")

type Config struct {
	Env       string `yaml:"env"`
	Port      string `yaml:"port"`
	Token     string `yaml:"token"`
	TokenHash string `yaml:"token_hash"`

	// Storage
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Inbound websocket feed, disabled when empty.
	FeedURL string `yaml:"feed_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		Env:       "development",
		Port:      "8080",
		Token:     "dev",
		Backend:   "file",
		DataDir:   "./data",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load builds the configuration. path names a YAML file that must exist;
// when empty, DefaultFile is read if present. The result is not validated:
// flags may still override it, so call Validate last.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := loadFile(&cfg, path); err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	mustExist := path != ""
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !mustExist {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"FOLDNOTE_ENV":            &cfg.Env,
		"FOLDNOTE_PORT":           &cfg.Port,
		"FOLDNOTE_TOKEN":          &cfg.Token,
		"FOLDNOTE_TOKEN_HASH":     &cfg.TokenHash,
		"FOLDNOTE_BACKEND":        &cfg.Backend,
		"FOLDNOTE_DATA_DIR":       &cfg.DataDir,
		"FOLDNOTE_DATABASE_URL":   &cfg.DatabaseURL,
		"FOLDNOTE_REDIS_ADDR":     &cfg.RedisAddr,
		"FOLDNOTE_REDIS_PASSWORD": &cfg.RedisPassword,
		"FOLDNOTE_REDIS_PREFIX":   &cfg.RedisPrefix,
		"FOLDNOTE_FEED_URL":       &cfg.FeedURL,
		"FOLDNOTE_LOG_LEVEL":      &cfg.LogLevel,
		"FOLDNOTE_LOG_FORMAT":     &cfg.LogFormat,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("FOLDNOTE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FOLDNOTE_REDIS_DB: %w", errInvalid, err)
		}
		cfg.RedisDB = db
	}
	return nil
}

// BindFlags registers overrides for the most common settings on fs. Call
// Apply after fs.Parse.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:       fs,
		port:     fs.StringP("port", "p", "", "HTTP listen port"),
		backend:  fs.StringP("backend", "b", "", "storage backend: memory, file, postgres, redis"),
		dataDir:  fs.String("data-dir", "", "directory for the file backend"),
		feedURL:  fs.String("feed-url", "", "websocket feed to ingest notes and folders from"),
		logLevel: fs.String("log-level", "", "log level: debug, info, warn, error"),
	}
}

type Flags struct {
	fs       *flag.FlagSet
	port     *string
	backend  *string
	dataDir  *string
	feedURL  *string
	logLevel *string
}

// Apply copies every flag that was set on the command line into cfg.
func (f *Flags) Apply(cfg *Config) {
	set := map[string]struct {
		src *string
		dst *string
	}{
		"port":      {f.port, &cfg.Port},
		"backend":   {f.backend, &cfg.Backend},
		"data-dir":  {f.dataDir, &cfg.DataDir},
		"feed-url":  {f.feedURL, &cfg.FeedURL},
		"log-level": {f.logLevel, &cfg.LogLevel},
	}
	for name, p := range set {
		if f.fs.Changed(name) {
			*p.dst = *p.src
		}
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
	case "file":
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir is required for the file backend", errInvalid)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres backend", errInvalid)
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", errInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", errInvalid, c.Backend)
	}

	if c.Port == "" {
		return fmt.Errorf("%w: port is empty", errInvalid)
	}
	if c.Env == "production" && c.TokenHash == "" && c.Token == "dev" {
		return fmt.Errorf("%w: set token or token_hash in production", errInvalid)
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) IsDev() bool {
	return c.Env == "development"
}
