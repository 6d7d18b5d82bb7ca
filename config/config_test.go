package config

import (
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"FOLDNOTE_ENV", "FOLDNOTE_PORT", "FOLDNOTE_TOKEN", "FOLDNOTE_TOKEN_HASH",
	"FOLDNOTE_BACKEND", "FOLDNOTE_DATA_DIR", "FOLDNOTE_DATABASE_URL",
	"FOLDNOTE_REDIS_ADDR", "FOLDNOTE_REDIS_PASSWORD", "FOLDNOTE_REDIS_DB",
	"FOLDNOTE_REDIS_PREFIX", "FOLDNOTE_FEED_URL", "FOLDNOTE_LOG_LEVEL",
	"FOLDNOTE_LOG_FORMAT",
}

// clearEnv runs the test from an empty directory with every FOLDNOTE_*
// variable blank, so only what the test sets is seen.
func clearEnv(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDev())
}

func TestLoad_DefaultFileAndEnvOverride(t *testing.T) {
	dir := clearEnv(t)
	writeFile(t, filepath.Join(dir, DefaultFile), `
port: "9000"
backend: redis
redis_addr: localhost:6379
redis_db: 2
feed_url: ws://localhost:8081/
`)
	t.Setenv("FOLDNOTE_PORT", "9100")
	t.Setenv("FOLDNOTE_REDIS_DB", "4")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, "ws://localhost:8081/", cfg.FeedURL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := clearEnv(t)
	os.Unsetenv("FOLDNOTE_BACKEND")
	writeFile(t, filepath.Join(dir, ".env"), "FOLDNOTE_BACKEND=memory\n")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	clearEnv(t)

	_, err := Load("missing.yaml")
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := clearEnv(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "port: [")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadRedisDB(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLDNOTE_REDIS_DB", "two")

	_, err := Load("")
	assert.ErrorIs(t, err, errInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "memory", mutate: func(c *Config) { c.Backend = "memory"; c.DataDir = "" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "sqlite" }, wantErr: true},
		{name: "file without dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: true},
		{name: "postgres without url", mutate: func(c *Config) { c.Backend = "postgres" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Backend = "redis" }, wantErr: true},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, wantErr: true},
		{name: "production with dev token", mutate: func(c *Config) { c.Env = "production" }, wantErr: true},
		{name: "production with hash", mutate: func(c *Config) { c.Env = "production"; c.TokenHash = "$2a$10$x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFlags_OnlyChangedOverride(t *testing.T) {
	fs := flag.NewFlagSet("foldnote", flag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-p", "7000", "--backend=memory"}))

	cfg := Default()
	cfg.FeedURL = "ws://keep"
	flags.Apply(&cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, "ws://keep", cfg.FeedURL)
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestFlags_FixInvalidFileConfig(t *testing.T) {
	dir := clearEnv(t)
	writeFile(t, filepath.Join(dir, DefaultFile), "backend: postgres\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), errInvalid)

	fs := flag.NewFlagSet("foldnote", flag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--backend", "memory"}))
	flags.Apply(&cfg)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Backend)
}
