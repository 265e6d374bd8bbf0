package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.ini"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Nil(t, cfg.Aliases)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	content := `[host]
hostname = dev.example.com
user     = deploy

[log]
level = debug
json  = true

[aliases.apt]
nginx = nginx-full

[aliases.dnf]
php = php-cli
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, &Config{
		Hostname: "dev.example.com",
		User:     "deploy",
		LogLevel: "debug",
		LogJSON:  true,
		Aliases: map[string]map[string]string{
			"apt": {"nginx": "nginx-full"},
			"dnf": {"php": "php-cli"},
		},
	}, cfg)
}

func TestParsePartial(t *testing.T) {
	cfg, err := Parse([]byte("[log]\nlevel = warn\n"))

	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestParseInvalidBool(t *testing.T) {
	_, err := Parse([]byte("[log]\njson = maybe\n"))

	assert.ErrorContains(t, err, "[log] json")
}

func TestParseAliasesKeptPerManager(t *testing.T) {
	cfg, err := Parse([]byte("[aliases.Apt]\nphp = php8.1\n"))

	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{"apt": {"php": "php8.1"}}, cfg.Aliases)
	assert.NotContains(t, cfg.Aliases, "dnf")
}

func TestParseRejectsUnscopedAliases(t *testing.T) {
	_, err := Parse([]byte("[aliases]\nnginx = nginx-full\n"))

	assert.ErrorContains(t, err, "[aliases.apt]")
}
