// Package config loads valet's INI configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the resolved configuration. Zero values mean "use the default".
type Config struct {
	Hostname string
	User     string
	LogLevel string
	LogJSON  bool

	// Aliases holds one package name table per package manager, keyed by
	// the lower-case manager name ("apt", "dnf"). Each table is layered
	// over that manager's built-in aliases.
	Aliases map[string]map[string]string
}

const aliasesSection = "aliases"

func Default() *Config {
	return &Config{
		Hostname: "localhost",
		LogLevel: "info",
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	if err := cfg.apply(file); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load for in-memory content.
func Parse(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := cfg.apply(file); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(file *ini.File) error {
	host := file.Section("host")
	c.Hostname = host.Key("hostname").MustString(c.Hostname)
	c.User = host.Key("user").MustString(c.User)

	log := file.Section("log")
	c.LogLevel = log.Key("level").MustString(c.LogLevel)
	if log.HasKey("json") {
		json, err := log.Key("json").Bool()
		if err != nil {
			return fmt.Errorf("[log] json: %w", err)
		}
		c.LogJSON = json
	}

	if section, err := file.GetSection(aliasesSection); err == nil && len(section.Keys()) > 0 {
		return fmt.Errorf("[%s] must name a package manager, for example [%s.apt]", aliasesSection, aliasesSection)
	}
	for _, section := range file.Sections() {
		manager, ok := strings.CutPrefix(section.Name(), aliasesSection+".")
		if !ok || manager == "" {
			continue
		}
		if c.Aliases == nil {
			c.Aliases = make(map[string]map[string]string)
		}
		table := make(map[string]string, len(section.Keys()))
		for _, key := range section.Keys() {
			table[key.Name()] = key.String()
		}
		c.Aliases[strings.ToLower(manager)] = table
	}
	return nil
}

// DefaultPath is ~/.config/valet/config.ini, or "" when HOME is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "valet", "config.ini")
}
