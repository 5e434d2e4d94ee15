// Package config loads phonebook settings from defaults, a YAML file,
// PHONEBOOK_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName  = "phonebook"
	fileName = "phonebook.yaml"
)

type Config struct {
	URL      string        `mapstructure:"url"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Theme    string        `mapstructure:"theme"`
	Format   string        `mapstructure:"format"`
	LogLevel string        `mapstructure:"log-level"`
	LogFile  string        `mapstructure:"log-file"`
	Server   Server        `mapstructure:"server"`
}

type Server struct {
	Listen   string        `mapstructure:"listen"`
	DelayMin time.Duration `mapstructure:"delay-min"`
	DelayMax time.Duration `mapstructure:"delay-max"`
	Database Database      `mapstructure:"database"`
}

type Database struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Defaults are used for keys set nowhere else.
var Defaults = map[string]any{
	"url":                  "http://localhost:8080",
	"key":                  "",
	"timeout":              "10s",
	"theme":                "classic",
	"format":               "",
	"log-level":            "warn",
	"log-file":             "",
	"server.listen":        ":8080",
	"server.delay-min":     "0s",
	"server.delay-max":     "0s",
	"server.database.type": "sqlite",
	"server.database.dsn":  "./phonebook.db",
}

// flagKeys maps config keys to the flag that overrides them.
var flagKeys = map[string]string{
	"url":                  "url",
	"key":                  "key",
	"timeout":              "timeout",
	"theme":                "theme",
	"format":               "format",
	"log-level":            "log-level",
	"log-file":             "log-file",
	"server.listen":        "listen",
	"server.delay-min":     "delay-min",
	"server.delay-max":     "delay-max",
	"server.database.type": "db-type",
	"server.database.dsn":  "db-dsn",
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// Load builds the configuration for cmd. configFile, when non-empty, is read
// instead of searching the default locations.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, a broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// KeyFromURL returns the "key" query parameter of raw, if any.
func KeyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("key"))
}

// file is the on-disk shape written by WriteFile.
type file struct {
	URL      string     `yaml:"url"`
	Key      string     `yaml:"key,omitempty"`
	Timeout  string     `yaml:"timeout"`
	Theme    string     `yaml:"theme"`
	Format   string     `yaml:"format,omitempty"`
	LogLevel string     `yaml:"log-level"`
	Server   fileServer `yaml:"server"`
}

type fileServer struct {
	Listen   string       `yaml:"listen"`
	DelayMin string       `yaml:"delay-min"`
	DelayMax string       `yaml:"delay-max"`
	Database fileDatabase `yaml:"database"`
}

type fileDatabase struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// Marshal renders c as YAML that Load reads back.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(file{
		URL:      c.URL,
		Key:      c.Key,
		Timeout:  c.Timeout.String(),
		Theme:    c.Theme,
		Format:   c.Format,
		LogLevel: c.LogLevel,
		Server: fileServer{
			Listen:   c.Server.Listen,
			DelayMin: c.Server.DelayMin.String(),
			DelayMax: c.Server.DelayMax.String(),
			Database: fileDatabase{Type: c.Server.Database.Type, DSN: c.Server.Database.DSN},
		},
	})
}

// WriteFile writes c to path, or to the user config directory when path is empty.
func WriteFile(c Config, path string) (string, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, fileName)
	}
	data, err := Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}
	// May contain the auth key.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
