// Package config resolves the author identity and catalog server settings
// consumed by container validation and upload/download.
//
// Each parameter is resolved from up to three layers, later layers
// overriding earlier ones:
//
//  1. environment variables (DC_AUTHOR, DC_EMAIL, DC_ORCID,
//     DC_ORGANIZATION, DC_SERVER, DC_KEY),
//  2. the user configuration file,
//  3. explicit values set by the caller on the returned Config.
//
// The configuration file is "~/.scidata.yaml" when present, falling back to
// the legacy "~/.scidata" ("scidata.cfg" on Windows) key=value format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Config carries the resolved identity and server settings. The container
// treats it as read-only.
type Config struct {
	Author       string `yaml:"author"`
	Email        string `yaml:"email"`
	ORCID        string `yaml:"orcid"`
	Organization string `yaml:"organization"`
	Server       string `yaml:"server"`
	Key          string `yaml:"key"`
}

// Load resolves the configuration from the environment and the default
// configuration file. A missing file is not an error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	if yamlPath := filepath.Join(home, ".scidata.yaml"); home != "" {
		if _, err := os.Stat(yamlPath); err == nil {
			return LoadFile(yamlPath)
		}
	}
	legacy := ".scidata"
	if runtime.GOOS == "windows" {
		legacy = "scidata.cfg"
	}
	return LoadFile(filepath.Join(home, legacy))
}

// LoadFile resolves the configuration from the environment and the named
// configuration file. A missing file leaves the environment values in
// place.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.fromEnv()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg.fromLegacy(string(data))
	return cfg, nil
}

func (c *Config) fromEnv() {
	for name, field := range c.fields() {
		if v, ok := os.LookupEnv("DC_" + strings.ToUpper(name)); ok {
			*field = strings.TrimSpace(v)
		}
	}
}

// fromLegacy parses the original "<key> = <value>" line format. Lines
// starting with "#" and lines without an equal sign are ignored; keys are
// case-insensitive.
func (c *Config) fromLegacy(data string) {
	fields := c.fields()
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if field, known := fields[strings.ToLower(strings.TrimSpace(key))]; known {
			*field = strings.TrimSpace(value)
		}
	}
}

func (c *Config) fields() map[string]*string {
	return map[string]*string{
		"author":       &c.Author,
		"email":        &c.Email,
		"orcid":        &c.ORCID,
		"organization": &c.Organization,
		"server":       &c.Server,
		"key":          &c.Key,
	}
}
