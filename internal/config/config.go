// Package config loads server and client settings with koanf. Values come
// from an optional YAML file and from command-line flags whose defaults are
// read from BAMACO_* environment variables. A flag set on the command line
// wins over the file, the file wins over flag defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read for flag defaults
const EnvPrefix = "BAMACO_"

// Storage backends for the server
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// load reads path (if any) and then the flag set into dst
func load(path string, flags *pflag.FlagSet, dst any) error {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Unchanged flags only fill keys the file did not set
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}

	if err := k.UnmarshalWithConf("", dst, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func env(name, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, err := strconv.Atoi(env(name, "")); err == nil {
		return v
	}
	return def
}

func envBool(name string, def bool) bool {
	if v, err := strconv.ParseBool(env(name, "")); err == nil {
		return v
	}
	return def
}

func envDuration(name string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env(name, "")); err == nil {
		return v
	}
	return def
}

func validLogFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", format)
	}
	return nil
}
