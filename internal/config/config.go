// Package config loads rpn settings from defaults, an optional rpn.yaml,
// RPN_* environment variables and command-line flags, in increasing order of
// precedence, and validates the result against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. RPN_ADDR.
const EnvPrefix = "RPN"

// Config holds every setting.
type Config struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	DB             string        `mapstructure:"db" json:"db"`
	Session        string        `mapstructure:"session" json:"session"`
	Remote         string        `mapstructure:"remote" json:"remote"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" json:"allowed_origins"`
	LogLevel       string        `mapstructure:"log_level" json:"log_level"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:           ":8000",
		Session:        "default",
		Timeout:        10 * time.Second,
		AllowedOrigins: []string{"http://localhost:5173"},
		LogLevel:       "info",
	}
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. When empty, RPN_CONFIG is consulted,
	// then rpn.yaml in the search directories. An explicit file must exist.
	File string

	// Flags are bound by name. A flag overrides every other source only when
	// it was set on the command line.
	Flags *pflag.FlagSet

	// FlagKeys maps flag names to config keys where they differ
	// (e.g. "allowed-origin" -> "allowed_origins").
	FlagKeys map[string]string
}

// Load resolves and validates the configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("addr", def.Addr)
	v.SetDefault("db", def.DB)
	v.SetDefault("session", def.Session)
	v.SetDefault("remote", def.Remote)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("allowed_origins", def.AllowedOrigins)
	v.SetDefault("log_level", def.LogLevel)

	file := opts.File
	if file == "" {
		file = os.Getenv(EnvPrefix + "_CONFIG")
	}
	configureConfigFile(v, file)
	if err := readConfigFile(v, file != ""); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags, opts.FlagKeys); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SlogLevel converts LogLevel into a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := f.Name
		if k, ok := keys[f.Name]; ok {
			key = k
		}
		if !isKnownKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind flag %q: %w", f.Name, err)
		}
	})
	return bindErr
}

func isKnownKey(key string) bool {
	switch key {
	case "addr", "db", "session", "remote", "timeout", "allowed_origins", "log_level":
		return true
	}
	return false
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("rpn")
	v.SetConfigType("yaml")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "rpn"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, ".config", "rpn"))
	}
	add(".")
	return dirs
}

// splitOrigins flattens comma-separated entries, as produced by
// RPN_ALLOWED_ORIGINS or a repeated flag.
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
