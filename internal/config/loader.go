package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "butterfi"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "BUTTERFI"
	// KnowledgeDBFile is the default index database name under ConfigDir
	KnowledgeDBFile = "knowledge.db"
)

// Secrets never live in the config file.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvChainPrivateKey = "BUTTERFI_CHAIN_PRIVATE_KEY"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs   FileSystem
	path string
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// WithPath makes the loader read an explicit config file instead of the dotfile.
// A missing explicit file is an error.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Load reads configuration from ~/.config/butterfi/config.json, merges it
// with defaults and then applies BUTTERFI_* environment overrides.
// Returns default config if dotfile doesn't exist.
// Returns error only for parse errors, permission issues, or validation failures.
//
// NOTE: Keys present in the file overwrite defaults (even if zero),
// while missing keys leave the defaults untouched.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindEnv(v, "", reflect.TypeOf(*cfg)); err != nil {
		return nil, err
	}

	homeDir, homeErr := l.fs.UserHomeDir()

	configPath := l.path
	if configPath == "" && homeErr == nil {
		configPath = filepath.Join(homeDir, ".config", ConfigDir, ConfigFile)
	}

	if configPath != "" {
		data, err := l.fs.ReadFile(configPath)
		switch {
		case err == nil:
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		case os.IsNotExist(err) && l.path == "":
			// Use defaults if the dotfile doesn't exist
		default:
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Knowledge.DBPath == "" && homeErr == nil {
		cfg.Knowledge.DBPath = filepath.Join(homeDir, ".config", ConfigDir, KnowledgeDBFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnv registers every leaf key of the config struct with viper so that
// BUTTERFI_<SECTION>_<KEY> overrides it.
func bindEnv(v *viper.Viper, prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			if err := bindEnv(v, key, field.Type); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
