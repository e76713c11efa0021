package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix          = "PHOTOCAT"
	defaultDataFile    = "photocat.xlsx"
	defaultDatabase    = "photocat.db"
	defaultCatalogFile = "photocat_fields.hcl"
	defaultLogLevel    = "info"
)

// AppConfig captures runtime configuration for the CLI.
type AppConfig struct {
	DataFile     string
	DatabasePath string
	CatalogPath  string
	LogLevel     string
}

// NewViper returns a viper instance with defaults and env bindings
// configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided
// viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.file", defaultDataFile)
	v.SetDefault("database.path", defaultDatabase)
	v.SetDefault("catalog.path", defaultCatalogFile)
	v.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		DataFile:     v.GetString("data.file"),
		DatabasePath: v.GetString("database.path"),
		CatalogPath:  v.GetString("catalog.path"),
		LogLevel:     v.GetString("log.level"),
	}
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DataFile) == "" {
		return fmt.Errorf("data file must not be empty")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		return fmt.Errorf("catalog path must not be empty")
	}
	return nil
}
