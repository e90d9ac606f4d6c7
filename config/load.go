package config

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// ConfigFileName is the configuration file nextver looks for in the
// repository root, without extension (viper tries the registered types in
// turn).
const ConfigFileName = ".nextver"

// Load reads configuration from configPath using fs (so tests can supply
// an in-memory afero filesystem), folds it over the built-in defaults, and
// validates the result. A missing file is not an error: Load falls back to
// Default(). configPath may be a directory (Load looks for ConfigFileName
// inside it) or the path to a specific file.
func Load(fs afero.Fs, configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	if info, err := fs.Stat(configPath); err == nil && !info.IsDir() {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(configPath)
	}

	v.SetEnvPrefix("NEXTVER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("versioning-mode", "ContinuousDelivery")
	v.SetDefault("increment", "Patch")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var raw rawConfiguration
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return build(raw)
}
