package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting keys, also the names of the UPSYNC_* environment overrides.
const (
	KeyJobs              = "jobs"
	KeySlowThreshold     = "slow_threshold"
	KeyLogFile           = "log_file"
	KeyAuthRetries       = "auth_retries"
	KeyAuthRetryInterval = "auth_retry_interval"
	KeyDebug             = "debug"
)

const envPrefix = "UPSYNC"

// Settings are the application-wide knobs
type Settings struct {
	// Jobs is the number of repositories synced concurrently.
	Jobs int
	// SlowThreshold marks syncs that took longer as slow.
	SlowThreshold time.Duration
	// LogFile receives a full debug log when set.
	LogFile string
	// AuthRetries is the maximum number of credential attempts per fetch.
	AuthRetries int
	// AuthRetryInterval is the wait between later credential attempts.
	AuthRetryInterval time.Duration
	Debug             bool
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/upsync/config.yaml, falling
// back to ~/.config.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "upsync", "config.yaml")
}

// NewViper returns a viper instance with defaults registered and UPSYNC_*
// environment variables bound.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyJobs, runtime.NumCPU())
	v.SetDefault(KeySlowThreshold, 60*time.Second)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyAuthRetries, 10)
	v.SetDefault(KeyAuthRetryInterval, 2*time.Second)
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings reads configFile (or the default config path) into v and
// returns the resulting settings. A missing default config file is not an
// error; a missing explicit one is.
func LoadSettings(v *viper.Viper, configFile string) (Settings, error) {
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigPath()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit || !(errors.As(err, &notFound) || os.IsNotExist(err) || errors.Is(err, os.ErrNotExist)) {
				return Settings{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
			}
		}
	}

	settings := Settings{
		Jobs:              v.GetInt(KeyJobs),
		SlowThreshold:     v.GetDuration(KeySlowThreshold),
		LogFile:           v.GetString(KeyLogFile),
		AuthRetries:       v.GetInt(KeyAuthRetries),
		AuthRetryInterval: v.GetDuration(KeyAuthRetryInterval),
		Debug:             v.GetBool(KeyDebug),
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	if settings.LogFile != "" {
		path, err := ExpandPath(settings.LogFile)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", KeyLogFile, err)
		}
		settings.LogFile = path
	}
	return settings, nil
}

// Validate rejects settings the scheduler cannot work with
func (s Settings) Validate() error {
	if s.Jobs < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyJobs, s.Jobs)
	}
	if s.AuthRetries < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyAuthRetries, s.AuthRetries)
	}
	if s.AuthRetryInterval < 0 {
		return fmt.Errorf("%s must not be negative", KeyAuthRetryInterval)
	}
	return nil
}
