package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigName is the file name (without extension) searched for
	// when --config is not given
	DefaultConfigName = "config"

	// SystemConfigDir is the last directory searched for a config file
	SystemConfigDir = "/etc/uploads-maintenance"

	// EnvPrefix prefixes the environment overrides for Slack credentials,
	// e.g. UPLOADS_SLACK_AUTH_TOKEN
	EnvPrefix = "UPLOADS"

	DefaultSlackAPIURL   = "https://slack.com/api"
	DefaultNotifyTimeout = 10 * time.Second
)

// WarnDefault selects what an omitted warn_storage means
type WarnDefault string

const (
	// WarnDefaultMaxStorage warns whenever usage is above max_storage
	WarnDefaultMaxStorage WarnDefault = "max_storage"
	// WarnDefaultNone disables warnings for folders without warn_storage
	WarnDefaultNone WarnDefault = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("slack_api_url", DefaultSlackAPIURL)
	v.SetDefault("notify_timeout", DefaultNotifyTimeout)
	v.SetDefault("notify_deletions", false)
	v.SetDefault("warn_storage_default", string(WarnDefaultMaxStorage))
	v.SetDefault("dry_run", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}
