package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/security"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
	"github.com/spf13/viper"
)

// Config is the validated, strongly typed configuration for one run
type Config struct {
	Folders         []FolderPolicy
	Notification    NotificationConfig
	DryRun          bool
	NotifyDeletions bool
	MetricsTextfile string
	Schedule        string
	Log             LogConfig

	// Source is the file the configuration was read from, if any
	Source string
}

// FolderPolicy holds the retention limits for one upload directory.
// It is not modified after Load returns.
type FolderPolicy struct {
	Name          string
	Path          string
	MaxAgeDays    int
	MaxStorageMB  float64
	WarnStorageMB float64
	WarnDisabled  bool
	Recursive     bool
	Exclude       []string
}

// MaxStorageBytes returns the hard storage cap in bytes
func (p FolderPolicy) MaxStorageBytes() int64 {
	return utils.FromMB(p.MaxStorageMB)
}

// WarnStorageBytes returns the warning threshold in bytes
func (p FolderPolicy) WarnStorageBytes() int64 {
	return utils.FromMB(p.WarnStorageMB)
}

// NotificationConfig holds the Slack credentials. Both fields empty means
// warnings are written to the log instead.
type NotificationConfig struct {
	SlackToken     string
	SlackChannelID string
	APIURL         string
	Timeout        time.Duration
}

// SlackEnabled reports whether both Slack settings are present
func (n NotificationConfig) SlackEnabled() bool {
	return n.SlackToken != "" && n.SlackChannelID != ""
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// document mirrors the configuration file before validation. Folder
// attributes are decoded as optional strings so that missing, empty and
// malformed values can each be reported.
type document struct {
	Folders            []folderDocument `mapstructure:"folders"`
	SlackAuthToken     string           `mapstructure:"slack_auth_token"`
	SlackChannelID     string           `mapstructure:"slack_channel_id"`
	SlackAPIURL        string           `mapstructure:"slack_api_url"`
	NotifyTimeout      time.Duration    `mapstructure:"notify_timeout"`
	NotifyDeletions    bool             `mapstructure:"notify_deletions"`
	WarnStorageDefault string           `mapstructure:"warn_storage_default"`
	DryRun             bool             `mapstructure:"dry_run"`
	MetricsTextfile    string           `mapstructure:"metrics_textfile"`
	Schedule           string           `mapstructure:"schedule"`
	Log                LogConfig        `mapstructure:"log"`
}

type folderDocument struct {
	Name        *string  `mapstructure:"name"`
	UploadPath  *string  `mapstructure:"upload_path"`
	MaxAge      *string  `mapstructure:"max_age"`
	MaxStorage  *string  `mapstructure:"max_storage"`
	WarnStorage *string  `mapstructure:"warn_storage"`
	Recursive   bool     `mapstructure:"recursive"`
	Exclude     []string `mapstructure:"exclude"`
}

// ConfigError lists every problem found in a configuration document
type ConfigError struct {
	Source   string
	Problems []error
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	where := "configuration"
	if e.Source != "" {
		where = fmt.Sprintf("configuration %s", e.Source)
	}
	return fmt.Sprintf("invalid %s: %s", where, strings.Join(msgs, "; "))
}

func (e *ConfigError) Unwrap() []error {
	return e.Problems
}

// Load reads and validates the configuration at configPath. An empty path
// searches the default locations.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, &ConfigError{Problems: []error{
				fmt.Errorf("cannot find configuration file; looked in %s", strings.Join(SearchPaths(), ", ")),
			}}
		}
		return nil, &ConfigError{Source: configPath, Problems: []error{fmt.Errorf("read config file: %w", err)}}
	}

	return fromViper(v, v.ConfigFileUsed())
}

// Read parses a configuration document of the given format ("json",
// "yaml", "toml") from r.
func Read(r io.Reader, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, &ConfigError{Problems: []error{fmt.Errorf("parse config: %w", err)}}
	}
	return fromViper(v, "")
}

// SearchPaths returns the directories searched when no path is given
func SearchPaths() []string {
	paths := []string{}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exe))
	}
	return append(paths, ".", SystemConfigDir)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	_ = v.BindEnv("slack_auth_token")
	_ = v.BindEnv("slack_channel_id")
	return v
}

func fromViper(v *viper.Viper, source string) (*Config, error) {
	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, &ConfigError{Source: source, Problems: []error{fmt.Errorf("decode config: %w", err)}}
	}

	cfg, problems := doc.build()
	if len(problems) > 0 {
		return nil, &ConfigError{Source: source, Problems: problems}
	}
	cfg.Source = source
	return cfg, nil
}

func (d *document) build() (*Config, []error) {
	var problems []error

	warnDefault := WarnDefault(strings.TrimSpace(d.WarnStorageDefault))
	if warnDefault != WarnDefaultMaxStorage && warnDefault != WarnDefaultNone {
		problems = append(problems, fmt.Errorf("'warn_storage_default' must be %q or %q, got %q",
			WarnDefaultMaxStorage, WarnDefaultNone, d.WarnStorageDefault))
		warnDefault = WarnDefaultMaxStorage
	}

	cfg := &Config{
		DryRun:          d.DryRun,
		NotifyDeletions: d.NotifyDeletions,
		MetricsTextfile: strings.TrimSpace(d.MetricsTextfile),
		Schedule:        strings.TrimSpace(d.Schedule),
		Log:             d.Log,
		Notification: NotificationConfig{
			SlackToken:     strings.TrimSpace(d.SlackAuthToken),
			SlackChannelID: strings.TrimSpace(d.SlackChannelID),
			APIURL:         strings.TrimRight(strings.TrimSpace(d.SlackAPIURL), "/"),
			Timeout:        d.NotifyTimeout,
		},
	}

	switch {
	case d.Folders == nil:
		problems = append(problems, errors.New("'folders' missing from configuration"))
	case len(d.Folders) == 0:
		problems = append(problems, errors.New("'folders' must list at least one folder"))
	}

	seen := make(map[string]int)
	for i, fd := range d.Folders {
		policy, errs := fd.build(i, warnDefault)
		problems = append(problems, errs...)
		if len(errs) > 0 {
			continue
		}
		if prev, dup := seen[policy.Name]; dup {
			problems = append(problems, fmt.Errorf("folders[%d]: name %q already used by folders[%d]", i, policy.Name, prev))
			continue
		}
		seen[policy.Name] = i
		cfg.Folders = append(cfg.Folders, policy)
	}

	problems = append(problems, cfg.problems()...)

	return cfg, problems
}

func (fd folderDocument) build(index int, warnDefault WarnDefault) (FolderPolicy, []error) {
	var problems []error
	fail := func(err error) {
		problems = append(problems, fmt.Errorf("folders[%d]: %w", index, err))
	}

	policy := FolderPolicy{Recursive: fd.Recursive}

	name, err := requireAttribute("name", fd.Name)
	if err != nil {
		fail(err)
	}
	policy.Name = name

	path, err := requireAttribute("upload_path", fd.UploadPath)
	if err != nil {
		fail(err)
	} else if security.IsSystemPath(path) {
		fail(fmt.Errorf("'upload_path' %s is a protected system directory", path))
	}
	policy.Path = filepath.Clean(path)

	if raw, err := requireAttribute("max_age", fd.MaxAge); err != nil {
		fail(err)
	} else if days, err := strconv.Atoi(raw); err != nil {
		fail(fmt.Errorf("'max_age' must be a whole number of days, got %q", raw))
	} else if days < 0 {
		fail(fmt.Errorf("'max_age' must be >= 0, got %d", days))
	} else {
		policy.MaxAgeDays = days
	}

	if raw, err := requireAttribute("max_storage", fd.MaxStorage); err != nil {
		fail(err)
	} else if bytes, err := utils.ParseSize(raw, utils.MB); err != nil {
		fail(fmt.Errorf("'max_storage': %w", err))
	} else {
		policy.MaxStorageMB = utils.ToMB(bytes)
	}

	if fd.WarnStorage == nil || strings.TrimSpace(*fd.WarnStorage) == "" {
		switch warnDefault {
		case WarnDefaultNone:
			policy.WarnDisabled = true
		default:
			policy.WarnStorageMB = policy.MaxStorageMB
		}
	} else if bytes, err := utils.ParseSize(*fd.WarnStorage, utils.MB); err != nil {
		fail(fmt.Errorf("'warn_storage': %w", err))
	} else {
		policy.WarnStorageMB = utils.ToMB(bytes)
	}

	for _, pattern := range fd.Exclude {
		pattern = strings.TrimSpace(pattern)
		if err := security.ValidateGlobPattern(pattern); err != nil {
			fail(fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err))
			continue
		}
		policy.Exclude = append(policy.Exclude, pattern)
	}

	return policy, problems
}

func requireAttribute(attribute string, value *string) (string, error) {
	if value == nil {
		return "", fmt.Errorf("'%s' attribute missing from configuration", attribute)
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return "", fmt.Errorf("'%s' attribute cannot be empty", attribute)
	}
	return v, nil
}

// Validate checks the settings that do not belong to a single folder
func (c *Config) Validate() error {
	return errors.Join(c.problems()...)
}

func (c *Config) problems() []error {
	var problems []error

	n := c.Notification
	if (n.SlackToken == "") != (n.SlackChannelID == "") {
		problems = append(problems, errors.New("slack configuration not set correctly: set both 'slack_auth_token' and 'slack_channel_id' or neither"))
	}
	if n.Timeout <= 0 {
		problems = append(problems, fmt.Errorf("'notify_timeout' must be > 0, got %s", n.Timeout))
	}
	if n.APIURL == "" {
		problems = append(problems, errors.New("'slack_api_url' cannot be empty"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return problems
}

// Hazards describes settings that load fine but cannot behave as intended
func (c *Config) Hazards() []string {
	var hazards []string
	for _, f := range c.Folders {
		if !f.WarnDisabled && f.WarnStorageMB > f.MaxStorageMB {
			hazards = append(hazards, fmt.Sprintf(
				"folder %s: warn_storage (%s) is above max_storage (%s); the warning can never fire",
				f.Name, utils.FormatMB(f.WarnStorageMB), utils.FormatMB(f.MaxStorageMB)))
		}
	}
	return hazards
}
