// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and AUTOROLE_ env vars.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLanguages lists 10FF language names indexed by language id. Index 0
// is the profile's primary language and has no name.
var DefaultLanguages = []string{
	"",
	"english", "german", "french", "portuguese", "spanish",
	"indonesian", "turkish", "vietnamese", "polish", "romanian",
	"malaysian", "norwegian", "persian", "hungarian", "chinese_simplified",
	"chinese_traditional", "danish", "dutch", "swedish", "italian",
	"finnish", "serbian", "catalan", "filipino", "croatian",
	"russian", "arabic", "bulgarian", "japanese", "albanian",
	"korean", "greek", "czech", "estonian", "latvian",
	"hebrew", "urdu", "galician", "lithuanian", "georgian",
	"armenian", "kurdish", "azerbaijani", "hindi", "slovak",
	"slovenian", "icelandic", "thai", "bengali", "tamil",
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CatalogPath points at the role catalog document.
	CatalogPath string `koanf:"catalog_path"`

	// Languages are the accepted language names indexed by language id.
	Languages []string `koanf:"languages"`

	// ProfileBaseURL is the 10FF site the profile provider reads.
	ProfileBaseURL string `koanf:"profile_base_url"`

	// AcquisitionTimeoutMS bounds one snapshot acquisition; 0 means none.
	AcquisitionTimeoutMS int `koanf:"acquisition_timeout_ms"`

	// QueueCapacity bounds pending requests per guild; 0 means unbounded.
	QueueCapacity int `koanf:"queue_capacity"`

	// DryRun computes and reports diffs without mutating roles.
	DryRun bool `koanf:"dry_run"`

	// AdminToken is the bearer token of the HTTP admin routes.
	AdminToken string `koanf:"admin_token"`

	// DiscordToken enables the Discord front end when set.
	DiscordToken string `koanf:"discord_token"`

	// GuildID is the guild the bot serves and the default guild of HTTP
	// requests.
	GuildID string `koanf:"guild_id"`

	// RequestChannelID is the channel `role` commands are read from.
	RequestChannelID string `koanf:"request_channel_id"`

	// AdminUserID is the member whose DMs drive the intake gate.
	AdminUserID string `koanf:"admin_user_id"`

	// ModeratorIDs are warned when 200+ WPM roles are granted.
	ModeratorIDs []string `koanf:"moderator_ids"`

	// CompletionistAchievements overrides the achievements that make a
	// profile completionist.
	CompletionistAchievements []int `koanf:"completionist_achievements"`

	// RoleNames maps role ids to names for the in-memory guild used when
	// Discord is disabled.
	RoleNames map[string]string `koanf:"role_names"`

	// ShutdownTimeoutMS bounds the drain of queued requests on shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		CatalogPath:       "configs/roles.example.yaml",
		Languages:         append([]string(nil), DefaultLanguages...),
		ProfileBaseURL:    "https://10fastfingers.com",
		DryRun:            true,
		ShutdownTimeoutMS: 30_000,
	}
}

// DiscordEnabled reports whether the Discord front end should run.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != ""
}

// AcquisitionTimeout returns AcquisitionTimeoutMS as a duration.
func (c *Config) AcquisitionTimeout() time.Duration {
	return time.Duration(c.AcquisitionTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.CatalogPath) == "":
		return fmt.Errorf("%w: catalog_path must not be empty", ErrInvalidConfig)
	case c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.AcquisitionTimeoutMS < 0:
		return fmt.Errorf("%w: acquisition_timeout_ms must not be negative", ErrInvalidConfig)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue_capacity must not be negative", ErrInvalidConfig)
	case c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must not be negative", ErrInvalidConfig)
	case len(c.Languages) == 0 || c.Languages[0] != "":
		return fmt.Errorf("%w: languages must start with the empty primary-language entry", ErrInvalidConfig)
	case c.DiscordEnabled() && (c.GuildID == "" || c.RequestChannelID == ""):
		return fmt.Errorf("%w: discord needs guild_id and request_channel_id", ErrInvalidConfig)
	}
	return nil
}
