package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/firstcomment/internal/privacy"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile  = "appsettings.json"
	DefaultStoragePath = ".firstcomment/firstcomment.db"
	DefaultStorageMode = StorageSQLite
	DefaultRetain      = 30 * 24 * time.Hour
	DefaultInterval    = 5 * time.Second
	DefaultFreshness   = 2 * time.Minute
	DefaultWallCount   = 2
	DefaultOnError     = OnErrorContinue
	DefaultScope       = ScopeAll

	// ScopeAll requests every user permission VK grants to standalone apps.
	ScopeAll = "notify,friends,photos,audio,video,stories,pages,status,notes,messages," +
		"wall,ads,offline,docs,groups,notifications,stats,email,market"

	// MaxWallCount is the largest page wall.get accepts.
	MaxWallCount = 100
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	OnErrorContinue = "continue"
	OnErrorExit     = "exit"
)

// Duration wraps time.Duration for decoding from strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Config is the whole settings file. The vk section keeps the key names of
// the original appsettings.json so existing files load unchanged.
type Config struct {
	VK      *VKConfig     `json:"vk" yaml:"vk"`
	Bot     BotConfig     `json:"bot" yaml:"bot"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Privacy PrivacyConfig `json:"privacy" yaml:"privacy"`
}

type VKConfig struct {
	ApplicationID  int64  `json:"ApplicationId" yaml:"ApplicationId" validate:"required_without=AccessToken"`
	ClientSecret   string `json:"ClientSecret" yaml:"ClientSecret"`
	Login          string `json:"Login" yaml:"Login" validate:"required_without=AccessToken"`
	Password       string `json:"Password" yaml:"Password" validate:"required_without=AccessToken"`
	PasswordEnv    string `json:"PasswordEnv" yaml:"PasswordEnv"`
	AccessToken    string `json:"AccessToken" yaml:"AccessToken"`
	AccessTokenEnv string `json:"AccessTokenEnv" yaml:"AccessTokenEnv"`
	Scope          string `json:"Scope" yaml:"Scope"`
	TargetGroup    string `json:"TargetGroup" yaml:"TargetGroup" validate:"required"`
	TargetMessage  string `json:"TargetMessage" yaml:"TargetMessage" validate:"required"`
}

type BotConfig struct {
	Interval  Duration `json:"interval" yaml:"interval"`
	Freshness Duration `json:"freshness" yaml:"freshness"`
	WallCount int      `json:"wall_count" yaml:"wall_count"`
	OnError   string   `json:"on_error" yaml:"on_error"`
}

// PrivacyConfig lists extra regexps scrubbed from printed errors, on top of
// the configured credentials.
type PrivacyConfig struct {
	RedactPatterns []string `json:"redact_patterns" yaml:"redact_patterns"`

	compiled []*regexp.Regexp
}

type StorageConfig struct {
	Mode   string   `json:"mode" yaml:"mode"`
	Path   string   `json:"path" yaml:"path"`
	Retain Duration `json:"retain" yaml:"retain"`
}

var validate = validator.New()

// Load reads the settings file at path, applies defaults, resolves env vars, and validates.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.VK == nil {
		return nil, errors.New("config: missing vk section")
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := check(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.VK.Scope == "" {
		cfg.VK.Scope = DefaultScope
	}
	if cfg.Bot.Interval.Duration == 0 {
		cfg.Bot.Interval.Duration = DefaultInterval
	}
	if cfg.Bot.Freshness.Duration == 0 {
		cfg.Bot.Freshness.Duration = DefaultFreshness
	}
	if cfg.Bot.WallCount == 0 {
		cfg.Bot.WallCount = DefaultWallCount
	}
	if cfg.Bot.OnError == "" {
		cfg.Bot.OnError = DefaultOnError
	}
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = DefaultStorageMode
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.Retain.Duration == 0 {
		cfg.Storage.Retain.Duration = DefaultRetain
	}
}

func resolveEnv(cfg *Config) {
	if cfg.VK.PasswordEnv != "" {
		if v := os.Getenv(cfg.VK.PasswordEnv); v != "" {
			cfg.VK.Password = v
		}
	}
	if cfg.VK.AccessTokenEnv != "" {
		if v := os.Getenv(cfg.VK.AccessTokenEnv); v != "" {
			cfg.VK.AccessToken = v
		}
	}
}

func check(cfg *Config) error {
	if err := validate.Struct(cfg.VK); err != nil {
		return fmt.Errorf("vk: %w", err)
	}

	if cfg.Bot.Interval.Duration < 0 {
		return fmt.Errorf("bot.interval: must be positive, got %s", cfg.Bot.Interval.Duration)
	}
	if cfg.Bot.Freshness.Duration < 0 {
		return fmt.Errorf("bot.freshness: must be positive, got %s", cfg.Bot.Freshness.Duration)
	}
	if cfg.Bot.WallCount < 1 || cfg.Bot.WallCount > MaxWallCount {
		return fmt.Errorf("bot.wall_count: must be between 1 and %d, got %d", MaxWallCount, cfg.Bot.WallCount)
	}

	switch cfg.Bot.OnError {
	case OnErrorContinue, OnErrorExit:
		// valid
	default:
		return fmt.Errorf("bot.on_error: unknown policy %q (want continue or exit)", cfg.Bot.OnError)
	}

	switch cfg.Storage.Mode {
	case StorageSQLite, StorageMemory:
		// valid
	default:
		return fmt.Errorf("storage.mode: unknown mode %q (want sqlite or memory)", cfg.Storage.Mode)
	}

	compiled, err := privacy.Compile(cfg.Privacy.RedactPatterns)
	if err != nil {
		return fmt.Errorf("privacy.redact_patterns: %w", err)
	}
	cfg.Privacy.compiled = compiled

	// Forgetting a post that may still be fresh would allow a second comment.
	if cfg.Storage.Retain.Duration < cfg.Bot.Freshness.Duration {
		return fmt.Errorf("storage.retain: %s is shorter than bot.freshness %s",
			cfg.Storage.Retain.Duration, cfg.Bot.Freshness.Duration)
	}

	return nil
}

// RedactPatterns returns the compiled privacy.redact_patterns. It is empty
// for a Config that did not come from Load.
func (c *Config) RedactPatterns() []*regexp.Regexp {
	if c == nil {
		return nil
	}
	return c.Privacy.compiled
}

// Secrets returns the credential values that must never appear in output.
func (c *Config) Secrets() []string {
	if c == nil || c.VK == nil {
		return nil
	}
	var out []string
	for _, s := range []string{c.VK.Password, c.VK.AccessToken, c.VK.ClientSecret} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
