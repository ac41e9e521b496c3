package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

// Browser engines
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// Config holds all application configuration
type Config struct {
	Version    int              `toml:"version"`
	Platform   PlatformConfig   `toml:"platform"`
	Browser    BrowserConfig    `toml:"browser"`
	Timeouts   TimeoutsConfig   `toml:"timeouts"`
	Pagination PaginationConfig `toml:"pagination"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Log        LogConfig        `toml:"log"`
}

type PlatformConfig struct {
	BaseURL string `toml:"base_url" env:"TIKFOLLOW_BASE_URL"`
}

type BrowserConfig struct {
	Engine       string `toml:"engine" env:"TIKFOLLOW_ENGINE"`
	Headless     bool   `toml:"headless" env:"TIKFOLLOW_HEADLESS"`
	UserAgent    string `toml:"user_agent" env:"TIKFOLLOW_USER_AGENT"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
}

// TimeoutsConfig bounds every blocking step of a run
type TimeoutsConfig struct {
	Navigation      time.Duration `toml:"navigation" env:"TIKFOLLOW_NAVIGATION_TIMEOUT"`
	Login           time.Duration `toml:"login" env:"TIKFOLLOW_LOGIN_TIMEOUT"`
	LoginMethod     time.Duration `toml:"login_method"`
	ChallengeWindow time.Duration `toml:"challenge_window" env:"TIKFOLLOW_CHALLENGE_WINDOW"`
	Follow          time.Duration `toml:"follow"`
	Like            time.Duration `toml:"like"`
	Script          time.Duration `toml:"script"`
	Click           time.Duration `toml:"click"`
	PostAction      time.Duration `toml:"post_action"`
	VideoRender     time.Duration `toml:"video_render"`
}

type PaginationConfig struct {
	InitialRender time.Duration `toml:"initial_render"`
	Settle        time.Duration `toml:"settle"`
	MaxScrolls    int           `toml:"max_scrolls" env:"TIKFOLLOW_MAX_SCROLLS"`
	StableRounds  int           `toml:"stable_rounds"`
}

// ScheduleConfig enables repeated runs. An empty Cron runs once.
type ScheduleConfig struct {
	Cron       string        `toml:"cron" env:"TIKFOLLOW_SCHEDULE"`
	Timezone   string        `toml:"timezone"`
	RunTimeout time.Duration `toml:"run_timeout"`
}

type LogConfig struct {
	Level string `toml:"level" env:"TIKFOLLOW_LOG_LEVEL"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Platform: PlatformConfig{
			BaseURL: "https://www.tiktok.com",
		},
		Browser: BrowserConfig{
			Engine:       EngineChromedp,
			Headless:     false,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Timeouts: TimeoutsConfig{
			Navigation:      30 * time.Second,
			Login:           30 * time.Second,
			LoginMethod:     10 * time.Second,
			ChallengeWindow: 20 * time.Second,
			Follow:          20 * time.Second,
			Like:            20 * time.Second,
			Script:          10 * time.Second,
			Click:           10 * time.Second,
			PostAction:      2 * time.Second,
			VideoRender:     5 * time.Second,
		},
		Pagination: PaginationConfig{
			InitialRender: 5 * time.Second,
			Settle:        2 * time.Second,
			MaxScrolls:    5,
			StableRounds:  1,
		},
		Schedule: ScheduleConfig{
			Timezone:   "Local",
			RunTimeout: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate rejects configurations a run cannot work with
func (c *Config) Validate() error {
	var errs []error
	if c.Platform.BaseURL == "" {
		errs = append(errs, errors.New("platform.base_url is empty"))
	}
	switch c.Browser.Engine {
	case EngineChromedp, EngineRod:
	default:
		errs = append(errs, fmt.Errorf("browser.engine %q is not one of %s, %s", c.Browser.Engine, EngineChromedp, EngineRod))
	}
	if c.Pagination.MaxScrolls <= 0 {
		errs = append(errs, errors.New("pagination.max_scrolls must be positive"))
	}
	if c.Pagination.StableRounds <= 0 {
		errs = append(errs, errors.New("pagination.stable_rounds must be positive"))
	}
	durations := map[string]time.Duration{
		"timeouts.navigation":       c.Timeouts.Navigation,
		"timeouts.login":            c.Timeouts.Login,
		"timeouts.login_method":     c.Timeouts.LoginMethod,
		"timeouts.challenge_window": c.Timeouts.ChallengeWindow,
		"timeouts.follow":           c.Timeouts.Follow,
		"timeouts.like":             c.Timeouts.Like,
		"timeouts.script":           c.Timeouts.Script,
		"timeouts.click":            c.Timeouts.Click,
		"timeouts.post_action":      c.Timeouts.PostAction,
		"timeouts.video_render":     c.Timeouts.VideoRender,
		"pagination.initial_render": c.Pagination.InitialRender,
		"pagination.settle":         c.Pagination.Settle,
		"schedule.run_timeout":      c.Schedule.RunTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	// These bound driver calls; zero would leave them waiting forever
	bounds := map[string]time.Duration{
		"timeouts.navigation": c.Timeouts.Navigation,
		"timeouts.login":      c.Timeouts.Login,
		"timeouts.follow":     c.Timeouts.Follow,
		"timeouts.like":       c.Timeouts.Like,
		"timeouts.script":     c.Timeouts.Script,
		"timeouts.click":      c.Timeouts.Click,
	}
	for name, d := range bounds {
		if d == 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tikfollow"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from path, or from ConfigPath when path is empty.
// A missing file yields the defaults. TIKFOLLOW_* environment variables
// override whatever the file says.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to path, or to ConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
