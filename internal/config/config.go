package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName            = "musicbox"
	EnvPrefix          = "MUSICBOX"
	DefaultCatalogURL  = "https://a.buguyy.top/newapi"
	DefaultUserAgent   = "QtMusicPlayer/1.0"
	DefaultVolume      = 50
	DefaultPollPeriod  = 500 * time.Millisecond
	DefaultTolerance   = 250 * time.Millisecond
	DefaultScrollTime  = 400 * time.Millisecond
	DefaultHTTPTimeout = 10 * time.Second
	DefaultCacheTTL    = 30 * 24 * time.Hour
)

type PlayerConfig struct {
	MPVPath           string
	Socket            string
	Volume            int
	Mode              string
	PollInterval      time.Duration
	PositionTolerance time.Duration
}

type CatalogConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

type LyricsConfig struct {
	LinePitch      int
	ScrollDuration time.Duration
	SyncOffset     time.Duration
}

type CacheConfig struct {
	Dir           string
	TTL           time.Duration
	Disabled      bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type FavoritesConfig struct {
	Path string
}

type LogConfig struct {
	Level string
	File  string
}

type MPRISConfig struct {
	Enabled bool
}

type Config struct {
	Player    PlayerConfig
	Catalog   CatalogConfig
	Lyrics    LyricsConfig
	Cache     CacheConfig
	Favorites FavoritesConfig
	Log       LogConfig
	MPRIS     MPRISConfig
}

// tomlConfig mirrors Config as it is written on disk. durations are strings.
type tomlConfig struct {
	Player struct {
		MPVPath           string `toml:"mpv_path"`
		Socket            string `toml:"socket"`
		Volume            *int   `toml:"volume"`
		Mode              string `toml:"mode"`
		PollInterval      string `toml:"poll_interval"`
		PositionTolerance string `toml:"position_tolerance"`
	} `toml:"player"`

	Catalog struct {
		BaseURL       string  `toml:"base_url"`
		UserAgent     string  `toml:"user_agent"`
		Timeout       string  `toml:"timeout"`
		RatePerSecond float64 `toml:"rate_per_second"`
		Burst         int     `toml:"burst"`
	} `toml:"catalog"`

	Lyrics struct {
		LinePitch      int    `toml:"line_pitch"`
		ScrollDuration string `toml:"scroll_duration"`
		SyncOffset     string `toml:"sync_offset"`
	} `toml:"lyrics"`

	Cache struct {
		Dir      string `toml:"dir"`
		TTL      string `toml:"ttl"`
		Disabled bool   `toml:"disabled"`
	} `toml:"cache"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Favorites struct {
		Path string `toml:"path"`
	} `toml:"favorites"`

	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`

	MPRIS struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"mpris"`
}

func Default() *Config {
	cacheDir := CacheDir()
	return &Config{
		Player: PlayerConfig{
			MPVPath:           "mpv",
			Volume:            DefaultVolume,
			Mode:              "sequential",
			PollInterval:      DefaultPollPeriod,
			PositionTolerance: DefaultTolerance,
		},
		Catalog: CatalogConfig{
			BaseURL:       DefaultCatalogURL,
			UserAgent:     DefaultUserAgent,
			Timeout:       DefaultHTTPTimeout,
			RatePerSecond: 4,
			Burst:         4,
		},
		Lyrics: LyricsConfig{
			LinePitch:      2,
			ScrollDuration: DefaultScrollTime,
		},
		Cache: CacheConfig{
			Dir: filepath.Join(cacheDir, "lyrics"),
			TTL: DefaultCacheTTL,
		},
		Favorites: FavoritesConfig{
			Path: filepath.Join(DataDir(), "favorites.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(cacheDir, AppName+".log"),
		},
		MPRIS: MPRISConfig{Enabled: true},
	}
}

// Load builds the configuration from defaults, the TOML file at path (or the
// default location when path is empty), a .env file and MUSICBOX_* variables,
// in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	var file tomlConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return c.apply(&file)
}

func (c *Config) apply(f *tomlConfig) error {
	setString(&c.Player.MPVPath, f.Player.MPVPath)
	setString(&c.Player.Socket, f.Player.Socket)
	setString(&c.Player.Mode, f.Player.Mode)
	if f.Player.Volume != nil {
		c.Player.Volume = *f.Player.Volume
	}

	setString(&c.Catalog.BaseURL, f.Catalog.BaseURL)
	setString(&c.Catalog.UserAgent, f.Catalog.UserAgent)
	if f.Catalog.RatePerSecond > 0 {
		c.Catalog.RatePerSecond = f.Catalog.RatePerSecond
	}
	if f.Catalog.Burst > 0 {
		c.Catalog.Burst = f.Catalog.Burst
	}
	if f.Lyrics.LinePitch > 0 {
		c.Lyrics.LinePitch = f.Lyrics.LinePitch
	}

	setString(&c.Cache.Dir, f.Cache.Dir)
	c.Cache.Disabled = c.Cache.Disabled || f.Cache.Disabled
	setString(&c.Cache.RedisAddr, f.Redis.Addr)
	setString(&c.Cache.RedisPassword, f.Redis.Password)
	if f.Redis.DB != 0 {
		c.Cache.RedisDB = f.Redis.DB
	}

	setString(&c.Favorites.Path, f.Favorites.Path)
	setString(&c.Log.Level, f.Log.Level)
	setString(&c.Log.File, f.Log.File)
	if f.MPRIS.Enabled != nil {
		c.MPRIS.Enabled = *f.MPRIS.Enabled
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"player.poll_interval", f.Player.PollInterval, &c.Player.PollInterval},
		{"player.position_tolerance", f.Player.PositionTolerance, &c.Player.PositionTolerance},
		{"catalog.timeout", f.Catalog.Timeout, &c.Catalog.Timeout},
		{"lyrics.scroll_duration", f.Lyrics.ScrollDuration, &c.Lyrics.ScrollDuration},
		{"lyrics.sync_offset", f.Lyrics.SyncOffset, &c.Lyrics.SyncOffset},
		{"cache.ttl", f.Cache.TTL, &c.Cache.TTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		return fmt.Errorf("player volume %d out of range 0-100", c.Player.Volume)
	}
	if c.Player.PollInterval <= 0 {
		return errors.New("player poll interval must be positive")
	}
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog base url is empty")
	}
	if c.Catalog.RatePerSecond <= 0 || c.Catalog.Burst <= 0 {
		return errors.New("catalog rate limit must be positive")
	}
	if c.Lyrics.LinePitch <= 0 {
		return errors.New("lyrics line pitch must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// DefaultPath is $XDG_CONFIG_HOME/musicbox/config.toml.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", AppName, "config.toml")
}

func CacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(homeDir, ".cache", AppName)
}

func DataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, AppName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(homeDir, ".local", "share", AppName)
}
