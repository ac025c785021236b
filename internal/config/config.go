package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"
)

const (
	AppName           = "Radio CLI"
	AppTagline        = "Terminal world radio player"
	AppDescription    = "A terminal-based player for internet radio stations from Radio Browser and TuneIn"
	AppAuthor         = "Ilya Glebov"
	AppAuthorURL      = "https://ilyaglebov.dev"
	AppAuthorURLShort = "ilyaglebov.dev"
	AppProjectURL     = "https://github.com/glebovdev/radio-cli"
	AppProjectShort   = "github.com/glebovdev/radio-cli"

	ConfigDir      = ".config/radio-cli"
	ConfigFileName = "config.yml"
	DefaultVolume  = 80
	MinVolume      = 0
	MaxVolume      = 100

	DefaultCountry         = "Colombia"
	DefaultPrimaryBaseURL  = "https://de1.api.radio-browser.info/json"
	DefaultLegacyBaseURL   = "https://opml.radiotime.com"
	DefaultRequestTimeout  = 12 * time.Second
	EnvPrimaryDirectoryURL = "RADIO_PRIMARY_DIRECTORY_URL"
	EnvLegacyDirectoryURL  = "RADIO_LEGACY_DIRECTORY_URL"
)

// PresetCountries are offered as one-key shortcuts in the UI.
var PresetCountries = []string{"Colombia", "Peru", "Mexico", "Canada", "Spain"}

// ClampVolume ensures volume is within the valid range [0, 100].
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

// VolumeFraction converts a percentage into the [0, 1] range used by the player.
func VolumeFraction(volume int) float64 {
	return float64(ClampVolume(volume)) / float64(MaxVolume)
}

// AppVersion can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/glebovdev/radio-cli/internal/config.AppVersion=1.0.0"
var AppVersion = "dev"

type Theme struct {
	Background                  string `yaml:"background"`
	Foreground                  string `yaml:"foreground"`
	Borders                     string `yaml:"borders"`
	Highlight                   string `yaml:"highlight"`
	MutedVolume                 string `yaml:"muted_volume"`
	HeaderBackground            string `yaml:"header_background"`
	StationListHeaderBackground string `yaml:"station_list_header_background"`
	StationListHeaderForeground string `yaml:"station_list_header_foreground"`
	HelpBackground              string `yaml:"help_background"`
	HelpForeground              string `yaml:"help_foreground"`
	HelpHotkey                  string `yaml:"help_hotkey"`
	ModalBackground             string `yaml:"modal_background"`
}

// Directories holds the upstream station directory endpoints.
type Directories struct {
	PrimaryBaseURL string `yaml:"primary_base_url"`
	LegacyBaseURL  string `yaml:"legacy_base_url"`
}

type Config struct {
	Volume         int           `yaml:"volume"`
	LastStation    string        `yaml:"last_station"`
	LastCountry    string        `yaml:"last_country"`
	Autostart      bool          `yaml:"autostart"`
	Favorites      []string      `yaml:"favorites"`
	Directories    Directories   `yaml:"directories"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Theme          Theme         `yaml:"theme"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ConfigDir, ConfigFileName)
	return configPath, nil
}

// Load reads the config file, falling back to defaults, then applies
// environment overrides for the directory endpoints.
func Load() (*Config, error) {
	cfg, err := loadFile()
	cfg.applyEnv()
	return cfg, err
}

func loadFile() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Volume = ClampVolume(cfg.Volume)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if strings.TrimSpace(cfg.Directories.PrimaryBaseURL) == "" {
		cfg.Directories.PrimaryBaseURL = DefaultPrimaryBaseURL
	}
	if strings.TrimSpace(cfg.Directories.LegacyBaseURL) == "" {
		cfg.Directories.LegacyBaseURL = DefaultLegacyBaseURL
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvPrimaryDirectoryURL)); v != "" {
		c.Directories.PrimaryBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLegacyDirectoryURL)); v != "" {
		c.Directories.LegacyBaseURL = v
	}
}

// Save writes the configuration to disk atomically using temp file + rename.
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpFile, err := os.CreateTemp(configDir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	tmpPath = "" // Prevent defer from removing the final file
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Volume:      DefaultVolume,
		LastStation: "",
		LastCountry: DefaultCountry,
		Autostart:   false,
		Favorites:   []string{},
		Directories: Directories{
			PrimaryBaseURL: DefaultPrimaryBaseURL,
			LegacyBaseURL:  DefaultLegacyBaseURL,
		},
		RequestTimeout: DefaultRequestTimeout,
		Theme: Theme{
			Background:                  "#1a1b25",
			Foreground:                  "#a3aacb",
			Borders:                     "#40445b",
			Highlight:                   "#ff9d65",
			MutedVolume:                 "#fe0702",
			HeaderBackground:            "#473533",
			StationListHeaderBackground: "#3a3d4f",
			StationListHeaderForeground: "#c8d0e8",
			HelpBackground:              "#322f45",
			HelpForeground:              "#9aa3c6",
			HelpHotkey:                  "#ff9d65",
			ModalBackground:             "#282a36",
		},
	}
}

// IsFavorite reports whether the station key is a favorite.
func (c *Config) IsFavorite(stationKey string) bool {
	for _, key := range c.Favorites {
		if key == stationKey {
			return true
		}
	}
	return false
}

func (c *Config) ToggleFavorite(stationKey string) {
	for i, key := range c.Favorites {
		if key == stationKey {
			c.Favorites = append(c.Favorites[:i], c.Favorites[i+1:]...)
			return
		}
	}
	c.Favorites = append(c.Favorites, stationKey)
}

func GetColor(colorStr string) tcell.Color {
	if colorStr == "" || colorStr == "default" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(colorStr)
}
