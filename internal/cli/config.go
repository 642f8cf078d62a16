package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/roster"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/default.yaml"

// Config represents the complete system configuration structure
// Maps config file fields through YAML tags
type Config struct {
	Anchor struct {
		Date   string `yaml:"date"`
		Person string `yaml:"person"`
	} `yaml:"anchor"`

	Roster   []string `yaml:"roster"`
	DataDir  string   `yaml:"data_dir"`
	Language string   `yaml:"language"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Announce struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"announce"`
}

// DefaultConfig 內建預設值，配置檔缺少的欄位沿用這些值
func DefaultConfig() *Config {
	cfg := &Config{
		Roster:   []string{"Pavel", "Guilherme", "Victor", "Chris", "Alan", "Thiago", "Clayton", "Carolina"},
		DataDir:  "./data",
		Language: "pt-BR",
	}
	cfg.Anchor.Date = "2025-10-09"
	cfg.Anchor.Person = "Pavel"
	cfg.Log.Level = "info"
	cfg.Server.Port = 50061
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9091
	cfg.Announce.Enabled = true
	cfg.Announce.Cron = "0 11 * * 1-5"
	return cfg
}

// loadConfig 讀取 YAML 配置；預設路徑的檔案不存在時直接使用內建預設值
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && path == defaultConfigPath:
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 檢查錨點、名單與語系
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.AnchorValue(); err != nil {
		errs = append(errs, err)
	}
	if err := roster.Validate(c.Roster); err != nil {
		errs = append(errs, fmt.Errorf("roster: %w", err))
	}
	if _, err := language.Parse(c.Language); err != nil {
		errs = append(errs, fmt.Errorf("language %q: %w", c.Language, err))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	return errors.Join(errs...)
}

// AnchorValue 解析錨點日期（推到工作日）
func (c *Config) AnchorValue() (types.Anchor, error) {
	date, err := calendar.ParseISO(c.Anchor.Date)
	if err != nil {
		return types.Anchor{}, fmt.Errorf("anchor: %w", err)
	}
	person := strings.TrimSpace(c.Anchor.Person)
	if person == "" {
		return types.Anchor{}, errors.New("anchor: person must not be empty")
	}
	return types.Anchor{Date: calendar.NextBusinessDay(date), Person: person}, nil
}

// LanguageTag 顯示語系，無法解析時為英文
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// LogLevel slog 等級：debug, info, warn, error
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
