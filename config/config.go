package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	SpreadsheetID     string `yaml:"spreadsheet_id"`
	SheetName         string `yaml:"sheet_name"`
	SheetFile         string `yaml:"sheet_file"`
	GoogleAPIKey      string `yaml:"google_api_key"`
	DocumentID        string `yaml:"document_id"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	DiscordToken      string `yaml:"discord_token"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	OpenAIModel       string `yaml:"openai_model"`
	SourceLang        string `yaml:"source_lang"`
	TargetLang        string `yaml:"target_lang"`
	PollIntervalSecs  int    `yaml:"poll_interval_secs"`
	FetchTimeoutSecs  int    `yaml:"fetch_timeout_secs"`
	FetchExcerpts     bool   `yaml:"fetch_excerpts"`
	ExportPath        string `yaml:"export_path"`
	ExportTime        string `yaml:"export_time"`
	Timezone          string `yaml:"timezone"`
	DBPath            string `yaml:"db_path"`
	HTTPAddr          string `yaml:"http_addr"`
	LogLevel          string `yaml:"log_level"`
}

// exportTimeRegex validates HH:MM format with proper ranges.
var exportTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("EVIDENCE_BOT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.SheetName == "" {
		cfg.SheetName = "Responses"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.SourceLang == "" {
		cfg.SourceLang = "ja"
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "en"
	}
	if cfg.PollIntervalSecs == 0 {
		cfg.PollIntervalSecs = 60
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = "./structured_data.json"
	}
	if cfg.ExportTime == "" {
		cfg.ExportTime = "03:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./evidence.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	overrides := map[string]*string{
		"SPREADSHEET_ID":      &cfg.SpreadsheetID,
		"GOOGLE_API_KEY":      &cfg.GoogleAPIKey,
		"DOCUMENT_ID":         &cfg.DocumentID,
		"DISCORD_WEBHOOK_URL": &cfg.DiscordWebhookURL,
		"DISCORD_TOKEN":       &cfg.DiscordToken,
		"OPENAI_API_KEY":      &cfg.OpenAIAPIKey,
		"EVIDENCE_BOT_DB":     &cfg.DBPath,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func validate(cfg *Config) error {
	if cfg.SpreadsheetID == "" && cfg.SheetFile == "" {
		return fmt.Errorf("spreadsheet_id or sheet_file is required")
	}
	if cfg.SpreadsheetID != "" && cfg.GoogleAPIKey == "" {
		return fmt.Errorf("google_api_key is required when spreadsheet_id is set")
	}
	if !exportTimeRegex.MatchString(cfg.ExportTime) {
		return fmt.Errorf("export_time must be in HH:MM format (00:00-23:59), got %q", cfg.ExportTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.PollIntervalSecs < 1 {
		return fmt.Errorf("poll_interval_secs must be positive, got %d", cfg.PollIntervalSecs)
	}
	return nil
}
