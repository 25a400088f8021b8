package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"partnerpipeline/internal/models"
)

const (
	DefaultPath     = "config/config.yaml"
	DefaultPort     = 8080
	DefaultLogLevel = "info"
	DefaultCurrency = "USD"
)

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
}

type CommissionConfig struct {
	// Rates overrides the flat percent per deal type.
	Rates map[models.DealType]float64 `yaml:"rates" validate:"dive,gte=0,lte=100"`
	// Agreements are the partner agreement rules keyed by partner id.
	Agreements map[string]models.CommissionRule `yaml:"agreements" validate:"dive"`
}

type PipelineConfig struct {
	Benchmarks map[models.StageID]models.StageBenchmark `yaml:"benchmarks"`
	// Currency is the single ISO code every opportunity and forecast uses.
	Currency string `yaml:"currency" validate:"len=3,uppercase"`
}

type BoardConfig struct {
	AllowedOrigins      []string `yaml:"allowed_origins"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds" validate:"gte=1"`
}

type ReportConfig struct {
	Title   string `yaml:"title"`
	Company string `yaml:"company"`
	// FontPath is an optional UTF-8 TTF; Helvetica is used when it is absent.
	FontPath string `yaml:"font_path"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port" validate:"gte=1,lte=65535"`
	} `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Commission CommissionConfig `yaml:"commission"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Board      BoardConfig      `yaml:"board"`
	Report     ReportConfig     `yaml:"report"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = DefaultPort
	cfg.Log.Level = DefaultLogLevel
	cfg.Pipeline.Currency = DefaultCurrency
	cfg.Board.WriteTimeoutSeconds = 10
	cfg.Report.Title = "Partner Pipeline Forecast"
	cfg.Report.Company = "Partner Network"
	return cfg
}

// Load reads .env, then the YAML file named by PIPELINE_CONFIG (or
// config/config.yaml), then PIPELINE_* overrides. A missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	path := os.Getenv("PIPELINE_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PIPELINE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PIPELINE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PIPELINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PIPELINE_CURRENCY"); v != "" {
		cfg.Pipeline.Currency = v
	}
	if v := os.Getenv("PIPELINE_REPORT_TITLE"); v != "" {
		cfg.Report.Title = v
	}
	if v := os.Getenv("PIPELINE_REPORT_COMPANY"); v != "" {
		cfg.Report.Company = v
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
