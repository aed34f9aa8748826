package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openAIBaseURL     = "https://api.openai.com/v1"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Log      LogConfig

	// CategoryRulesFile optionally replaces the built-in category table.
	CategoryRulesFile string
}

// DatabaseConfig holds database-related configuration.
// DSN selects Postgres; SQLitePath is used when DSN is empty.
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr        string
	HTTPAddr        string
	UploadDir       string
	Workers         int
	QueueSize       int
	ProcessTimeout  time.Duration
	ReviewThreshold float64
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // "tesseract" | "azure"
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	AzureEndpoint string
	AzureKey      string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// env resolves keys from the process environment first, then from the
// optional TOML config file.
type env struct {
	file map[string]string
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is loaded first when present, and GST_CONFIG_FILE may
// point at a TOML file supplying values the environment leaves unset.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, Configurationf("load .env: %v", err)
	}
	e := env{}
	if path := os.Getenv("GST_CONFIG_FILE"); path != "" {
		m, err := loadTOML(path)
		if err != nil {
			return nil, err
		}
		e.file = m
	}
	return e.load(), nil
}

func (e env) load() *Config {
	apiKey, baseURL, model := e.llmCredentials()
	return &Config{
		Database: DatabaseConfig{
			DSN:              e.getEnv("DB_URL", ""),
			SQLitePath:       e.getEnv("SQLITE_PATH", "./data/invoices.db"),
			MaxConns:         e.getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         e.getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  e.getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  e.getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      e.getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: e.getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:        e.getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:        e.getEnv("HTTP_ADDR", ":8081"),
			UploadDir:       e.getEnv("UPLOAD_DIR", "./data/uploads"),
			Workers:         e.getEnvAsInt("WORKERS", 4),
			QueueSize:       e.getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout:  e.getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
			ReviewThreshold: e.getEnvAsFloat64("REVIEW_CONFIDENCE_THRESHOLD", 0.5),
		},
		OCR: OCRConfig{
			Engine:        strings.ToLower(e.getEnv("OCR_ENGINE", "tesseract")),
			Pdftoppm:      e.getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     e.getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: e.getEnv("TESSERACT_LANG", "eng+hin"),
			TessdataDir:   e.getEnv("TESSDATA_PREFIX", ""),
			DPI:           e.getEnvAsInt("OCR_DPI", 144),
			AzureEndpoint: e.getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:      e.getEnv("AZURE_VISION_KEY", ""),
		},
		LLM: LLMConfig{
			BaseURL:     baseURL,
			Model:       model,
			APIKey:      apiKey,
			Temperature: e.getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:     e.getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts: e.getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			BaseDelay:   e.getEnvAsDuration("LLM_RETRY_BASE_DELAY", 2*time.Second),
			MaxDelay:    e.getEnvAsDuration("LLM_RETRY_MAX_DELAY", 10*time.Second),
		},
		Log: LogConfig{
			Level:  strings.ToLower(e.getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(e.getEnv("LOG_FORMAT", "text")),
		},
		CategoryRulesFile: e.getEnv("CATEGORY_RULES_FILE", ""),
	}
}

// llmCredentials prefers an OpenRouter key over an OpenAI key; the base URL
// and model default to match whichever provider the key belongs to.
func (e env) llmCredentials() (key, baseURL, model string) {
	if key = e.getEnv("OPENROUTER_API_KEY", ""); key != "" {
		baseURL, model = openRouterBaseURL, e.getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini")
	} else {
		key = e.getEnv("OPENAI_API_KEY", "")
		baseURL, model = openAIBaseURL, e.getEnv("OPENAI_MODEL", "gpt-4o-mini")
	}
	return key, e.getEnv("LLM_BASE_URL", baseURL), e.getEnv("LLM_MODEL", model)
}

// loadTOML flattens a TOML document into env-style keys:
// [db] url = "..." becomes DB_URL.
func loadTOML(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Configurationf("read config file %q: %v", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, Configurationf("parse config file %q: %v", path, err)
	}
	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, v := range m {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// Helper functions for environment variable parsing
func (e env) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := e.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (e env) getEnvAsInt(key string, defaultValue int) int {
	if value := e.getEnv(key, ""); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (e env) getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := e.getEnv(key, ""); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func (e env) getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := e.getEnv(key, ""); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func (e env) getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := e.getEnv(key, ""); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func (e env) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := e.getEnv(key, ""); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every binary needs. Storage and transport
// settings are validated by the daemon itself.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return Configurationf("OPENROUTER_API_KEY or OPENAI_API_KEY is required")
	}
	if c.LLM.Model == "" {
		return Configurationf("LLM_MODEL is required")
	}
	switch c.OCR.Engine {
	case "tesseract":
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return Configurationf("AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for OCR_ENGINE=azure")
		}
	default:
		return Configurationf("unknown OCR_ENGINE %q", c.OCR.Engine)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return Configurationf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}
