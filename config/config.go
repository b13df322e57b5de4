package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb"`
}

// OCRConfig holds OCR engine configuration
type OCRConfig struct {
	Engine        string          `mapstructure:"engine"` // "tesseract", "azure" or "none"
	Timeout       time.Duration   `mapstructure:"timeout"`
	RatePerSecond float64         `mapstructure:"rate_per_second"`
	Burst         int             `mapstructure:"burst"`
	Tesseract     TesseractConfig `mapstructure:"tesseract"`
	Azure         AzureConfig     `mapstructure:"azure"`
}

// TesseractConfig holds settings for the local tesseract binary
type TesseractConfig struct {
	Binary      string `mapstructure:"binary"`
	Lang        string `mapstructure:"lang"`
	PSM         int    `mapstructure:"psm"`
	TessdataDir string `mapstructure:"tessdata_dir"`
}

// AzureConfig holds Azure Computer Vision configuration
type AzureConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// ExtractionConfig holds the field extractor's scan windows
type ExtractionConfig struct {
	MerchantLines int `mapstructure:"merchant_lines"`
	HeaderLines   int `mapstructure:"header_lines"`
	FooterLines   int `mapstructure:"footer_lines"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "bolt" or "none"
	BoltPath string        `mapstructure:"bolt_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute; 0 disables
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/receiptsense/")

	// Environment variable settings: RECEIPTSENSE_OCR_AZURE_API_KEY -> ocr.azure.api_key
	v.SetEnvPrefix("RECEIPTSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already present in the environment are left untouched.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:5173"})
	v.SetDefault("server.max_upload_mb", 10)

	// OCR defaults
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.timeout", "60s")
	v.SetDefault("ocr.rate_per_second", 2.0)
	v.SetDefault("ocr.burst", 4)
	v.SetDefault("ocr.tesseract.binary", "tesseract")
	v.SetDefault("ocr.tesseract.lang", "eng")
	v.SetDefault("ocr.tesseract.psm", 0)
	v.SetDefault("ocr.tesseract.tessdata_dir", "")
	v.SetDefault("ocr.azure.endpoint", "")
	v.SetDefault("ocr.azure.api_key", "")

	// Extraction defaults
	v.SetDefault("extraction.merchant_lines", 3)
	v.SetDefault("extraction.header_lines", 3)
	v.SetDefault("extraction.footer_lines", 3)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.bolt_path", "receiptsense.db")
	v.SetDefault("cache.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.OCR.Engine {
	case "tesseract", "none":
	case "azure":
		if config.OCR.Azure.Endpoint == "" || config.OCR.Azure.APIKey == "" {
			return fmt.Errorf("Azure endpoint and API key are required when OCR engine is 'azure' (set RECEIPTSENSE_OCR_AZURE_ENDPOINT and RECEIPTSENSE_OCR_AZURE_API_KEY)")
		}
	default:
		return fmt.Errorf("OCR engine must be 'tesseract', 'azure' or 'none', got: %s", config.OCR.Engine)
	}

	switch config.Cache.Type {
	case "memory", "none":
	case "bolt":
		if config.Cache.BoltPath == "" {
			return fmt.Errorf("bolt path is required when cache type is 'bolt'")
		}
	default:
		return fmt.Errorf("cache type must be 'memory', 'bolt' or 'none', got: %s", config.Cache.Type)
	}

	if config.Extraction.MerchantLines <= 0 || config.Extraction.HeaderLines <= 0 || config.Extraction.FooterLines <= 0 {
		return fmt.Errorf("extraction windows must be positive, got merchant=%d header=%d footer=%d",
			config.Extraction.MerchantLines, config.Extraction.HeaderLines, config.Extraction.FooterLines)
	}

	if config.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got: %d", config.Server.MaxUploadMB)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("per-IP rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
