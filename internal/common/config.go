package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Import   ImportConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP import service configuration
type ServerConfig struct {
	HTTPAddr       string
	APIKey         string
	MaxUploadBytes int64
	InboxDir       string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // "cli" (tesseract binary) or "api" (in-process)
	Tesseract     string
	Pdftoppm      string
	TesseractLang string
	TessdataDir   string
	DPI           int
	StripFraction float64
}

// ImportConfig holds cause-list parsing knobs
type ImportConfig struct {
	RemarksMaxDistance  int // pixels at 400 DPI
	CorrectionRulesFile string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"DB_URL":                "",
	"DB_MAX_CONNS":          10,
	"DB_MIN_CONNS":          1,
	"DB_MAX_CONN_LIFETIME":  30 * time.Minute,
	"DB_MAX_CONN_IDLE_TIME": 5 * time.Minute,
	"DB_DIAL_TIMEOUT":       3 * time.Second,
	"DB_STATEMENT_TIMEOUT":  time.Duration(0),
	"HTTP_ADDR":             ":8080",
	"IMPORT_API_KEY":        "",
	"MAX_UPLOAD_BYTES":      int64(50 << 20),
	"INBOX_DIR":             "",
	"OCR_ENGINE":            "cli",
	"TESSERACT_BIN":         "tesseract",
	"PDFTOPPM_BIN":          "pdftoppm",
	"OCR_LANG":              "eng",
	"TESSDATA_PREFIX":       "",
	"OCR_DPI":               400,
	"OCR_STRIP_FRACTION":    0.22,
	"REMARKS_MAX_DISTANCE":  60,
	"CORRECTION_RULES_FILE": "",
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
}

// LoadConfig loads configuration from an optional .env file and environment variables.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              v.GetString("DB_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime:  v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime:  v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			DialTimeout:      v.GetDuration("DB_DIAL_TIMEOUT"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		Server: ServerConfig{
			HTTPAddr:       v.GetString("HTTP_ADDR"),
			APIKey:         v.GetString("IMPORT_API_KEY"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			InboxDir:       v.GetString("INBOX_DIR"),
		},
		OCR: OCRConfig{
			Engine:        v.GetString("OCR_ENGINE"),
			Tesseract:     v.GetString("TESSERACT_BIN"),
			Pdftoppm:      v.GetString("PDFTOPPM_BIN"),
			TesseractLang: v.GetString("OCR_LANG"),
			TessdataDir:   v.GetString("TESSDATA_PREFIX"),
			DPI:           v.GetInt("OCR_DPI"),
			StripFraction: v.GetFloat64("OCR_STRIP_FRACTION"),
		},
		Import: ImportConfig{
			RemarksMaxDistance:  v.GetInt("REMARKS_MAX_DISTANCE"),
			CorrectionRulesFile: v.GetString("CORRECTION_RULES_FILE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate validates the loaded configuration. The database DSN is only required
// when the caller is not running against the in-memory store.
func (c *Config) Validate(requireDB bool) error {
	if requireDB && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.OCR.Engine != "cli" && c.OCR.Engine != "api" {
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be one of: cli | api", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.OCR.StripFraction <= 0 || c.OCR.StripFraction >= 1 {
		return NewAppError("CONFIG_ERROR", "OCR_STRIP_FRACTION must be between 0 and 1", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
