package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"batcharchive/internal/model"
)

// Run modes.
const (
	ModeManual    = "manual"
	ModeAutomatic = "automatic"
)

// Passphrase length bounds, inclusive. Enforced once per run before any unit
// is processed.
const (
	MinPassphraseLen = 8
	MaxPassphraseLen = 56
)

// Configuration errors. All of them abort the run before any directory is
// touched.
var (
	ErrRootRequired     = errors.New("batch-files root path is required")
	ErrNoSuppliers      = errors.New("supplier allow-list is empty")
	ErrUnknownMode      = errors.New("mode must be manual or automatic")
	ErrCutoffRequired   = errors.New("manual mode requires a cutoff date")
	ErrCutoffNotPast    = errors.New("cutoff date must be before today")
	ErrModeConflict     = errors.New("automatic mode does not accept explicit cutoff or earliest dates")
	ErrPassphraseLength = fmt.Errorf("passphrase must be %d to %d characters", MinPassphraseLen, MaxPassphraseLen)
	ErrDeleteNoUpload   = errors.New("delete-after-upload requires uploading to be enabled")
)

// DatabaseConfig holds PostgreSQL connection settings for the optional
// database-backed run-boundary store. Leaving Host empty keeps the default
// file-backed store.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database boundary store was configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for MinIO/S3.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ArchiveConfig holds the per-run archival options. Root, mode and dates come
// from the command line; passphrase and suppliers may also come from the
// environment.
type ArchiveConfig struct {
	RootPath  string
	Suppliers []string

	Mode         string
	CutoffDate   string // YYYY-MM-DD, manual mode only
	EarliestDate string // YYYY-MM-DD, manual mode only, optional

	Passphrase        string // non-empty enables encryption
	UploadEnabled     bool
	DeleteAfterUpload bool
}

// EncryptionEnabled reports whether artifacts are to be encrypted.
func (c *ArchiveConfig) EncryptionEnabled() bool { return c.Passphrase != "" }

// Validate checks every run-level precondition against today's date.
// It does not touch the filesystem.
func (c *ArchiveConfig) Validate(today model.BatchDate) error {
	if c.RootPath == "" {
		return ErrRootRequired
	}
	if len(c.Suppliers) == 0 {
		return ErrNoSuppliers
	}

	switch c.Mode {
	case ModeManual:
		if c.CutoffDate == "" {
			return ErrCutoffRequired
		}
		cutoff, err := model.ParseBatchDate(c.CutoffDate)
		if err != nil {
			return err
		}
		if !cutoff.Before(today) {
			return fmt.Errorf("%w: got %s", ErrCutoffNotPast, cutoff)
		}
		if c.EarliestDate != "" {
			if _, err := model.ParseBatchDate(c.EarliestDate); err != nil {
				return err
			}
		}
	case ModeAutomatic:
		if c.CutoffDate != "" || c.EarliestDate != "" {
			return ErrModeConflict
		}
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownMode, c.Mode)
	}

	if c.Passphrase != "" {
		if n := len(c.Passphrase); n < MinPassphraseLen || n > MaxPassphraseLen {
			return fmt.Errorf("%w: got %d", ErrPassphraseLength, len(c.Passphrase))
		}
	}

	if c.DeleteAfterUpload && !c.UploadEnabled {
		return ErrDeleteNoUpload
	}

	return nil
}

// AppConfig is the centralized environment-driven configuration.
type AppConfig struct {
	Database DatabaseConfig
	MinIO    MinIOConfig

	// MetricsPushURL, when set, is a Prometheus Pushgateway to push run
	// metrics to at the end of a run.
	MetricsPushURL string

	// Defaults for ArchiveConfig that can come from the environment.
	Passphrase string
	Suppliers  []string
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the .env file.
func Load() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		MetricsPushURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		Passphrase:     getEnv("ARCHIVER_PASSPHRASE", ""),
		Suppliers:      getEnvList("ARCHIVER_SUPPLIERS", nil),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
