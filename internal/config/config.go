package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 8081
	DefaultServicesFile  = "services.yaml"
	DefaultReferenceYear = 2025
	DefaultSessionTTL    = 2 * time.Hour
	DefaultTimeZone      = "UTC"
	DefaultLogFolder     = "./logs"

	// Sweep Configuration Constants
	DefaultSweepSchedule    = "*/1 * * * *" // every minute
	DefaultLogMaxFileMB     = 20
	DefaultLogRetentionDays = 14
)

// Settings is the process configuration. services.yaml configures the
// individual services; these values are the process-wide defaults they
// fall back to.
type Settings struct {
	Port             int
	ServicesFile     string
	ReferenceYear    int
	SessionTTL       time.Duration
	SweepSchedule    string
	TimeZone         string
	LogFolder        string
	LogMaxFileMB     int
	LogRetentionDays int
	DevMode          bool
}

func Default() Settings {
	return Settings{
		Port:             DefaultPort,
		ServicesFile:     DefaultServicesFile,
		ReferenceYear:    DefaultReferenceYear,
		SessionTTL:       DefaultSessionTTL,
		SweepSchedule:    DefaultSweepSchedule,
		TimeZone:         DefaultTimeZone,
		LogFolder:        DefaultLogFolder,
		LogMaxFileMB:     DefaultLogMaxFileMB,
		LogRetentionDays: DefaultLogRetentionDays,
	}
}

// Load reads envFiles (missing files are ignored, as on hosts that inject the
// environment directly) and then the RM_* variables over Default().
func Load(envFiles ...string) (Settings, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv applies variables from lookup over Default().
func FromEnv(lookup func(string) (string, bool)) (Settings, error) {
	s := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if err := num("RM_PORT", &s.Port); err != nil {
		return s, err
	}
	if err := num("RM_REFERENCE_YEAR", &s.ReferenceYear); err != nil {
		return s, err
	}
	if err := num("RM_LOG_MAX_MB", &s.LogMaxFileMB); err != nil {
		return s, err
	}
	if err := num("RM_LOG_RETENTION_DAYS", &s.LogRetentionDays); err != nil {
		return s, err
	}
	if v, ok := lookup("RM_SESSION_TTL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return s, fmt.Errorf("RM_SESSION_TTL: %w", err)
		}
		s.SessionTTL = d
	}
	if v, ok := lookup("RM_DEV"); ok && strings.TrimSpace(v) != "" {
		dev, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return s, fmt.Errorf("RM_DEV: %w", err)
		}
		s.DevMode = dev
	}
	str("RM_SWEEP_SCHEDULE", &s.SweepSchedule)
	str("RM_TIMEZONE", &s.TimeZone)
	str("RM_LOG_DIR", &s.LogFolder)
	str("RM_SERVICES_FILE", &s.ServicesFile)

	if s.Port <= 0 || s.Port > 65535 {
		return s, fmt.Errorf("RM_PORT: %d is not a valid port", s.Port)
	}
	if s.SessionTTL <= 0 {
		return s, fmt.Errorf("RM_SESSION_TTL: must be positive")
	}
	return s, nil
}

// Location resolves TimeZone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
