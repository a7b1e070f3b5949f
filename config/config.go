package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	// Scheduling core
	PracticeTimezone    string
	VacationDaysPerYear int
	SlotStepMinutes     int
	MaxSuggestionDays   int
	// Other
	AllowedOrigins []string
	AppURL         string
}

// CoreConfig is the scheduling configuration passed into each top-level
// operation. No service reads ambient/global state.
type CoreConfig struct {
	Location            *time.Location
	SlotStepMinutes     int
	MaxSuggestionDays   int
	VacationDaysPerYear int
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "db/app.db"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		PracticeTimezone:    getEnv("PRACTICE_TIMEZONE", "Europe/Berlin"),
		VacationDaysPerYear: getEnvInt("VACATION_DAYS_PER_YEAR", 30),
		SlotStepMinutes:     getEnvInt("SLOT_STEP_MINUTES", 5),
		MaxSuggestionDays:   getEnvInt("MAX_SUGGESTION_SCAN_DAYS", 366),
		AllowedOrigins:      strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:              getEnv("APP_URL", "http://localhost:8080"),
	}
}

// Core resolves the scheduling configuration. An unknown timezone falls
// back to UTC rather than failing startup.
func (c *Config) Core() CoreConfig {
	loc, err := time.LoadLocation(c.PracticeTimezone)
	if err != nil {
		log.Printf("[WARNING] Unknown practice timezone %q, falling back to UTC", c.PracticeTimezone)
		loc = time.UTC
	}
	return CoreConfig{
		Location:            loc,
		SlotStepMinutes:     c.SlotStepMinutes,
		MaxSuggestionDays:   c.MaxSuggestionDays,
		VacationDaysPerYear: c.VacationDaysPerYear,
	}
}

// DefaultCore returns a CoreConfig with the built-in defaults, used by tests
func DefaultCore() CoreConfig {
	return CoreConfig{
		Location:            time.UTC,
		SlotStepMinutes:     5,
		MaxSuggestionDays:   366,
		VacationDaysPerYear: 30,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		log.Printf("[WARNING] Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
