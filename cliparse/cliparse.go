// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielhkuo/panelsurvey/phone"
)

const (
	DefaultPort             = 3318
	DefaultStepSize         = 3
	DefaultAutosaveDebounce = 1800 * time.Millisecond
	DefaultConfirmPhrase    = "saya setuju"
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultRegisterRate     = 2.0
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Admin access
	AdminSessionSecret string
	AdminPasswordHash  string
	ConfirmPhrase      string

	// Questionnaire and respondent flow
	QuestionnaireFile string
	StepSize          int
	AutosaveDebounce  time.Duration
	Phone             phone.Policy
	RegisterRate      float64

	// AI summary; disabled when OpenAIKey is empty
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

// ParseFlags validates flags and fills the rest from the environment. CLI
// flags take precedence.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var debounce string

	fs := flag.NewFlagSet("panelsurvey", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminSessionSecret, "session-secret", "", "Admin session signing secret (prefer env)")
	fs.StringVar(&cfg.AdminPasswordHash, "admin-hash", "", "bcrypt hash of the admin password (prefer env)")

	fs.StringVar(&cfg.QuestionnaireFile, "q", "", "Questionnaire YAML file to seed at startup")
	fs.IntVar(&cfg.StepSize, "step-size", 0, "Questions per step")
	fs.StringVar(&debounce, "debounce", "", "Autosave quiet period (e.g. 1800ms)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", DefaultPort)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envString("DATABASE_TYPE", "sqlite")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.AdminSessionSecret == "" {
		cfg.AdminSessionSecret = os.Getenv("ADMIN_SESSION_SECRET")
	}
	if cfg.AdminSessionSecret == "" {
		return Config{}, errors.New("ADMIN_SESSION_SECRET required")
	}
	if cfg.AdminPasswordHash == "" {
		cfg.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	}
	cfg.ConfirmPhrase = envString("CONFIRM_PHRASE", DefaultConfirmPhrase)

	if cfg.QuestionnaireFile == "" {
		cfg.QuestionnaireFile = os.Getenv("QUESTIONNAIRE_FILE")
	}

	if cfg.StepSize == 0 {
		size, err := envInt("STEP_SIZE", DefaultStepSize)
		if err != nil {
			return Config{}, err
		}
		cfg.StepSize = size
	}
	if cfg.StepSize < 1 {
		return Config{}, errors.New("step size must be at least 1")
	}

	if debounce == "" {
		debounce = os.Getenv("AUTOSAVE_DEBOUNCE")
	}
	cfg.AutosaveDebounce = DefaultAutosaveDebounce
	if debounce != "" {
		d, err := time.ParseDuration(debounce)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid autosave debounce %q", debounce)
		}
		cfg.AutosaveDebounce = d
	}

	policy, err := phonePolicy()
	if err != nil {
		return Config{}, err
	}
	cfg.Phone = policy

	cfg.RegisterRate = DefaultRegisterRate
	if v := os.Getenv("REGISTER_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return Config{}, errors.New("invalid REGISTER_RATE env variable")
		}
		cfg.RegisterRate = rate
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = envString("OPENAI_MODEL", DefaultOpenAIModel)
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	return cfg, nil
}

func phonePolicy() (phone.Policy, error) {
	p := phone.DefaultPolicy()
	p.CountryCode = envString("PHONE_COUNTRY_CODE", p.CountryCode)

	var err error
	if p.MinDigits, err = envInt("PHONE_MIN_DIGITS", p.MinDigits); err != nil {
		return phone.Policy{}, err
	}
	if p.MaxDigits, err = envInt("PHONE_MAX_DIGITS", p.MaxDigits); err != nil {
		return phone.Policy{}, err
	}
	if p.MinDigits < 1 || p.MaxDigits < p.MinDigits {
		return phone.Policy{}, errors.New("invalid phone digit bounds")
	}
	return p, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}
