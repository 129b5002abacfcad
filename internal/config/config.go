package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ledger-gateway/internal/ledger"
)

// Config is the process configuration, read from the environment with an
// optional .env file for local development.
type Config struct {
	Ledger ledger.Config

	// DatabaseURL is the optional Postgres connection string for company
	// profiles. Empty disables the profile store.
	DatabaseURL string

	OpenAIKey string

	Addr           string
	AllowedOrigins string

	// APIKey is the optional shared key callers must present in X-API-Key.
	// Empty disables the check.
	APIKey string

	// MatchingRulesPath optionally overrides the compiled-in account matching
	// rule tables with a YAML file.
	MatchingRulesPath string
}

// Load reads configuration from the environment. LEDGER_URL, LEDGER_DB,
// LEDGER_USER, and LEDGER_API_KEY are required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Ledger: ledger.Config{
			URL:      os.Getenv("LEDGER_URL"),
			Database: os.Getenv("LEDGER_DB"),
			Username: os.Getenv("LEDGER_USER"),
			APIKey:   os.Getenv("LEDGER_API_KEY"),
		},
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		Addr:              os.Getenv("LISTEN_ADDR"),
		AllowedOrigins:    os.Getenv("ALLOWED_ORIGINS"),
		APIKey:            os.Getenv("API_KEY"),
		MatchingRulesPath: os.Getenv("MATCHING_RULES_PATH"),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	switch {
	case cfg.Ledger.URL == "":
		return nil, fmt.Errorf("LEDGER_URL environment variable not set")
	case cfg.Ledger.Database == "":
		return nil, fmt.Errorf("LEDGER_DB environment variable not set")
	case cfg.Ledger.Username == "":
		return nil, fmt.Errorf("LEDGER_USER environment variable not set")
	case cfg.Ledger.APIKey == "":
		return nil, fmt.Errorf("LEDGER_API_KEY environment variable not set")
	}
	return cfg, nil
}
