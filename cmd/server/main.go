package main

import (
	"context"
	"log"
	"net/http"

	webAdapter "ledger-gateway/internal/adapters/web"
	"ledger-gateway/internal/ai"
	"ledger-gateway/internal/app"
	"ledger-gateway/internal/config"
	"ledger-gateway/internal/core"
	"ledger-gateway/internal/ledger"
	"ledger-gateway/internal/profile"
	"ledger-gateway/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	rpc := ledger.NewClient(cfg.Ledger)

	rules := core.DefaultMatchingRules()
	if cfg.MatchingRulesPath != "" {
		rules, err = core.LoadMatchingRules(cfg.MatchingRulesPath)
		if err != nil {
			log.Fatalf("matching rules: %v", err)
		}
		log.Printf("loaded matching rules from %s", cfg.MatchingRulesPath)
	}

	var extractor ai.ExtractorService
	if cfg.OpenAIKey != "" {
		extractor = ai.NewExtractor(cfg.OpenAIKey)
	} else {
		log.Println("Warning: OPENAI_API_KEY is not set, document extraction disabled")
	}

	var profiles *profile.Store
	if cfg.DatabaseURL != "" {
		profiles, err = profile.NewStore(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("profile store: %v", err)
		}
		defer profiles.Close()
	} else {
		log.Println("Warning: DATABASE_URL is not set, company profiles disabled")
	}

	svc := app.NewAppService(rpc, rules, extractor, storage.NewDownloader(), profiles)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.APIKey)

	log.Printf("server starting on %s (ledger %s, db %s)", cfg.Addr, cfg.Ledger.URL, cfg.Ledger.Database)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
