// internal/provider/sources.go
package provider

import (
	"fmt"
	"time"

	"mcp-prenatal-log/internal/normalizer"
)

// Settings carries the connection details of every known source.
type Settings struct {
	Timeout    time.Duration
	RetryCount int

	OpenFoodFactsURL string
	USDAURL          string
	USDAKey          string
	EdamamURL        string
	EdamamAppID      string
	EdamamAppKey     string
	EstimatorURL     string
	EstimatorKey     string
	EstimatorModel   string
}

// Chain builds sources in the given priority order. Names repeat the schema
// tags: openfoodfacts, usda_fdc, edamam, estimate.
func Chain(names []string, s Settings) ([]Source, error) {
	seen := make(map[string]bool, len(names))
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("source %q listed twice", name)
		}
		seen[name] = true

		opts := ClientOptions{Timeout: s.Timeout, RetryCount: s.RetryCount}
		switch normalizer.SchemaTag(name) {
		case normalizer.OpenFoodFacts:
			opts.BaseURL = s.OpenFoodFactsURL
			sources = append(sources, NewOpenFoodFacts(opts))
		case normalizer.USDA:
			opts.BaseURL = s.USDAURL
			sources = append(sources, NewUSDA(opts, s.USDAKey))
		case normalizer.Edamam:
			if s.EdamamAppID == "" || s.EdamamAppKey == "" {
				return nil, fmt.Errorf("source %q needs EDAMAM_APP_ID and EDAMAM_APP_KEY", name)
			}
			opts.BaseURL = s.EdamamURL
			sources = append(sources, NewEdamam(opts, s.EdamamAppID, s.EdamamAppKey))
		case normalizer.Estimate:
			opts.BaseURL = s.EstimatorURL
			sources = append(sources, NewEstimator(opts, s.EstimatorKey, s.EstimatorModel))
		default:
			return nil, fmt.Errorf("unknown source %q (known: %v)", name, normalizer.Tags())
		}
	}
	return sources, nil
}
