package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Bhavy-official/RevLens/internal/config"
	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
	"github.com/Bhavy-official/RevLens/internal/scraper"
)

// StrategySource implements ReviewSource via registered scraper strategies
// configured per marketplace.
type StrategySource struct {
	registry     *scraper.Registry
	marketplaces []config.MarketplaceConfig
	logger       *slog.Logger
}

var _ ports.ReviewSource = (*StrategySource)(nil)

// NewStrategySource wires the scraper registry with config-defined marketplaces.
func NewStrategySource(reg *scraper.Registry, marketplaces []config.MarketplaceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:     reg,
		marketplaces: marketplaces,
		logger:       log,
	}
}

// FetchReviews resolves the marketplace named in req.Options["marketplace"]
// (defaulting to the first configured one) and executes its scraper. Config
// values fill any request fields left empty.
func (s *StrategySource) FetchReviews(ctx context.Context, req ports.ScrapeRequest) ([]domain.RawReview, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scraper registry is not configured")
	}
	if len(s.marketplaces) == 0 {
		return nil, fmt.Errorf("no marketplaces configured")
	}

	marketplace := s.marketplaces[0]
	if name := req.Options["marketplace"]; name != "" {
		found := false
		for _, m := range s.marketplaces {
			if m.Name == name {
				marketplace = m
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("marketplace %s is not configured", name)
		}
	}

	strategy, err := s.registry.Resolve(marketplace.Scraper)
	if err != nil {
		return nil, fmt.Errorf("marketplace %s: %w", marketplace.Name, err)
	}

	if req.URL == "" {
		req.URL = marketplace.URL
	}
	if req.MaxPages <= 0 {
		req.MaxPages = marketplace.MaxPages
	}
	if req.Options == nil {
		req.Options = marketplace.Options
	}

	s.debug("scrape product", "marketplace", marketplace.Name, "scraper", strategy.Name(), "pid", req.PID, "max_pages", req.MaxPages)

	reviews, err := strategy.Scrape(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", marketplace.Name, err)
	}

	s.debug("scrape done", "marketplace", marketplace.Name, "reviews", len(reviews))
	return reviews, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
