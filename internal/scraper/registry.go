package scraper

import (
	"context"
	"fmt"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
)

// Scraper captures a single marketplace strategy (Flipkart, Amazon, etc.).
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, req ports.ScrapeRequest) ([]domain.RawReview, error)
}

// Registry keeps a mapping from scraper names to their implementations.
type Registry struct {
	scrapers map[string]Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[string]Scraper{}}
}

// Register adds or replaces a scraper implementation.
func (r *Registry) Register(s Scraper) {
	if r.scrapers == nil {
		r.scrapers = map[string]Scraper{}
	}
	r.scrapers[s.Name()] = s
}

// Resolve returns a scraper by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scraper, error) {
	if s, ok := r.scrapers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scraper %s is not registered", name)
}
