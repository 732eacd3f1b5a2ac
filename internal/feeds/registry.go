// Package feeds retrieves and decodes GTFS-RT feeds and indexes their
// arrival predictions. Several subway lines share one physical feed, so the
// fetcher resolves requested lines down to the minimal set of feeds before
// touching the network.
package feeds

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// defaultFeedForLine is the NYC subway line-to-feed assignment. Lines that
// share physical infrastructure and operations report through one feed.
var defaultFeedForLine = map[string]string{
	"1": "1", "2": "1", "3": "1", "4": "1", "5": "1", "6": "1",
	"A": "26", "C": "26", "E": "26", "H": "26",
	"N": "16", "Q": "16", "R": "16", "W": "16",
	"B": "21", "D": "21", "F": "21", "M": "21",
	"L": "2",
	"G": "31",
	"J": "36", "Z": "36",
	"7": "51",
}

// registryConfig is the YAML shape of an external feed assignment file.
type registryConfig struct {
	Feeds []feedConfig `yaml:"feeds" validate:"required,min=1,dive"`
}

type feedConfig struct {
	ID    string   `yaml:"id" validate:"required"`
	Lines []string `yaml:"lines" validate:"required,min=1"`
}

// Registry is the read-only mapping from transit line to the physical feed
// that carries it. Built once at startup; safe for concurrent reads.
type Registry struct {
	feedForLine map[string]string
}

// DefaultRegistry returns a Registry with the built-in NYC subway mapping.
func DefaultRegistry() *Registry {
	return &Registry{feedForLine: defaultFeedForLine}
}

// LoadRegistry reads a feed assignment YAML file. An empty path returns the
// built-in default; a present-but-invalid file is a configuration error.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening feed registry: %w", err)
	}

	var cfg registryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing feed registry %s: %w", path, err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid feed registry %s: %w", path, err)
	}

	feedForLine := make(map[string]string)
	for _, feed := range cfg.Feeds {
		for _, line := range feed.Lines {
			feedForLine[line] = feed.ID
		}
	}
	return &Registry{feedForLine: feedForLine}, nil
}

// FeedFor resolves a line to its physical feed id.
func (r *Registry) FeedFor(line string) (string, bool) {
	id, ok := r.feedForLine[line]
	return id, ok
}

// DistinctFeeds maps the requested lines to the minimal sorted set of
// physical feed ids. Lines the registry does not know are skipped; the
// caller decides whether that is worth logging.
func (r *Registry) DistinctFeeds(lines map[string]struct{}) []string {
	set := make(map[string]struct{}, len(lines))
	for line := range lines {
		if id, ok := r.feedForLine[line]; ok {
			set[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
