package parser

import (
	"context"
	"fmt"
	"log/slog"

	"NewsRadio/internal/config"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
	"NewsRadio/internal/retry"
	"NewsRadio/internal/scanner"
)

// StrategySource implements ports.ItemSource via registered scanner
// strategies. A single source failing is retried with the shared backoff
// policy and then skipped; the aggregate fetch never fails outright.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	retry    retry.Config
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, retryCfg retry.Config, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		retry:    retryCfg,
		logger:   log,
	}
}

// FetchItems iterates over enabled sources and executes their scanners,
// returning whatever subset succeeded.
func (s *StrategySource) FetchItems(ctx context.Context) ([]domain.SourceItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	var aggregated []domain.SourceItem
	for _, source := range s.sources {
		if !source.IsEnabled() {
			continue
		}

		items, err := s.fetchSource(ctx, source)
		if err != nil {
			fetchErr := &domain.SourceFetchError{Source: source.Name, Err: err}
			s.warn("source skipped after retries", "source", source.Name, "error", fetchErr)
			continue
		}

		s.debug("source produced items", "source", source.Name, "count", len(items))
		aggregated = append(aggregated, items...)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) fetchSource(ctx context.Context, source config.SourceConfig) ([]domain.SourceItem, error) {
	strategy, err := s.registry.Resolve(source.Scanner)
	if err != nil {
		return nil, err
	}

	req := scanner.Request{
		SourceName: source.Name,
		URL:        source.URL,
		Options:    source.Options,
	}

	var items []domain.SourceItem
	err = retry.Do(ctx, s.retry, func() error {
		var scanErr error
		items, scanErr = strategy.Scan(ctx, req)
		return scanErr
	})
	return items, err
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
