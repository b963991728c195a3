// Package ingest turns raw scanner output into newly seen, relevant source
// items.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"NewsRadio/internal/dedup"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

// Feed applies the relevance filter and the bounded identity set over an item
// source. Accepted ids are remembered across restarts through the store.
type Feed struct {
	source   ports.ItemSource
	store    ports.Store
	seen     *dedup.Set
	capacity int
	keywords []string
	logger   *slog.Logger
}

// New builds a feed with the given dedup capacity and relevance keywords.
// An empty keyword list accepts everything.
func New(source ports.ItemSource, store ports.Store, capacity int, keywords []string, log *slog.Logger) *Feed {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	return &Feed{
		source:   source,
		store:    store,
		seen:     dedup.NewSet(capacity),
		capacity: capacity,
		keywords: lowered,
		logger:   log,
	}
}

// Restore reloads the newest previously seen ids from the store, oldest
// first, so the set's eviction order matches the original insertion order.
func (f *Feed) Restore(ctx context.Context) error {
	if f.store == nil {
		return nil
	}

	ids, err := f.store.LoadSeenIDs(ctx, f.capacity)
	if err != nil {
		return err
	}

	for _, id := range ids {
		f.seen.Add(id)
	}
	return nil
}

// FetchOnce fetches all enabled sources, filters by relevance, discards
// already-seen items, and returns only the newly accepted ones. It never
// fails outright: source errors were already absorbed upstream, and an empty
// result is a valid outcome.
func (f *Feed) FetchOnce(ctx context.Context) []domain.SourceItem {
	if f.source == nil {
		return nil
	}

	fetched, err := f.source.FetchItems(ctx)
	if err != nil {
		f.warn("fetch failed", "error", err)
		return nil
	}

	var fresh []domain.SourceItem
	for _, item := range fetched {
		if !f.relevant(item) {
			continue
		}
		if f.seen.Has(item.ID) {
			continue
		}

		f.seen.Add(item.ID)
		f.persistSeen(ctx, item.ID)
		fresh = append(fresh, item)
	}

	f.debug("fetch once", "fetched", len(fetched), "accepted", len(fresh))
	return fresh
}

// SeenCount reports the current size of the identity set.
func (f *Feed) SeenCount() int {
	return f.seen.Len()
}

func (f *Feed) relevant(item domain.SourceItem) bool {
	if len(f.keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Body)
	for _, kw := range f.keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func (f *Feed) persistSeen(ctx context.Context, id string) {
	if f.store == nil {
		return
	}
	if err := f.store.SaveSeenID(ctx, id); err != nil {
		f.warn("persist seen id", "id", id, "error", err)
	}
}

func (f *Feed) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Feed) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
