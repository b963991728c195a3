package parser

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/scanner"
)

// RSSScanner fetches items from RSS/Atom feeds.
type RSSScanner struct {
	parser *gofeed.Parser
	maxAge time.Duration
}

// NewRSSScanner builds the feed strategy; items older than maxAge are
// dropped. maxAge defaults to 48h.
func NewRSSScanner(maxAge time.Duration) *RSSScanner {
	if maxAge <= 0 {
		maxAge = 48 * time.Hour
	}
	return &RSSScanner{parser: gofeed.NewParser(), maxAge: maxAge}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan parses the configured feed URL and maps its entries to source items.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.SourceItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no url provided for source %s", req.SourceName)
	}

	feed, err := r.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(-r.maxAge)

	items := make([]domain.SourceItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		if published.Before(cutoff) {
			continue
		}

		body := entry.Description
		if body == "" {
			body = entry.Content
		}

		items = append(items, domain.SourceItem{
			ID:          ItemID(entry.Link),
			Origin:      req.SourceName,
			Title:       strings.TrimSpace(entry.Title),
			Body:        stripHTML(body),
			PublishedAt: published,
			FetchedAt:   now,
		})
	}

	return items, nil
}

// ItemID derives the stable identity hash from the canonical link.
func ItemID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", sum[:16])
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
