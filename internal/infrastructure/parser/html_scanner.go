package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/scanner"
)

// Option keys understood by the HTML strategy. Selectors are CSS expressions
// evaluated relative to each item node.
const (
	optItemSelector  = "itemSelector"
	optTitleSelector = "titleSelector"
	optLinkSelector  = "linkSelector"
	optBodySelector  = "bodySelector"
)

// HTMLScanner crawls a listing page and extracts headline items using
// per-source CSS selectors.
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client; nil gets a 20s-timeout default.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan fetches the listing page and extracts one source item per matched node.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.SourceItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no url provided for source %s", req.SourceName)
	}

	itemSel := req.Options[optItemSelector]
	if itemSel == "" {
		return nil, fmt.Errorf("source %s: missing %s option", req.SourceName, optItemSelector)
	}

	doc, err := h.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", req.URL, err)
	}

	now := time.Now().UTC()
	var items []domain.SourceItem

	doc.Find(itemSel).Each(func(i int, node *goquery.Selection) {
		title := strings.TrimSpace(selectText(node, req.Options[optTitleSelector]))
		link := resolveLink(base, node, req.Options[optLinkSelector])
		if title == "" || link == "" {
			return
		}

		items = append(items, domain.SourceItem{
			ID:          ItemID(link),
			Origin:      req.SourceName,
			Title:       title,
			Body:        strings.TrimSpace(selectText(node, req.Options[optBodySelector])),
			PublishedAt: now,
			FetchedAt:   now,
		})
	})

	return items, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsRadio/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// selectText returns the node's own text when sel is empty.
func selectText(node *goquery.Selection, sel string) string {
	if sel == "" {
		return node.Text()
	}
	return node.Find(sel).First().Text()
}

func resolveLink(base *url.URL, node *goquery.Selection, sel string) string {
	target := node
	if sel != "" {
		target = node.Find(sel).First()
	}
	if !target.Is("a") {
		target = target.Find("a").First()
	}

	href, ok := target.Attr("href")
	if !ok || href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
