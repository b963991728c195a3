// Package telegram publishes station events to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

// Notifier implements ports.EventSink over the Telegram bot API. It reports
// completed cycles and swallows its own delivery failures; the core never
// depends on the channel being reachable.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.EventSink = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, log *slog.Logger) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   log,
	}
}

// PhaseChanged is intentionally quiet; per-phase chatter would flood the chat.
func (n *Notifier) PhaseChanged(context.Context, domain.CyclePhase) {}

// QueueChanged is intentionally quiet for the same reason.
func (n *Notifier) QueueChanged(context.Context, int) {}

// CycleCompleted posts a one-message cycle digest.
func (n *Notifier) CycleCompleted(ctx context.Context, number int, result domain.CycleResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle %d: %d scraped, %d stories, %d scripts, %d tracks\n",
		number, result.Scraped, result.Synthesized, result.Scripted, result.Rendered)
	for _, e := range result.Errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}

	if err := n.send(ctx, b.String()); err != nil && n.logger != nil {
		n.logger.Warn("telegram delivery failed", "error", err)
	}
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
