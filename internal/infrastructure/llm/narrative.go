package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsRadio/internal/config"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

// NarrativeClient implements ports.Synthesizer backed by OpenAI-compatible
// chat APIs. Responses that do not parse into the expected JSON shape are
// reported as errors, never silently truncated.
type NarrativeClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Synthesizer = (*NarrativeClient)(nil)

// NewNarrativeClient builds a client from configuration.
func NewNarrativeClient(cfg config.SynthesisConfig) *NarrativeClient {
	return &NarrativeClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type storyAngleJSON struct {
	Headline      string   `json:"headline"`
	Summary       string   `json:"summary"`
	Angle         string   `json:"angle"`
	SourceItemIDs []string `json:"sourceItemIds"`
	Importance    int      `json:"importance"`
}

// Synthesize collapses a batch of source items into targetCount distinct
// story angles.
func (c *NarrativeClient) Synthesize(ctx context.Context, items []domain.SourceItem, targetCount int) ([]domain.StoryAngle, error) {
	if len(items) == 0 {
		return nil, nil
	}

	payload, err := itemsJSON(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	prompt := fmt.Sprintf(
		"Collapse the following items into at most %d distinct story angles. Items covering the same event must share one angle. "+
			"Respond with a JSON array of objects with fields headline, summary, angle, sourceItemIds, importance (1-10). "+
			"Respond with JSON only.\n\n%s",
		targetCount, payload)

	content, err := c.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw []storyAngleJSON
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("unexpected synthesis response shape: %w", err)
	}

	stories := make([]domain.StoryAngle, 0, len(raw))
	for _, s := range raw {
		if s.Headline == "" {
			return nil, fmt.Errorf("synthesis response contains a story without a headline")
		}
		stories = append(stories, domain.StoryAngle{
			Headline:      s.Headline,
			Summary:       s.Summary,
			Angle:         s.Angle,
			SourceItemIDs: s.SourceItemIDs,
			Importance:    clampImportance(s.Importance),
		})
	}

	return stories, nil
}

type scriptJSON struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Style string `json:"style"`
}

// GenerateScript turns one story angle into a titled script payload.
func (c *NarrativeClient) GenerateScript(ctx context.Context, story domain.StoryAngle, styleHint string) (domain.ScriptPayload, error) {
	prompt := fmt.Sprintf(
		"Write song lyrics about this story. Style hint: %s.\nHeadline: %s\nSummary: %s\nAngle: %s\n"+
			"Respond with a JSON object with fields title, body, style. Respond with JSON only.",
		styleHint, story.Headline, story.Summary, story.Angle)

	content, err := c.chat(ctx, prompt)
	if err != nil {
		return domain.ScriptPayload{}, err
	}

	var raw scriptJSON
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return domain.ScriptPayload{}, fmt.Errorf("unexpected script response shape: %w", err)
	}
	if raw.Title == "" || raw.Body == "" {
		return domain.ScriptPayload{}, fmt.Errorf("script response missing title or body")
	}

	style := raw.Style
	if style == "" {
		style = styleHint
	}

	return domain.ScriptPayload{
		Title:         raw.Title,
		Body:          raw.Body,
		Style:         style,
		StoryHeadline: story.Headline,
		StoryAngle:    story.Angle,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// Narrate produces a short spoken-news text for the freshest items.
func (c *NarrativeClient) Narrate(ctx context.Context, items []domain.SourceItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to narrate")
	}

	var headlines strings.Builder
	for _, item := range items {
		fmt.Fprintf(&headlines, "- %s\n", item.Title)
	}

	prompt := fmt.Sprintf(
		"Write a 30-second radio news read covering these headlines. Plain text, no markup.\n\n%s",
		headlines.String())

	content, err := c.chat(ctx, prompt)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty narration response")
	}
	return content, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *NarrativeClient) chat(ctx context.Context, userPrompt string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("synthesis client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("synthesis backend error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response carries no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func itemsJSON(items []domain.SourceItem) ([]byte, error) {
	type entry struct {
		ID     string `json:"id"`
		Origin string `json:"origin"`
		Title  string `json:"title"`
		Body   string `json:"body"`
	}

	payload := make([]entry, 0, len(items))
	for _, item := range items {
		payload = append(payload, entry{
			ID:     item.ID,
			Origin: item.Origin,
			Title:  item.Title,
			Body:   item.Body,
		})
	}

	return json.Marshal(payload)
}

// extractJSON strips markdown code fences some models wrap around payloads.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

func clampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are the newsroom writer for an automated radio station."
	}
	return prompt
}
