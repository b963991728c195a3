package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRadio/internal/config"
	"NewsRadio/internal/domain"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(endpoint string) *NarrativeClient {
	return NewNarrativeClient(config.SynthesisConfig{
		Endpoint: endpoint,
		Model:    "test-model",
		APIKey:   "test-key",
	})
}

func TestSynthesizeParsesStories(t *testing.T) {
	content := `[{"headline":"H1","summary":"S1","angle":"A1","sourceItemIds":["a","b"],"importance":7},
	            {"headline":"H2","summary":"S2","angle":"A2","sourceItemIds":["c"],"importance":22}]`
	srv := chatServer(t, content)
	defer srv.Close()

	stories, err := testClient(srv.URL).Synthesize(context.Background(),
		[]domain.SourceItem{{ID: "a", Title: "t"}}, 2)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "H1", stories[0].Headline)
	assert.Equal(t, []string{"a", "b"}, stories[0].SourceItemIDs)
	// Out-of-range importance is clamped into 1..10.
	assert.Equal(t, 10, stories[1].Importance)
}

func TestSynthesizeStripsCodeFences(t *testing.T) {
	content := "```json\n[{\"headline\":\"H1\",\"importance\":3}]\n```"
	srv := chatServer(t, content)
	defer srv.Close()

	stories, err := testClient(srv.URL).Synthesize(context.Background(),
		[]domain.SourceItem{{ID: "a"}}, 1)
	require.NoError(t, err)
	require.Len(t, stories, 1)
}

func TestSynthesizeRejectsMalformedShape(t *testing.T) {
	srv := chatServer(t, `{"not":"an array"}`)
	defer srv.Close()

	_, err := testClient(srv.URL).Synthesize(context.Background(),
		[]domain.SourceItem{{ID: "a"}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected synthesis response shape")
}

func TestSynthesizeRejectsMissingHeadline(t *testing.T) {
	srv := chatServer(t, `[{"summary":"no headline"}]`)
	defer srv.Close()

	_, err := testClient(srv.URL).Synthesize(context.Background(),
		[]domain.SourceItem{{ID: "a"}}, 1)
	require.Error(t, err)
}

func TestSynthesizeEmptyInputIsNoCall(t *testing.T) {
	stories, err := testClient("http://127.0.0.1:0").Synthesize(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestGenerateScriptCarriesProvenance(t *testing.T) {
	srv := chatServer(t, `{"title":"Electric Dreams","body":"verse one","style":"synthwave"}`)
	defer srv.Close()

	story := domain.StoryAngle{Headline: "Grid upgrade", Angle: "optimistic"}
	script, err := testClient(srv.URL).GenerateScript(context.Background(), story, "pop")
	require.NoError(t, err)
	assert.Equal(t, "Electric Dreams", script.Title)
	assert.Equal(t, "synthwave", script.Style)
	assert.Equal(t, "Grid upgrade", script.StoryHeadline)
	assert.Equal(t, "optimistic", script.StoryAngle)
	assert.False(t, script.GeneratedAt.IsZero())
}

func TestGenerateScriptRejectsEmptyBody(t *testing.T) {
	srv := chatServer(t, `{"title":"only a title"}`)
	defer srv.Close()

	_, err := testClient(srv.URL).GenerateScript(context.Background(), domain.StoryAngle{Headline: "h"}, "pop")
	require.Error(t, err)
}

func TestNarrateReturnsPlainText(t *testing.T) {
	srv := chatServer(t, "Good evening, here are the headlines.")
	defer srv.Close()

	text, err := testClient(srv.URL).Narrate(context.Background(),
		[]domain.SourceItem{{Title: "headline one"}})
	require.NoError(t, err)
	assert.Equal(t, "Good evening, here are the headlines.", text)
}

func TestChatSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Narrate(context.Background(), []domain.SourceItem{{Title: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusTooManyRequests))
}

func TestMisconfiguredClientFailsFast(t *testing.T) {
	c := NewNarrativeClient(config.SynthesisConfig{})
	_, err := c.Narrate(context.Background(), []domain.SourceItem{{Title: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}
