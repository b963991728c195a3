package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRadio/internal/buffer"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ingest"
	"NewsRadio/internal/ports"
)

type fakeItemSource struct {
	items []domain.SourceItem
	err   error
}

func (f *fakeItemSource) FetchItems(context.Context) ([]domain.SourceItem, error) {
	return f.items, f.err
}

type fakeSynthesizer struct {
	stories    []domain.StoryAngle
	synthErr   error
	scriptErrs map[string]error // keyed by story headline
	narration  string
	narrateErr error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ []domain.SourceItem, _ int) ([]domain.StoryAngle, error) {
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return f.stories, nil
}

func (f *fakeSynthesizer) GenerateScript(_ context.Context, story domain.StoryAngle, style string) (domain.ScriptPayload, error) {
	if err := f.scriptErrs[story.Headline]; err != nil {
		return domain.ScriptPayload{}, err
	}
	return domain.ScriptPayload{
		Title:         "Song: " + story.Headline,
		Body:          story.Summary,
		Style:         style,
		StoryHeadline: story.Headline,
		StoryAngle:    story.Angle,
		GeneratedAt:   time.Now(),
	}, nil
}

func (f *fakeSynthesizer) Narrate(context.Context, []domain.SourceItem) (string, error) {
	return f.narration, f.narrateErr
}

// fakeRenderer tracks the concurrency high-water mark and fails titles a
// configured number of times.
type fakeRenderer struct {
	mu        sync.Mutex
	delay     time.Duration
	failures  map[string]int // remaining failures per title
	calls     map[string]int
	inFlight  int
	maxSeen   int
	nextID    int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{failures: map[string]int{}, calls: map[string]int{}}
}

func (f *fakeRenderer) Render(_ context.Context, script domain.ScriptPayload) (ports.RemoteAudioRef, error) {
	f.mu.Lock()
	f.calls[script.Title]++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.nextID++
	id := f.nextID
	fail := f.failures[script.Title] > 0
	if fail {
		f.failures[script.Title]--
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if fail {
		return ports.RemoteAudioRef{}, errors.New("render backend unavailable")
	}
	return ports.RemoteAudioRef{ID: fmt.Sprintf("r%d", id), URL: "https://render.test/audio"}, nil
}

type fakeDownloader struct{}

func (fakeDownloader) Download(_ context.Context, ref ports.RemoteAudioRef) (string, error) {
	return "/audio/" + ref.ID + ".mp3", nil
}

type fakeSpeech struct {
	path string
	err  error
}

func (f *fakeSpeech) SynthesizeSpeech(context.Context, string, string) (string, error) {
	return f.path, f.err
}

type fakeDriver struct {
	job     func(time.Time)
	started bool
	stopped bool
}

func (f *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	f.job = job
	f.started = true
	return nil
}

func (f *fakeDriver) Stop(context.Context) error {
	f.stopped = true
	return nil
}

type recordingSink struct {
	ports.NopSink
	mu      sync.Mutex
	phases  []domain.CyclePhase
	cycles  []int
	results []domain.CycleResult
}

func (r *recordingSink) PhaseChanged(_ context.Context, phase domain.CyclePhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func (r *recordingSink) CycleCompleted(_ context.Context, number int, result domain.CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, number)
	r.results = append(r.results, result)
}

func sourceItems(ids ...string) []domain.SourceItem {
	items := make([]domain.SourceItem, len(ids))
	for i, id := range ids {
		items[i] = domain.SourceItem{ID: id, Title: "item " + id, Body: "body"}
	}
	return items
}

func stories(headlines ...string) []domain.StoryAngle {
	out := make([]domain.StoryAngle, len(headlines))
	for i, h := range headlines {
		out[i] = domain.StoryAngle{Headline: h, Summary: "summary of " + h, Angle: "angle", Importance: 5}
	}
	return out
}

type orchestratorFixture struct {
	source   *fakeItemSource
	synth    *fakeSynthesizer
	renderer *fakeRenderer
	speech   *fakeSpeech
	store    *memStore
	buffer   *buffer.Queue
	sink     *recordingSink
	orch     *Orchestrator
}

func newOrchestratorFixture(concurrency int) *orchestratorFixture {
	f := &orchestratorFixture{
		source:   &fakeItemSource{},
		synth:    &fakeSynthesizer{},
		renderer: newFakeRenderer(),
		speech:   &fakeSpeech{path: "/audio/news.mp3"},
		store:    newMemStore(),
		buffer:   buffer.New(),
		sink:     &recordingSink{},
	}
	f.orch = NewOrchestrator(OrchestratorDeps{
		Feed:        ingest.New(f.source, nil, 100, nil, nil),
		NewsSource:  f.source,
		Synthesizer: f.synth,
		Renderer:    f.renderer,
		Downloader:  fakeDownloader{},
		Speech:      f.speech,
		Store:       f.store,
		Buffer:      f.buffer,
		Events:      f.sink,
		Concurrency: concurrency,
		SongStyle:   "synthwave",
		NewsVoice:   "anchor",
	})
	return f
}

func TestCycleWithNoItemsReturnsZeroResult(t *testing.T) {
	f := newOrchestratorFixture(2)

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, domain.CycleResult{}, result)
	assert.Empty(t, result.Errors)
	assert.Equal(t, domain.PhaseIdle, f.orch.Status().CyclePhase)
}

func TestCycleHappyPath(t *testing.T) {
	// Sequential rendering keeps the enqueue order deterministic.
	f := newOrchestratorFixture(1)
	f.source.items = sourceItems("a", "b", "c")
	f.synth.stories = stories("AI breakthrough", "Chip shortage")

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 3, result.Scraped)
	assert.Equal(t, 2, result.Synthesized)
	assert.Equal(t, 2, result.Scripted)
	assert.Equal(t, 2, result.Rendered)
	assert.Empty(t, result.Errors)

	assert.Equal(t, 2, f.buffer.Len())
	assert.Len(t, f.store.order, 2)

	track := f.buffer.Peek()[0]
	assert.Equal(t, domain.ContentSong, track.Kind)
	assert.Equal(t, "AI breakthrough", track.Metadata["storyHeadline"])

	status := f.orch.Status()
	assert.Equal(t, 1, status.CycleNumber)
	assert.Equal(t, 2, status.Totals.Rendered)
	assert.Equal(t, []int{1}, f.sink.cycles)
}

func TestSynthesisFailureStopsCycle(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("a", "b")
	f.synth.synthErr = errors.New("model overloaded")

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 2, result.Scraped)
	assert.Equal(t, 0, result.Synthesized)
	assert.Equal(t, 0, result.Rendered)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "synthesis")
	assert.Empty(t, f.renderer.calls)
}

func TestEmptySynthesisResultStopsQuietly(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("a")
	f.synth.stories = nil

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 1, result.Scraped)
	assert.Equal(t, 0, result.Synthesized)
	assert.Empty(t, result.Errors)
}

func TestScriptFailuresAreCollectedInOrder(t *testing.T) {
	f := newOrchestratorFixture(1)
	f.source.items = sourceItems("a", "b", "c")
	f.synth.stories = stories("first", "broken", "third")
	f.synth.scriptErrs = map[string]error{"broken": errors.New("no lyrics")}

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 2, result.Scripted)
	assert.Equal(t, 2, result.Rendered)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken")

	// Surviving scripts keep their story order.
	tracks := f.buffer.Peek()
	require.Len(t, tracks, 2)
	assert.Equal(t, "first", tracks[0].Metadata["storyHeadline"])
	assert.Equal(t, "third", tracks[1].Metadata["storyHeadline"])
}

func TestRenderConcurrencyNeverExceedsBound(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.renderer.delay = 20 * time.Millisecond
	f.source.items = sourceItems("a", "b", "c", "d", "e", "f")
	f.synth.stories = stories("s1", "s2", "s3", "s4", "s5", "s6")

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 6, result.Rendered)
	assert.LessOrEqual(t, f.renderer.maxSeen, 2)
	assert.Equal(t, 0, f.orch.Status().PendingRenders)
}

func TestFailedRenderIsRetriedExactlyOnce(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("a")
	f.synth.stories = stories("doomed", "fine")
	f.renderer.failures["Song: doomed"] = 2

	first := f.orch.RunSingleCycle(context.Background())
	assert.Equal(t, 1, first.Rendered)
	require.Len(t, first.Errors, 1)
	assert.Contains(t, first.Errors[0], "doomed")

	// Next cycle runs the retry ahead of any new scripts, fails again, and
	// drops the script for good.
	f.source.items = sourceItems("b")
	f.synth.stories = stories("other")
	second := f.orch.RunSingleCycle(context.Background())
	assert.Equal(t, 1, second.Rendered)
	require.Len(t, second.Errors, 1)

	f.source.items = sourceItems("c")
	f.synth.stories = stories("later")
	third := f.orch.RunSingleCycle(context.Background())
	assert.Empty(t, third.Errors)

	assert.Equal(t, 2, f.renderer.calls["Song: doomed"])
}

func TestOneRenderFailureDoesNotCancelSiblings(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("a")
	f.synth.stories = stories("ok1", "bad", "ok2")
	f.renderer.failures["Song: bad"] = 1

	result := f.orch.RunSingleCycle(context.Background())

	assert.Equal(t, 2, result.Rendered)
	require.Len(t, result.Errors, 1)
}

func TestNewsFlashInsertsNearHead(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("n1", "n2")
	f.synth.narration = "Tonight in AI news."
	for i := 0; i < 5; i++ {
		f.buffer.Enqueue(domain.Track{ID: fmt.Sprintf("s%d", i), Kind: domain.ContentSong})
	}

	f.orch.runNewsFlash(context.Background())

	tracks := f.buffer.Peek()
	require.Len(t, tracks, 6)
	assert.Equal(t, domain.ContentNews, tracks[3].Kind)
}

func TestNewsFlashOnShortBufferAppends(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("n1")
	f.synth.narration = "Brief update."
	f.buffer.Enqueue(domain.Track{ID: "only", Kind: domain.ContentSong})

	f.orch.runNewsFlash(context.Background())

	tracks := f.buffer.Peek()
	require.Len(t, tracks, 2)
	assert.Equal(t, domain.ContentNews, tracks[1].Kind)
}

func TestNewsFlashFailuresLeaveBufferUntouched(t *testing.T) {
	f := newOrchestratorFixture(2)
	f.source.items = sourceItems("n1")
	f.synth.narration = "text"
	f.speech.err = errors.New("voice backend down")
	f.buffer.Enqueue(domain.Track{ID: "x", Kind: domain.ContentSong})

	f.orch.runNewsFlash(context.Background())

	assert.Equal(t, 1, f.buffer.Len())
}

func TestStartStopControlsDrivers(t *testing.T) {
	f := newOrchestratorFixture(2)
	cycle := &fakeDriver{}
	news := &fakeDriver{}
	f.orch.cycleDriver = cycle
	f.orch.newsDriver = news

	ctx := context.Background()
	require.NoError(t, f.orch.Start(ctx))
	assert.True(t, cycle.started)
	assert.True(t, news.started)
	assert.True(t, f.orch.Status().Running)

	// Idempotent while running.
	require.NoError(t, f.orch.Start(ctx))

	require.NoError(t, f.orch.Stop(ctx))
	assert.True(t, cycle.stopped)
	assert.True(t, news.stopped)
	assert.False(t, f.orch.Status().Running)
	require.NoError(t, f.orch.Stop(ctx))
}
