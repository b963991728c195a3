package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"NewsRadio/internal/buffer"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ingest"
	"NewsRadio/internal/ports"
)

const newsFlashItemLimit = 5

// OrchestratorDeps wires all driven adapters into the production cycle.
type OrchestratorDeps struct {
	Feed        *ingest.Feed
	NewsSource  ports.ItemSource
	Synthesizer ports.Synthesizer
	Renderer    ports.SongRenderer
	Downloader  ports.AudioDownloader
	Speech      ports.SpeechSynthesizer
	Store       ports.Store
	Buffer      *buffer.Queue
	Events      ports.EventSink
	CycleDriver ports.IntervalDriver
	NewsDriver  ports.IntervalDriver
	Logger      *slog.Logger

	StoryTarget int
	Concurrency int
	SongStyle   string
	NewsVoice   string
}

// renderJob pairs a script with its retry standing. A script that already
// came from the retry queue is dropped on its second failure.
type renderJob struct {
	script    domain.ScriptPayload
	fromRetry bool
}

// Orchestrator runs the scrape > synthesize > script > render pipeline on a
// fixed period and exposes the station's control surface. A cycle always
// produces a CycleResult; nothing it does can take the host process down.
type Orchestrator struct {
	feed        *ingest.Feed
	newsSource  ports.ItemSource
	synthesizer ports.Synthesizer
	renderer    ports.SongRenderer
	downloader  ports.AudioDownloader
	speech      ports.SpeechSynthesizer
	store       ports.Store
	buffer      *buffer.Queue
	events      ports.EventSink
	cycleDriver ports.IntervalDriver
	newsDriver  ports.IntervalDriver
	logger      *slog.Logger

	storyTarget int
	concurrency int
	songStyle   string
	newsVoice   string

	renderSlots chan struct{} // global in-flight render bound

	mu          sync.Mutex
	running     bool
	phase       domain.CyclePhase
	cycleNumber int
	totals      domain.CycleResult
	retryQueue  []domain.ScriptPayload

	pendingRenders atomic.Int32
}

// NewOrchestrator constructs the production cycle component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	events := deps.Events
	if events == nil {
		events = ports.NopSink{}
	}

	storyTarget := deps.StoryTarget
	if storyTarget <= 0 {
		storyTarget = 5
	}

	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	return &Orchestrator{
		feed:        deps.Feed,
		newsSource:  deps.NewsSource,
		synthesizer: deps.Synthesizer,
		renderer:    deps.Renderer,
		downloader:  deps.Downloader,
		speech:      deps.Speech,
		store:       deps.Store,
		buffer:      deps.Buffer,
		events:      events,
		cycleDriver: deps.CycleDriver,
		newsDriver:  deps.NewsDriver,
		logger:      deps.Logger,
		storyTarget: storyTarget,
		concurrency: concurrency,
		songStyle:   deps.SongStyle,
		newsVoice:   deps.NewsVoice,
		renderSlots: make(chan struct{}, concurrency),
		phase:       domain.PhaseIdle,
	}
}

// Start begins the cycle and news-flash timers. Idempotent while running.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.mu.Unlock()

	if o.cycleDriver != nil {
		if err := o.cycleDriver.Start(ctx, func(time.Time) {
			o.RunSingleCycle(ctx)
		}); err != nil {
			return err
		}
	}

	if o.newsDriver != nil {
		if err := o.newsDriver.Start(ctx, func(time.Time) {
			o.runNewsFlash(ctx)
		}); err != nil {
			return err
		}
	}

	return nil
}

// Stop cancels the timers. An in-flight cycle is allowed to finish naturally.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.mu.Unlock()

	if o.cycleDriver != nil {
		if err := o.cycleDriver.Stop(ctx); err != nil {
			return err
		}
	}
	if o.newsDriver != nil {
		if err := o.newsDriver.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Status returns the control-surface snapshot.
func (o *Orchestrator) Status() domain.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	bufferSize := 0
	if o.buffer != nil {
		bufferSize = o.buffer.Len()
	}

	return domain.Status{
		Running:        o.running,
		CyclePhase:     o.phase,
		CycleNumber:    o.cycleNumber,
		BufferSize:     bufferSize,
		PendingRenders: int(o.pendingRenders.Load()),
		Totals:         o.totals,
	}
}

// PeekBuffer returns the not-yet-played tracks in order.
func (o *Orchestrator) PeekBuffer() []domain.Track {
	if o.buffer == nil {
		return nil
	}
	return o.buffer.Peek()
}

// RunSingleCycle executes one full production cycle synchronously and returns
// its result. Never panics and never returns an error: failures land in the
// result's error list.
func (o *Orchestrator) RunSingleCycle(ctx context.Context) domain.CycleResult {
	o.mu.Lock()
	o.cycleNumber++
	number := o.cycleNumber
	o.mu.Unlock()

	result := o.runCycle(ctx)

	o.mu.Lock()
	o.totals.Scraped += result.Scraped
	o.totals.Synthesized += result.Synthesized
	o.totals.Scripted += result.Scripted
	o.totals.Rendered += result.Rendered
	o.totals.Errors = append(o.totals.Errors, result.Errors...)
	o.mu.Unlock()

	o.events.CycleCompleted(ctx, number, result)
	o.info("cycle completed", "cycle", number,
		"scraped", result.Scraped, "synthesized", result.Synthesized,
		"scripted", result.Scripted, "rendered", result.Rendered,
		"errors", len(result.Errors))

	return result
}

func (o *Orchestrator) runCycle(ctx context.Context) domain.CycleResult {
	var result domain.CycleResult
	defer o.setPhase(ctx, domain.PhaseIdle)

	// Phase: scraping.
	o.setPhase(ctx, domain.PhaseScraping)
	items := o.feed.FetchOnce(ctx)
	result.Scraped = len(items)
	if len(items) == 0 {
		// Nothing new is a valid outcome, not an error.
		return result
	}

	// Phase: synthesizing.
	o.setPhase(ctx, domain.PhaseSynthesizing)
	stories, err := o.synthesizer.Synthesize(ctx, items, o.storyTarget)
	if err != nil {
		synthErr := &domain.SynthesisError{Err: err}
		result.Errors = append(result.Errors, synthErr.Error())
		return result
	}
	result.Synthesized = len(stories)
	if len(stories) == 0 {
		return result
	}

	// Phase: scripting. Per-story failures are collected, not raised, and
	// successful payloads keep the relative order of their stories.
	o.setPhase(ctx, domain.PhaseScripting)
	var scripts []domain.ScriptPayload
	for _, story := range stories {
		script, err := o.synthesizer.GenerateScript(ctx, story, o.songStyle)
		if err != nil {
			genErr := &domain.ScriptGenerationError{Headline: story.Headline, Err: err}
			result.Errors = append(result.Errors, genErr.Error())
			continue
		}
		scripts = append(scripts, script)
	}
	result.Scripted = len(scripts)

	// Phase: rendering. Scripts that failed last cycle get one more chance
	// ahead of the new batch.
	o.setPhase(ctx, domain.PhaseRendering)
	jobs := o.takeRetryJobs()
	for _, script := range scripts {
		jobs = append(jobs, renderJob{script: script})
	}
	o.renderAll(ctx, jobs, &result)

	return result
}

// renderAll processes jobs in fixed-size concurrent batches. The semaphore
// additionally bounds total in-flight renders across the whole cycle, and one
// task's failure never cancels its siblings.
func (o *Orchestrator) renderAll(ctx context.Context, jobs []renderJob, result *domain.CycleResult) {
	type outcome struct {
		job renderJob
		err error
	}

	for start := 0; start < len(jobs); start += o.concurrency {
		end := min(start+o.concurrency, len(jobs))
		batch := jobs[start:end]

		outcomes := make([]outcome, len(batch))
		var wg sync.WaitGroup
		for i, job := range batch {
			wg.Add(1)
			go func(i int, job renderJob) {
				defer wg.Done()

				o.renderSlots <- struct{}{}
				o.pendingRenders.Add(1)
				defer func() {
					o.pendingRenders.Add(-1)
					<-o.renderSlots
				}()

				outcomes[i] = outcome{job: job, err: o.renderOne(ctx, job.script)}
			}(i, job)
		}
		wg.Wait()

		for _, out := range outcomes {
			if out.err == nil {
				result.Rendered++
				continue
			}

			renderErr := &domain.RenderError{Title: out.job.script.Title, Err: out.err}
			result.Errors = append(result.Errors, renderErr.Error())
			if !out.job.fromRetry {
				o.queueRetry(out.job.script)
			} else {
				o.warn("script dropped after second render failure", "title", out.job.script.Title)
			}
		}
	}
}

// renderOne runs the render > download > enqueue flow for one script.
func (o *Orchestrator) renderOne(ctx context.Context, script domain.ScriptPayload) error {
	ref, err := o.renderer.Render(ctx, script)
	if err != nil {
		return err
	}

	path, err := o.downloader.Download(ctx, ref)
	if err != nil {
		return err
	}

	track := domain.Track{
		ID:       ulid.Make().String(),
		Kind:     domain.ContentSong,
		Title:    script.Title,
		FilePath: path,
		Metadata: map[string]string{
			"storyHeadline": script.StoryHeadline,
			"storyAngle":    script.StoryAngle,
			"style":         script.Style,
		},
		CreatedAt: time.Now().UTC(),
	}

	o.buffer.Enqueue(track)
	o.events.QueueChanged(ctx, o.buffer.Len())

	if o.store != nil {
		if err := o.store.SaveContent(ctx, domain.ContentRef{
			ID:        track.ID,
			Type:      track.Kind,
			Title:     track.Title,
			FilePath:  track.FilePath,
			CreatedAt: track.CreatedAt,
		}); err != nil {
			return err
		}
	}

	return nil
}

// runNewsFlash is the independently timed side-task: a lightweight fetch,
// narrate, and speech-synthesize flow that interleaves one spoken track near
// the head of the buffer.
func (o *Orchestrator) runNewsFlash(ctx context.Context) {
	if o.newsSource == nil || o.speech == nil {
		return
	}

	items, err := o.newsSource.FetchItems(ctx)
	if err != nil || len(items) == 0 {
		o.warn("news flash fetch yielded nothing", "error", err)
		return
	}
	if len(items) > newsFlashItemLimit {
		items = items[:newsFlashItemLimit]
	}

	text, err := o.synthesizer.Narrate(ctx, items)
	if err != nil {
		o.warn("news narration failed", "error", err)
		return
	}

	path, err := o.speech.SynthesizeSpeech(ctx, text, o.newsVoice)
	if err != nil {
		o.warn("news speech synthesis failed", "error", err)
		return
	}

	track := domain.Track{
		ID:        ulid.Make().String(),
		Kind:      domain.ContentNews,
		Title:     "News flash",
		FilePath:  path,
		CreatedAt: time.Now().UTC(),
	}

	position := min(3, o.buffer.Len())
	o.buffer.InsertAt(position, track)
	o.events.QueueChanged(ctx, o.buffer.Len())
	o.info("news flash queued", "position", position)
}

func (o *Orchestrator) takeRetryJobs() []renderJob {
	o.mu.Lock()
	defer o.mu.Unlock()

	jobs := make([]renderJob, 0, len(o.retryQueue))
	for _, script := range o.retryQueue {
		jobs = append(jobs, renderJob{script: script, fromRetry: true})
	}
	o.retryQueue = nil
	return jobs
}

func (o *Orchestrator) queueRetry(script domain.ScriptPayload) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retryQueue = append(o.retryQueue, script)
}

func (o *Orchestrator) setPhase(ctx context.Context, phase domain.CyclePhase) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()
	o.events.PhaseChanged(ctx, phase)
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
