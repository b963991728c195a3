package ports

import (
	"context"
	"time"

	"NewsRadio/internal/domain"
)

// ItemSource pulls fresh source items from upstream providers.
type ItemSource interface {
	FetchItems(ctx context.Context) ([]domain.SourceItem, error)
}

// RemoteAudioRef is an opaque locator a renderer hands back for a finished
// piece of audio.
type RemoteAudioRef struct {
	ID  string
	URL string
}

// Synthesizer turns source items into story angles, scripts, and short
// narrations. Implementations must fail explicitly when the backend's output
// cannot be parsed into the expected shape.
type Synthesizer interface {
	Synthesize(ctx context.Context, items []domain.SourceItem, targetCount int) ([]domain.StoryAngle, error)
	GenerateScript(ctx context.Context, story domain.StoryAngle, styleHint string) (domain.ScriptPayload, error)
	Narrate(ctx context.Context, items []domain.SourceItem) (string, error)
}

// SongRenderer submits a script to the song backend and returns a locator for
// the rendered audio.
type SongRenderer interface {
	Render(ctx context.Context, script domain.ScriptPayload) (RemoteAudioRef, error)
}

// AudioDownloader fetches a remote audio ref to local storage, rejecting
// undersized files as failed renders.
type AudioDownloader interface {
	Download(ctx context.Context, ref RemoteAudioRef) (string, error)
}

// SpeechSynthesizer renders plain text to a local audio file.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voice string) (string, error)
}

// Store is the persistence collaborator behind the scheduler and the feed's
// identity set.
type Store interface {
	ListReadyContent(ctx context.Context, contentType domain.ContentType) ([]domain.ContentRef, error)
	GetContent(ctx context.Context, id string) (domain.ContentRef, bool, error)
	SaveContent(ctx context.Context, ref domain.ContentRef) error
	LastPlayedAt(ctx context.Context, contentID string) (time.Time, bool, error)
	AppendPlaybackLog(ctx context.Context, entry domain.PlaybackLogEntry) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	ListScheduledSlots(ctx context.Context, from, to time.Time) ([]domain.ScheduledSlot, error)
	DeleteSlot(ctx context.Context, id string) error
	ListRotationSteps(ctx context.Context, patternID string) ([]domain.RotationStep, error)
	ReplaceRotationPattern(ctx context.Context, patternID string, steps []domain.RotationStep) error
	LoadSeenIDs(ctx context.Context, limit int) ([]string, error)
	SaveSeenID(ctx context.Context, id string) error
}

// IntervalDriver controls when recurring jobs execute.
type IntervalDriver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// EventSink receives one-way notifications after meaningful state
// transitions. The core never depends on whether anything listens; sinks
// swallow their own failures.
type EventSink interface {
	PhaseChanged(ctx context.Context, phase domain.CyclePhase)
	CycleCompleted(ctx context.Context, number int, result domain.CycleResult)
	QueueChanged(ctx context.Context, bufferSize int)
}

// NopSink is the default EventSink when no outbound channel is configured.
type NopSink struct{}

func (NopSink) PhaseChanged(context.Context, domain.CyclePhase)         {}
func (NopSink) CycleCompleted(context.Context, int, domain.CycleResult) {}
func (NopSink) QueueChanged(context.Context, int)                       {}
