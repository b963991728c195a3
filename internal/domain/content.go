package domain

import "time"

// ContentType is the closed set of playable content kinds shared by tracks,
// rotation steps, overrides, scheduled slots, and the store.
type ContentType string

const (
	ContentSong   ContentType = "song"
	ContentSpeech ContentType = "speech"
	ContentNews   ContentType = "news"
	ContentAd     ContentType = "ad"
)

// Archivable reports whether a played track of this type is eligible for
// replay. News is time-sensitive and never replayed.
func (t ContentType) Archivable() bool {
	return t != ContentNews
}

// Valid reports whether the value is one of the declared content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentSong, ContentSpeech, ContentNews, ContentAd:
		return true
	}
	return false
}

// SelectionStrategy picks among multiple ready candidates of one content type.
type SelectionStrategy string

const (
	SelectRandom      SelectionStrategy = "random"
	SelectSequential  SelectionStrategy = "sequential"
	SelectLeastPlayed SelectionStrategy = "least-recently-played"
)

// PlaySource records which scheduler tier produced a dispatched item.
type PlaySource string

const (
	PlayedFromOverride  PlaySource = "override"
	PlayedFromScheduled PlaySource = "scheduled"
	PlayedFromRotation  PlaySource = "rotation"
)

// SourceItem is one fetched piece of source material. Immutable after fetch;
// ID is the hex sha256 of the canonical link.
type SourceItem struct {
	ID          string
	Origin      string
	Title       string
	Body        string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// StoryAngle is one distinct story synthesized from a pool of source items.
// Several items covering the same event collapse into one angle.
type StoryAngle struct {
	Headline      string
	Summary       string
	Angle         string
	SourceItemIDs []string
	Importance    int // 1..10
}

// ScriptPayload is a titled script or lyrics text generated from one story.
type ScriptPayload struct {
	Title         string
	Body          string
	Style         string
	StoryHeadline string
	StoryAngle    string
	GeneratedAt   time.Time
}

// Track is one renderable audio file in the playback buffer. Owned by the
// buffer once enqueued; never mutated afterwards.
type Track struct {
	ID              string
	Kind            ContentType
	Title           string
	FilePath        string
	DurationSeconds int
	Metadata        map[string]string
	CreatedAt       time.Time
}

// RotationStep is one position in a cyclic rotation pattern. ContentID, when
// set, pins a specific record; otherwise the step resolves by type.
type RotationStep struct {
	Position    int
	ContentType ContentType
	Strategy    SelectionStrategy
	ContentID   string
}

// OverrideItem is a transient manual insertion into the dispatch order.
type OverrideItem struct {
	ID          string
	ContentID   string
	Title       string
	ContentType ContentType
	Urgent      bool
}

// ScheduledSlot is a persisted time-anchored booking. Non-recurring slots are
// deleted once used.
type ScheduledSlot struct {
	ID          string
	ContentID   string
	ContentType ContentType
	StartTime   time.Time
	EndTime     time.Time
	Recurring   bool
	Priority    int
}

// PlaybackLogEntry is the append-only record of a dispatched item, written
// when playback actually starts.
type PlaybackLogEntry struct {
	ContentID   string
	ContentType ContentType
	Title       string
	StartedAt   time.Time
	Source      PlaySource
}

// ContentRef is a ready content record as the store reports it.
type ContentRef struct {
	ID        string
	Type      ContentType
	Title     string
	FilePath  string
	CreatedAt time.Time
}

// ScheduledItem is the scheduler's answer to "what plays next".
type ScheduledItem struct {
	ContentID   string
	ContentType ContentType
	Title       string
	FilePath    string
	Source      PlaySource
}

// CycleResult summarizes one orchestrator cycle. Always produced, even for
// cycles that failed partway; counts cover the phases that did run.
type CycleResult struct {
	Scraped     int
	Synthesized int
	Scripted    int
	Rendered    int
	Errors      []string
}

// CyclePhase names the orchestrator's position inside a cycle.
type CyclePhase string

const (
	PhaseIdle         CyclePhase = "idle"
	PhaseScraping     CyclePhase = "scraping"
	PhaseSynthesizing CyclePhase = "synthesizing"
	PhaseScripting    CyclePhase = "scripting"
	PhaseRendering    CyclePhase = "rendering"
)

// Status is the control-surface snapshot of the orchestrator.
type Status struct {
	Running        bool
	CyclePhase     CyclePhase
	CycleNumber    int
	BufferSize     int
	PendingRenders int
	Totals         CycleResult
}
