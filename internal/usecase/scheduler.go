package usecase

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

const rotationCursorKey = "rotation.cursor"

// ContentScheduler resolves "what plays next" by cascading through the
// override queue, time-anchored scheduled slots, and the persisted rotation
// pattern. An exhausted cascade yields (nil, nil): starvation is a defined
// outcome, not an error.
type ContentScheduler struct {
	store      ports.Store
	overrides  *OverrideQueue
	patternID  string
	slotWindow time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// SchedulerDeps wires the content scheduler.
type SchedulerDeps struct {
	Store      ports.Store
	Overrides  *OverrideQueue
	PatternID  string
	SlotWindow time.Duration
	Logger     *slog.Logger
}

// NewContentScheduler constructs the cascade resolver.
func NewContentScheduler(deps SchedulerDeps) *ContentScheduler {
	overrides := deps.Overrides
	if overrides == nil {
		overrides = NewOverrideQueue()
	}

	patternID := deps.PatternID
	if patternID == "" {
		patternID = "default"
	}

	window := deps.SlotWindow
	if window <= 0 {
		window = 60 * time.Second
	}

	return &ContentScheduler{
		store:      deps.Store,
		overrides:  overrides,
		patternID:  patternID,
		slotWindow: window,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Overrides exposes the queue for the control surface.
func (s *ContentScheduler) Overrides() *OverrideQueue {
	return s.overrides
}

// GetNextItem resolves the next item through the three-tier cascade. Errors
// are persistence failures only; they surface immediately rather than letting
// the scheduler continue on unpersisted state.
func (s *ContentScheduler) GetNextItem(ctx context.Context) (*domain.ScheduledItem, error) {
	if item, err := s.fromOverrides(ctx); err != nil || item != nil {
		return item, err
	}

	if item, err := s.fromScheduledSlots(ctx); err != nil || item != nil {
		return item, err
	}

	return s.fromRotation(ctx)
}

// MarkStarted records the playback log entry once playback actually begins.
func (s *ContentScheduler) MarkStarted(ctx context.Context, item *domain.ScheduledItem) error {
	return s.store.AppendPlaybackLog(ctx, domain.PlaybackLogEntry{
		ContentID:   item.ContentID,
		ContentType: item.ContentType,
		Title:       item.Title,
		StartedAt:   s.now().UTC(),
		Source:      item.Source,
	})
}

// fromOverrides pops override entries until one resolves to ready content.
// Unresolvable entries are consumed and skipped.
func (s *ContentScheduler) fromOverrides(ctx context.Context) (*domain.ScheduledItem, error) {
	for {
		override := s.overrides.Pop()
		if override == nil {
			return nil, nil
		}

		ref, ok, err := s.store.GetContent(ctx, override.ContentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.debug("override skipped, content not ready", "content_id", override.ContentID)
			continue
		}

		return itemFrom(ref, domain.PlayedFromOverride), nil
	}
}

// fromScheduledSlots considers the best slot inside the lookahead window:
// highest priority, ties broken by earliest start.
func (s *ContentScheduler) fromScheduledSlots(ctx context.Context) (*domain.ScheduledItem, error) {
	now := s.now()
	slots, err := s.store.ListScheduledSlots(ctx, now, now.Add(s.slotWindow))
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	best := slots[0]
	for _, slot := range slots[1:] {
		if slot.Priority > best.Priority ||
			(slot.Priority == best.Priority && slot.StartTime.Before(best.StartTime)) {
			best = slot
		}
	}

	var item *domain.ScheduledItem
	if best.ContentID != "" {
		ref, ok, err := s.store.GetContent(ctx, best.ContentID)
		if err != nil {
			return nil, err
		}
		if ok {
			item = itemFrom(ref, domain.PlayedFromScheduled)
		}
	} else if best.ContentType != "" {
		ref, err := s.pickByType(ctx, best.ContentType, domain.SelectRandom)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			item = itemFrom(*ref, domain.PlayedFromScheduled)
		}
	}

	if item == nil {
		return nil, nil
	}

	if !best.Recurring {
		if err := s.store.DeleteSlot(ctx, best.ID); err != nil {
			return nil, err
		}
	}

	return item, nil
}

// fromRotation scans the active pattern cyclically from the persisted cursor.
// The cursor is advanced and persisted only after a successful resolution, so
// a restart resumes from the same place.
func (s *ContentScheduler) fromRotation(ctx context.Context) (*domain.ScheduledItem, error) {
	steps, err := s.store.ListRotationSteps(ctx, s.patternID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, nil
	}

	cursor, err := s.loadCursor(ctx)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(steps); i++ {
		idx := (cursor + i) % len(steps)
		step := steps[idx]

		ref, err := s.resolveStep(ctx, step)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			continue
		}

		next := (idx + 1) % len(steps)
		if err := s.store.SetSetting(ctx, rotationCursorKey, strconv.Itoa(next)); err != nil {
			return nil, err
		}

		return itemFrom(*ref, domain.PlayedFromRotation), nil
	}

	return nil, nil
}

func (s *ContentScheduler) resolveStep(ctx context.Context, step domain.RotationStep) (*domain.ContentRef, error) {
	if step.ContentID != "" {
		ref, ok, err := s.store.GetContent(ctx, step.ContentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return &ref, nil
	}

	return s.pickByType(ctx, step.ContentType, step.Strategy)
}

func (s *ContentScheduler) loadCursor(ctx context.Context) (int, error) {
	raw, ok, err := s.store.GetSetting(ctx, rotationCursorKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	cursor, err := strconv.Atoi(raw)
	if err != nil || cursor < 0 {
		s.debug("ignoring malformed rotation cursor", "value", raw)
		return 0, nil
	}
	return cursor, nil
}

// pickByType selects among ready candidates of one type using the step's
// strategy. Returns nil when no candidate is ready.
func (s *ContentScheduler) pickByType(ctx context.Context, contentType domain.ContentType, strategy domain.SelectionStrategy) (*domain.ContentRef, error) {
	candidates, err := s.store.ListReadyContent(ctx, contentType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	switch strategy {
	case domain.SelectSequential:
		best := 0
		for i := 1; i < len(candidates); i++ {
			if candidates[i].CreatedAt.Before(candidates[best].CreatedAt) {
				best = i
			}
		}
		return &candidates[best], nil

	case domain.SelectLeastPlayed:
		return s.pickLeastPlayed(ctx, candidates)

	default: // random
		return &candidates[rand.Intn(len(candidates))], nil
	}
}

// pickLeastPlayed ranks never-played candidates earliest; ties keep store
// order.
func (s *ContentScheduler) pickLeastPlayed(ctx context.Context, candidates []domain.ContentRef) (*domain.ContentRef, error) {
	bestIdx := -1
	var bestPlayed bool
	var bestAt time.Time

	for i, candidate := range candidates {
		at, played, err := s.store.LastPlayedAt(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}

		if bestIdx == -1 {
			bestIdx, bestPlayed, bestAt = i, played, at
			continue
		}

		if !played && bestPlayed {
			bestIdx, bestPlayed, bestAt = i, played, at
			continue
		}
		if played == bestPlayed && played && at.Before(bestAt) {
			bestIdx, bestPlayed, bestAt = i, played, at
		}
	}

	return &candidates[bestIdx], nil
}

func itemFrom(ref domain.ContentRef, source domain.PlaySource) *domain.ScheduledItem {
	return &domain.ScheduledItem{
		ContentID:   ref.ID,
		ContentType: ref.Type,
		Title:       ref.Title,
		FilePath:    ref.FilePath,
		Source:      source,
	}
}

func (s *ContentScheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
