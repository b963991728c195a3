package domain

import "fmt"

// SourceFetchError marks a single source failing to fetch. Retried then
// skipped; never fatal to the aggregate fetch.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch source %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// SynthesisError aborts the current cycle's downstream phases. Future cycles
// are unaffected.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize stories: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ScriptGenerationError marks one story failing script generation. Collected
// per cycle; does not abort sibling stories.
type ScriptGenerationError struct {
	Headline string
	Err      error
}

func (e *ScriptGenerationError) Error() string {
	return fmt.Sprintf("generate script for %q: %v", e.Headline, e.Err)
}

func (e *ScriptGenerationError) Unwrap() error { return e.Err }

// RenderError marks one track failing to render, download, or validate.
// Collected per cycle; the originating script is re-queued once.
type RenderError struct {
	Title string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Title, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistenceError surfaces immediately: the scheduler must never continue on
// an unpersisted cursor or log write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
