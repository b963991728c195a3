// Package buffer holds the playback queue of freshly produced tracks and the
// replay archive behind it.
package buffer

import (
	"sync"

	"NewsRadio/internal/domain"
)

// Queue is the FIFO of not-yet-played tracks backed by a cyclic archive of
// previously played, replay-eligible tracks. Once at least one archivable
// track has been produced, Dequeue never runs dry: an empty FIFO falls back
// to a fixed cyclic walk over the archive.
//
// The orchestrator writes, the playback consumer reads; a mutex keeps the two
// sides exclusive. Throughput is a few tracks per hour, contention is not a
// concern.
type Queue struct {
	mu       sync.Mutex
	fresh    []domain.Track
	archive  []domain.Track
	position int // next archive index to replay, modulo len(archive)
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a track to the tail of the fresh buffer.
func (q *Queue) Enqueue(track domain.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fresh = append(q.fresh, track)
}

// InsertAt places a track at index pos of the fresh buffer, clamped to the
// current length. The side-task uses this to interleave speech near the head
// instead of appending behind every queued song.
func (q *Queue) InsertAt(pos int, track domain.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if pos > len(q.fresh) {
		pos = len(q.fresh)
	}

	q.fresh = append(q.fresh, domain.Track{})
	copy(q.fresh[pos+1:], q.fresh[pos:])
	q.fresh[pos] = track
}

// Dequeue pops the fresh head; an archivable track is appended to the archive
// tail as it leaves. With the fresh buffer empty it replays the archive at
// position mod len(archive) and advances the walk; appends made mid-walk
// extend the modulus space without skipping anything. Returns nil when both
// are empty.
func (q *Queue) Dequeue() *domain.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.fresh) > 0 {
		track := q.fresh[0]
		q.fresh = q.fresh[1:]
		if track.Kind.Archivable() {
			q.archive = append(q.archive, track)
		}
		return &track
	}

	if len(q.archive) > 0 {
		track := q.archive[q.position%len(q.archive)]
		q.position++
		return &track
	}

	return nil
}

// Peek returns a copy of the fresh buffer in order.
func (q *Queue) Peek() []domain.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Track, len(q.fresh))
	copy(out, q.fresh)
	return out
}

// Len returns the number of fresh (not yet played) tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fresh)
}

// ArchiveLen returns the number of replay-eligible tracks.
func (q *Queue) ArchiveLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.archive)
}
