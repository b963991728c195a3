// Package storage implements the persistence collaborator on embedded SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

// SQLiteRepository persists ready content, the playback log, scheduled slots,
// rotation patterns, settings, and the feed's seen-id history. Every failure
// is wrapped as a domain.PersistenceError so callers can surface it
// immediately instead of continuing on unpersisted state.
type SQLiteRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Store = (*SQLiteRepository)(nil)

// Open initializes the database at path and applies the schema.
func Open(path string) (*SQLiteRepository, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &SQLiteRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS content (
	  id         TEXT PRIMARY KEY,
	  type       TEXT NOT NULL,
	  title      TEXT NOT NULL,
	  file_path  TEXT NOT NULL,
	  ready      INTEGER NOT NULL DEFAULT 1,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_type ON content(type, ready);

	CREATE TABLE IF NOT EXISTS playback_log (
	  seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	  content_id   TEXT NOT NULL,
	  content_type TEXT NOT NULL,
	  title        TEXT NOT NULL DEFAULT '',
	  started_at   INTEGER NOT NULL,
	  source       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_playback_content ON playback_log(content_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS scheduled_slots (
	  id           TEXT PRIMARY KEY,
	  content_id   TEXT NOT NULL DEFAULT '',
	  content_type TEXT NOT NULL DEFAULT '',
	  start_time   INTEGER NOT NULL,
	  end_time     INTEGER,
	  recurring    INTEGER NOT NULL DEFAULT 0,
	  priority     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_slots_start ON scheduled_slots(start_time);

	CREATE TABLE IF NOT EXISTS rotation_steps (
	  pattern_id   TEXT NOT NULL,
	  position     INTEGER NOT NULL,
	  content_type TEXT NOT NULL,
	  strategy     TEXT NOT NULL,
	  content_id   TEXT NOT NULL DEFAULT '',
	  PRIMARY KEY (pattern_id, position)
	);

	CREATE TABLE IF NOT EXISTS settings (
	  key   TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS seen_items (
	  seq INTEGER PRIMARY KEY AUTOINCREMENT,
	  id  TEXT NOT NULL UNIQUE
	);`

	if _, err := r.db.Exec(schema); err != nil {
		return &domain.PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

// ListReadyContent returns ready records of one type, oldest first.
func (r *SQLiteRepository) ListReadyContent(ctx context.Context, contentType domain.ContentType) ([]domain.ContentRef, error) {
	query := r.sb.
		Select("id", "type", "title", "file_path", "created_at").
		From("content").
		Where(sq.Eq{"type": string(contentType), "ready": 1}).
		OrderBy("created_at ASC", "id ASC")

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list content", Err: err}
	}
	defer rows.Close()

	var refs []domain.ContentRef
	for rows.Next() {
		var (
			ref     domain.ContentRef
			created int64
		)
		if err := rows.Scan(&ref.ID, &ref.Type, &ref.Title, &ref.FilePath, &created); err != nil {
			return nil, &domain.PersistenceError{Op: "scan content", Err: err}
		}
		ref.CreatedAt = time.Unix(created, 0).UTC()
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "iterate content", Err: err}
	}

	return refs, nil
}

// GetContent looks up one ready content record by id; the second return is
// false when the id is missing or the record is not ready.
func (r *SQLiteRepository) GetContent(ctx context.Context, id string) (domain.ContentRef, bool, error) {
	query := r.sb.
		Select("id", "type", "title", "file_path", "created_at").
		From("content").
		Where(sq.Eq{"id": id, "ready": 1})

	var (
		ref     domain.ContentRef
		created int64
	)
	err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&ref.ID, &ref.Type, &ref.Title, &ref.FilePath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ContentRef{}, false, nil
	}
	if err != nil {
		return domain.ContentRef{}, false, &domain.PersistenceError{Op: "get content", Err: err}
	}

	ref.CreatedAt = time.Unix(created, 0).UTC()
	return ref, true, nil
}

// SaveContent upserts a ready content record.
func (r *SQLiteRepository) SaveContent(ctx context.Context, ref domain.ContentRef) error {
	created := ref.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query := r.sb.
		Insert("content").
		Columns("id", "type", "title", "file_path", "ready", "created_at").
		Values(ref.ID, string(ref.Type), ref.Title, ref.FilePath, 1, created.Unix()).
		Suffix("ON CONFLICT(id) DO UPDATE SET type = excluded.type, title = excluded.title, file_path = excluded.file_path, ready = 1")

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "save content", Err: err}
	}
	return nil
}

// LastPlayedAt returns the most recent playback time for a content id; the
// second return is false when it has never been played.
func (r *SQLiteRepository) LastPlayedAt(ctx context.Context, contentID string) (time.Time, bool, error) {
	query := r.sb.
		Select("started_at").
		From("playback_log").
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("started_at DESC", "seq DESC").
		Limit(1)

	var started int64
	err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &domain.PersistenceError{Op: "last played", Err: err}
	}

	return time.Unix(started, 0).UTC(), true, nil
}

// AppendPlaybackLog records a dispatched item. Append-only.
func (r *SQLiteRepository) AppendPlaybackLog(ctx context.Context, entry domain.PlaybackLogEntry) error {
	started := entry.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}

	query := r.sb.
		Insert("playback_log").
		Columns("content_id", "content_type", "title", "started_at", "source").
		Values(entry.ContentID, string(entry.ContentType), entry.Title, started.Unix(), string(entry.Source))

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "append playback log", Err: err}
	}
	return nil
}

// GetSetting reads one settings value; the second return is false when the
// key is absent.
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	query := r.sb.Select("value").From("settings").Where(sq.Eq{"key": key})

	var value string
	err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &domain.PersistenceError{Op: "get setting", Err: err}
	}

	return value, true, nil
}

// SetSetting upserts one settings value.
func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	query := r.sb.
		Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value")

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "set setting", Err: err}
	}
	return nil
}

// ListScheduledSlots returns slots whose start time falls within [from, to],
// highest priority first, ties broken by earliest start.
func (r *SQLiteRepository) ListScheduledSlots(ctx context.Context, from, to time.Time) ([]domain.ScheduledSlot, error) {
	query := r.sb.
		Select("id", "content_id", "content_type", "start_time", "end_time", "recurring", "priority").
		From("scheduled_slots").
		Where(sq.GtOrEq{"start_time": from.Unix()}).
		Where(sq.LtOrEq{"start_time": to.Unix()}).
		OrderBy("priority DESC", "start_time ASC")

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list slots", Err: err}
	}
	defer rows.Close()

	var slots []domain.ScheduledSlot
	for rows.Next() {
		var (
			slot      domain.ScheduledSlot
			start     int64
			end       sql.NullInt64
			recurring int
		)
		if err := rows.Scan(&slot.ID, &slot.ContentID, &slot.ContentType, &start, &end, &recurring, &slot.Priority); err != nil {
			return nil, &domain.PersistenceError{Op: "scan slot", Err: err}
		}
		slot.StartTime = time.Unix(start, 0).UTC()
		if end.Valid {
			slot.EndTime = time.Unix(end.Int64, 0).UTC()
		}
		slot.Recurring = recurring != 0
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "iterate slots", Err: err}
	}

	return slots, nil
}

// SaveScheduledSlot upserts a slot booking.
func (r *SQLiteRepository) SaveScheduledSlot(ctx context.Context, slot domain.ScheduledSlot) error {
	var end any
	if !slot.EndTime.IsZero() {
		end = slot.EndTime.Unix()
	}

	recurring := 0
	if slot.Recurring {
		recurring = 1
	}

	query := r.sb.
		Insert("scheduled_slots").
		Columns("id", "content_id", "content_type", "start_time", "end_time", "recurring", "priority").
		Values(slot.ID, slot.ContentID, string(slot.ContentType), slot.StartTime.Unix(), end, recurring, slot.Priority).
		Suffix("ON CONFLICT(id) DO UPDATE SET content_id = excluded.content_id, content_type = excluded.content_type, start_time = excluded.start_time, end_time = excluded.end_time, recurring = excluded.recurring, priority = excluded.priority")

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "save slot", Err: err}
	}
	return nil
}

// DeleteSlot removes a used non-recurring slot.
func (r *SQLiteRepository) DeleteSlot(ctx context.Context, id string) error {
	query := r.sb.Delete("scheduled_slots").Where(sq.Eq{"id": id})
	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "delete slot", Err: err}
	}
	return nil
}

// ListRotationSteps returns a pattern's steps ordered by position.
func (r *SQLiteRepository) ListRotationSteps(ctx context.Context, patternID string) ([]domain.RotationStep, error) {
	query := r.sb.
		Select("position", "content_type", "strategy", "content_id").
		From("rotation_steps").
		Where(sq.Eq{"pattern_id": patternID}).
		OrderBy("position ASC")

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list rotation", Err: err}
	}
	defer rows.Close()

	var steps []domain.RotationStep
	for rows.Next() {
		var step domain.RotationStep
		if err := rows.Scan(&step.Position, &step.ContentType, &step.Strategy, &step.ContentID); err != nil {
			return nil, &domain.PersistenceError{Op: "scan rotation step", Err: err}
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "iterate rotation", Err: err}
	}

	return steps, nil
}

// ReplaceRotationPattern swaps a pattern's steps atomically. Rotation is
// mutated only through explicit replacement, never by the scheduler.
func (r *SQLiteRepository) ReplaceRotationPattern(ctx context.Context, patternID string, steps []domain.RotationStep) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "replace rotation", Err: err}
	}
	defer tx.Rollback()

	del := r.sb.Delete("rotation_steps").Where(sq.Eq{"pattern_id": patternID})
	if _, err := del.RunWith(tx).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "replace rotation", Err: err}
	}

	for _, step := range steps {
		ins := r.sb.
			Insert("rotation_steps").
			Columns("pattern_id", "position", "content_type", "strategy", "content_id").
			Values(patternID, step.Position, string(step.ContentType), string(step.Strategy), step.ContentID)
		if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
			return &domain.PersistenceError{Op: "replace rotation", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "replace rotation", Err: err}
	}
	return nil
}

// LoadSeenIDs returns the newest limit seen ids in their original insertion
// order, oldest first.
func (r *SQLiteRepository) LoadSeenIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := r.sb.
		Select("id").
		From("seen_items").
		OrderBy("seq DESC").
		Limit(uint64(limit))

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load seen ids", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &domain.PersistenceError{Op: "scan seen id", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "iterate seen ids", Err: err}
	}

	// Flip newest-first to insertion order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// SaveSeenID records one accepted identity hash. Duplicates are ignored.
func (r *SQLiteRepository) SaveSeenID(ctx context.Context, id string) error {
	query := r.sb.
		Insert("seen_items").
		Columns("id").
		Values(id).
		Suffix("ON CONFLICT(id) DO NOTHING")

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return &domain.PersistenceError{Op: "save seen id", Err: err}
	}
	return nil
}
