package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

type fakeSource struct {
	items []domain.SourceItem
	err   error
}

func (f *fakeSource) FetchItems(context.Context) ([]domain.SourceItem, error) {
	return f.items, f.err
}

type seenStore struct {
	ports.Store
	saved  []string
	loaded []string
}

func (s *seenStore) SaveSeenID(_ context.Context, id string) error {
	s.saved = append(s.saved, id)
	return nil
}

func (s *seenStore) LoadSeenIDs(context.Context, int) ([]string, error) {
	return s.loaded, nil
}

func item(id, title, body string) domain.SourceItem {
	return domain.SourceItem{ID: id, Title: title, Body: body, FetchedAt: time.Now()}
}

func TestFetchOnceFiltersDuplicates(t *testing.T) {
	src := &fakeSource{items: []domain.SourceItem{item("a", "one", ""), item("a", "one", ""), item("b", "two", "")}}
	feed := New(src, nil, 10, nil, nil)

	fresh := feed.FetchOnce(context.Background())
	require.Len(t, fresh, 2)

	// A second call over the same upstream content yields nothing new.
	fresh = feed.FetchOnce(context.Background())
	assert.Empty(t, fresh)
	assert.Equal(t, 2, feed.SeenCount())
}

func TestFetchOnceAppliesKeywordFilter(t *testing.T) {
	src := &fakeSource{items: []domain.SourceItem{
		item("a", "AI breakthrough", ""),
		item("b", "sports roundup", "nothing relevant"),
		item("c", "quiet day", "new AI models released"),
	}}
	feed := New(src, nil, 10, []string{"ai"}, nil)

	fresh := feed.FetchOnce(context.Background())
	require.Len(t, fresh, 2)
	assert.Equal(t, "a", fresh[0].ID)
	assert.Equal(t, "c", fresh[1].ID)
}

func TestFetchOnceNeverFails(t *testing.T) {
	src := &fakeSource{err: errors.New("network down")}
	feed := New(src, nil, 10, nil, nil)

	assert.Empty(t, feed.FetchOnce(context.Background()))
}

func TestFetchOncePersistsAcceptedIDs(t *testing.T) {
	store := &seenStore{}
	src := &fakeSource{items: []domain.SourceItem{item("a", "one", ""), item("b", "two", "")}}
	feed := New(src, store, 10, nil, nil)

	feed.FetchOnce(context.Background())
	assert.Equal(t, []string{"a", "b"}, store.saved)
}

func TestRestoreRepopulatesSet(t *testing.T) {
	store := &seenStore{loaded: []string{"a", "b"}}
	src := &fakeSource{items: []domain.SourceItem{item("a", "one", ""), item("c", "three", "")}}
	feed := New(src, store, 10, nil, nil)

	require.NoError(t, feed.Restore(context.Background()))

	fresh := feed.FetchOnce(context.Background())
	require.Len(t, fresh, 1)
	assert.Equal(t, "c", fresh[0].ID)
}

func TestDedupCapacityIsHonored(t *testing.T) {
	src := &fakeSource{items: []domain.SourceItem{
		item("a", "one", ""), item("b", "two", ""), item("c", "three", ""), item("d", "four", ""),
	}}
	feed := New(src, nil, 3, nil, nil)

	feed.FetchOnce(context.Background())
	assert.Equal(t, 3, feed.SeenCount())

	// The oldest id was evicted, so it is accepted again.
	src.items = []domain.SourceItem{item("a", "one", "")}
	fresh := feed.FetchOnce(context.Background())
	assert.Len(t, fresh, 1)
}
