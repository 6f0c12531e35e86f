package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitenav/internal/backends/memory"
	"sitenav/internal/resil"
)

func TestGetMissingUserReturnsDefaults(t *testing.T) {
	s := NewService(memory.NewCacheStore())
	got, err := s.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	s := NewService(memory.NewCacheStore())
	ctx := context.Background()

	want := NavSettings{
		SortOrder:     SortByRecency,
		ViewMode:      ViewModeTiles,
		PinnedTenant:  "contoso",
		ShowFavorites: false,
	}
	require.NoError(t, s.Put(ctx, "user-1", want))

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Other users are unaffected.
	other, err := s.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), other)
}

func TestPutRejectsUnknownValues(t *testing.T) {
	s := NewService(memory.NewCacheStore())
	ctx := context.Background()

	bad := Defaults()
	bad.SortOrder = "by-vibes"
	require.Error(t, s.Put(ctx, "user-1", bad))

	bad = Defaults()
	bad.ViewMode = "carousel"
	require.Error(t, s.Put(ctx, "user-1", bad))

	require.Error(t, s.Put(ctx, "", Defaults()))
}

func TestInvalidStoredEntryReadsAsDefaults(t *testing.T) {
	store := memory.NewCacheStore()
	ctx := context.Background()
	require.NoError(t, store.SetItem(ctx, "settings:user-1", []byte(`{"sort_order":"by-vibes","view_mode":"list"}`)))
	require.NoError(t, store.SetItem(ctx, "settings:user-2", []byte("{broken")))
	s := NewService(store)

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)

	got, err = s.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestReadCacheExpires(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	resil.SetTimeNowFn(func() time.Time { return now })
	defer resil.RestoreTimeNow()

	store := memory.NewCacheStore()
	s := NewService(store)
	ctx := context.Background()

	want := Defaults()
	want.SortOrder = SortByRecency
	require.NoError(t, s.Put(ctx, "user-1", want))

	// A write behind the service's back is masked while the read cache entry
	// is fresh, and visible once it expires.
	raw := []byte(`{"sort_order":"title","view_mode":"tiles","show_favorites":true}`)
	require.NoError(t, store.SetItem(ctx, "settings:user-1", raw))

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	now = now.Add(2 * time.Minute)
	got, err = s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, ViewModeTiles, got.ViewMode)
}
