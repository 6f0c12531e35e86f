package favorites

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitenav/internal/backends/memory"
	"sitenav/internal/types"
)

func newService() *Service {
	return NewService(memory.NewCacheStore())
}

func fav(id string) Favorite {
	return Favorite{
		SiteID: types.SiteID(id),
		Title:  "Site " + id,
		URL:    "https://contoso.sharepoint.com/sites/" + id,
	}
}

func TestListMissingUserIsEmpty(t *testing.T) {
	s := newService()
	favs, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestListRejectsEmptyUser(t *testing.T) {
	s := newService()
	_, err := s.List(context.Background(), "")
	require.Error(t, err)
}

func TestAddAndList(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.Add(ctx, "user-1", fav("a"))
	require.NoError(t, err)
	out, err := s.Add(ctx, "user-1", fav("b"))
	require.NoError(t, err)
	require.Len(t, out, 2)

	favs, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, out, favs)

	// Lists are per user.
	other, err := s.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAddDedupesBySiteID(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.Add(ctx, "user-1", fav("a"))
	require.NoError(t, err)

	renamed := fav("a")
	renamed.Title = "Renamed"
	out, err := s.Add(ctx, "user-1", renamed)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Renamed", out[0].Title)
}

func TestAddValidates(t *testing.T) {
	s := newService()
	_, err := s.Add(context.Background(), "user-1", Favorite{Title: "no id"})
	require.Error(t, err)
	_, err = s.Add(context.Background(), "user-1", Favorite{SiteID: "a"})
	require.Error(t, err)
}

func TestAddEnforcesCap(t *testing.T) {
	s := newService()
	ctx := context.Background()

	for i := 0; i < MaxFavorites; i++ {
		_, err := s.Add(ctx, "user-1", fav(fmt.Sprintf("s%03d", i)))
		require.NoError(t, err)
	}
	_, err := s.Add(ctx, "user-1", fav("one-too-many"))
	require.Error(t, err)

	// Replacing an existing entry still works at the cap.
	existing := fav("s000")
	existing.Title = "still here"
	out, err := s.Add(ctx, "user-1", existing)
	require.NoError(t, err)
	assert.Len(t, out, MaxFavorites)
}

func TestRemove(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.Add(ctx, "user-1", fav("a"))
	require.NoError(t, err)
	_, err = s.Add(ctx, "user-1", fav("b"))
	require.NoError(t, err)

	out, err := s.Remove(ctx, "user-1", "a")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.SiteID("b"), out[0].SiteID)

	// Removing an absent id is a no-op, not an error.
	out, err = s.Remove(ctx, "user-1", "ghost")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestUnparsableEntryReadsAsEmpty(t *testing.T) {
	store := memory.NewCacheStore()
	require.NoError(t, store.SetItem(context.Background(), "favorites:user-1", []byte("{broken")))
	s := NewService(store)

	favs, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, favs)
}
