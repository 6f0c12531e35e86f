package settings

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"sitenav/internal/ports"
	"sitenav/internal/resil"
	"sitenav/internal/types"
)

const keyPrefix = "settings:"

const (
	SortByTitle   = "title"
	SortByRecency = "recency"
	ViewModeList  = "list"
	ViewModeTiles = "tiles"
	readCacheTTL  = 60 * time.Second
)

// NavSettings are a user's navigation preferences. Stored whole-value under
// one key per user.
type NavSettings struct {
	SortOrder     string `json:"sort_order"`
	ViewMode      string `json:"view_mode"`
	PinnedTenant  string `json:"pinned_tenant,omitempty"`
	ShowFavorites bool   `json:"show_favorites"`
}

func Defaults() NavSettings {
	return NavSettings{
		SortOrder:     SortByTitle,
		ViewMode:      ViewModeList,
		ShowFavorites: true,
	}
}

func (n NavSettings) Validate() error {
	if n.SortOrder != SortByTitle && n.SortOrder != SortByRecency {
		return types.Err(types.ErrInvalidRecord, nil, "unknown sort_order %q", n.SortOrder)
	}
	if n.ViewMode != ViewModeList && n.ViewMode != ViewModeTiles {
		return types.Err(types.ErrInvalidRecord, nil, "unknown view_mode %q", n.ViewMode)
	}
	return nil
}

// Service wraps the persistence primitive with validation and a small
// in-process TTL cache to trim hot-path reads.
type Service struct {
	store ports.CacheStore
	cache *resil.TTL[string, NavSettings]
}

func NewService(store ports.CacheStore) *Service {
	return &Service{
		store: store,
		cache: resil.NewTTL[string, NavSettings](),
	}
}

func key(userID string) string { return keyPrefix + userID }

// Get returns the user's settings, defaults if nothing is stored or the
// stored entry is unparsable.
func (s *Service) Get(ctx context.Context, userID string) (NavSettings, error) {
	if userID == "" {
		return NavSettings{}, types.Err(types.ErrInvalidRecord, nil, "empty user id")
	}
	if v, ok := s.cache.Get(userID); ok {
		return v, nil
	}
	raw, err := s.store.GetItem(ctx, key(userID))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return Defaults(), nil
		}
		return NavSettings{}, err
	}
	var n NavSettings
	if err := json.Unmarshal(raw, &n); err != nil {
		return Defaults(), nil
	}
	if err := n.Validate(); err != nil {
		return Defaults(), nil
	}
	s.cache.Set(userID, n, readCacheTTL)
	return n, nil
}

// Put validates and stores the settings, replacing the whole value.
func (s *Service) Put(ctx context.Context, userID string, n NavSettings) error {
	if userID == "" {
		return types.Err(types.ErrInvalidRecord, nil, "empty user id")
	}
	if err := n.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := s.store.SetItem(ctx, key(userID), raw); err != nil {
		return err
	}
	s.cache.Set(userID, n, readCacheTTL)
	return nil
}
