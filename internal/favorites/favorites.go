package favorites

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"sitenav/internal/ports"
	"sitenav/internal/types"
)

const (
	keyPrefix    = "favorites:"
	MaxFavorites = 100
)

// Favorite is one pinned site in a user's list.
type Favorite struct {
	SiteID types.SiteID `json:"site_id"`
	Title  string       `json:"title"`
	URL    string       `json:"url"`
}

func (f Favorite) Validate() error {
	if f.SiteID == "" {
		return types.Err(types.ErrInvalidRecord, nil, "favorite has empty site_id")
	}
	if f.URL == "" {
		return types.Err(types.ErrInvalidRecord, nil, "favorite %q has empty url", f.SiteID)
	}
	return nil
}

// Service is a validated read-modify-write wrapper over the persistence
// primitive. No caching, no concurrency concerns: each user's list is
// single-writer-in-practice and written as a whole value.
type Service struct {
	store ports.CacheStore
}

func NewService(store ports.CacheStore) *Service {
	return &Service{store: store}
}

func key(userID string) string { return keyPrefix + userID }

// List returns the user's favorites; a missing or unparsable entry reads as
// an empty list.
func (s *Service) List(ctx context.Context, userID string) ([]Favorite, error) {
	if userID == "" {
		return nil, types.Err(types.ErrInvalidRecord, nil, "empty user id")
	}
	raw, err := s.store.GetItem(ctx, key(userID))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return []Favorite{}, nil
		}
		return nil, err
	}
	var favs []Favorite
	if err := json.Unmarshal(raw, &favs); err != nil {
		return []Favorite{}, nil
	}
	return favs, nil
}

// Add appends a favorite, deduped by SiteID (re-adding replaces the stored
// title/url) and capped at MaxFavorites.
func (s *Service) Add(ctx context.Context, userID string, f Favorite) ([]Favorite, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	favs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range favs {
		if favs[i].SiteID == f.SiteID {
			favs[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		if len(favs) >= MaxFavorites {
			return nil, types.Err(types.ErrInvalidRecord, nil, "favorites limit of %d reached", MaxFavorites)
		}
		favs = append(favs, f)
	}
	if err := s.write(ctx, userID, favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// Remove drops the favorite with the given SiteID; removing an absent id is
// not an error.
func (s *Service) Remove(ctx context.Context, userID string, id types.SiteID) ([]Favorite, error) {
	favs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := favs[:0]
	for _, f := range favs {
		if f.SiteID != id {
			out = append(out, f)
		}
	}
	if err := s.write(ctx, userID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) write(ctx context.Context, userID string, favs []Favorite) error {
	raw, err := json.Marshal(favs)
	if err != nil {
		return err
	}
	return s.store.SetItem(ctx, key(userID), raw)
}
