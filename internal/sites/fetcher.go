package sites

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"sitenav/internal/metrics"
	"sitenav/internal/ports"
	"sitenav/internal/resil"
	"sitenav/internal/types"
)

// User-facing failure messages by category. Permission and Network problems
// get actionable wording; everything else keeps the original error text for
// diagnostics.
const (
	MsgPermission = "You don't have access to the site directory. Check your permissions."
	MsgNetwork    = "The site directory could not be reached. Check your connection."
	MsgGeneric    = "The site directory request failed"
)

const anomalyTopicEvent = "mapping_anomaly"

// Navigator opens a site URL for the user. Pure delegation, no resilience
// logic on this path.
type Navigator interface {
	Navigate(url string, openInNewTab bool) error
}

type fetchCall struct {
	done  chan struct{}
	sites []types.SiteRecord
	err   error
}

// Fetcher is the site directory fetcher: one instance per session, owning a
// single in-memory cache entry. Concurrent callers coalesce on one in-flight
// remote fetch; the cache is replaced wholesale on every successful fetch.
type Fetcher struct {
	session   ports.Session
	cfg       types.SearchConfig
	navigator Navigator
	publisher ports.Publisher
	topic     string

	mu       sync.Mutex
	cache    resil.Entry[[]types.SiteRecord]
	inflight *fetchCall
}

// NewFetcher wires a fetcher. navigator and publisher may be nil; navigation
// then fails explicitly and anomaly events are not published.
func NewFetcher(session ports.Session, cfg types.SearchConfig, navigator Navigator, publisher ports.Publisher, topic string) *Fetcher {
	return &Fetcher{
		session:   session,
		cfg:       cfg,
		navigator: navigator,
		publisher: publisher,
		topic:     topic,
	}
}

// GetSites returns the directory of sites the user can access. A cache entry
// younger than the configured TTL that passes record validation is returned
// with no I/O. Otherwise one remote query runs under the deadline guard; on a
// Network-classified failure an existing cache entry of any age is substituted
// when it validates. Permission, Validation and Unknown failures always
// propagate.
func (f *Fetcher) GetSites(ctx context.Context) ([]types.SiteRecord, error) {
	f.mu.Lock()
	if c := f.inflight; c != nil {
		f.mu.Unlock()
		select {
		case <-c.done:
			return cloneRecords(c.sites), c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !f.cache.IsZero() && f.cache.FreshWithin(resil.Now(), f.cfg.CacheTTL) {
		if err := types.ValidateRecords(f.cache.Value); err != nil {
			// A cache entry failing validation at read time is treated as
			// absent and cleared before falling through to a fresh fetch.
			log.WithError(err).Warn("dropping invalid site cache entry")
			metrics.CacheReadsTotal.WithLabelValues("sites", "invalid").Inc()
			f.cache = resil.Entry[[]types.SiteRecord]{}
		} else {
			out := cloneRecords(f.cache.Value)
			f.mu.Unlock()
			metrics.CacheReadsTotal.WithLabelValues("sites", "hit").Inc()
			return out, nil
		}
	} else {
		metrics.CacheReadsTotal.WithLabelValues("sites", "miss").Inc()
	}

	call := &fetchCall{done: make(chan struct{})}
	f.inflight = call
	f.mu.Unlock()

	sites, fromStale, err := f.fetch(ctx)

	f.mu.Lock()
	call.sites, call.err = sites, err
	// A stale fallback read must not re-stamp the cache as fresh.
	if err == nil && !fromStale {
		f.cache = resil.NewEntry(cloneRecords(sites))
	}
	f.inflight = nil
	f.mu.Unlock()
	close(call.done)

	return sites, err
}

// fetch performs the remote query plus the failure policy. It never touches
// f.cache directly except to read a stale fallback copy.
func (f *Fetcher) fetch(ctx context.Context) (_ []types.SiteRecord, fromStale bool, _ error) {
	start := time.Now()
	rows, err := resil.WithTimeout(ctx, f.cfg.Timeout, "site search timed out",
		func(ctx context.Context) ([]map[string]string, error) {
			return querySites(ctx, f.session, f.cfg)
		})
	metrics.RemoteCallLatency.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		cat := resil.Classify(err)
		metrics.RemoteCallsTotal.WithLabelValues("search", string(cat)).Inc()
		log.WithError(err).WithField("category", cat).Warn("site search failed")

		if cat == types.CategoryNetwork {
			if stale, ok := f.staleCache(); ok {
				metrics.CacheReadsTotal.WithLabelValues("sites", "stale_hit").Inc()
				log.WithField("count", len(stale)).Info("serving stale site cache after network failure")
				return stale, true, nil
			}
			return nil, false, types.NewCategorized(types.CategoryNetwork, 0, MsgNetwork, err)
		}
		switch cat {
		case types.CategoryPermission:
			return nil, false, types.NewCategorized(types.CategoryPermission, 0, MsgPermission, err)
		case types.CategoryValidation:
			return nil, false, types.NewCategorized(types.CategoryValidation, 0, MsgGeneric, err)
		default:
			return nil, false, types.NewCategorized(types.CategoryUnknown, 0, MsgGeneric, err)
		}
	}
	metrics.RemoteCallsTotal.WithLabelValues("search", "ok").Inc()

	mapped := mapRows(rows)
	if len(rows) > 0 && len(mapped) == 0 {
		// Every row was dropped: likely API contract drift, not a failure.
		// The empty result is still returned.
		log.WithField("raw", len(rows)).Error("all search rows dropped during mapping")
		metrics.MappingAnomaliesTotal.Inc()
		f.publishAnomaly(ctx, len(rows))
	}
	return mapped, false, nil
}

// staleCache returns a validated copy of the cache entry regardless of age.
func (f *Fetcher) staleCache() ([]types.SiteRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache.IsZero() {
		return nil, false
	}
	if err := types.ValidateRecords(f.cache.Value); err != nil {
		log.WithError(err).Warn("stale site cache failed validation, dropping")
		f.cache = resil.Entry[[]types.SiteRecord]{}
		return nil, false
	}
	return cloneRecords(f.cache.Value), true
}

// ClearCache drops the cache unconditionally; the next GetSites call is
// guaranteed to perform a network fetch.
func (f *Fetcher) ClearCache() {
	f.mu.Lock()
	f.cache = resil.Entry[[]types.SiteRecord]{}
	f.mu.Unlock()
}

// NavigateToSite delegates to the navigator collaborator.
func (f *Fetcher) NavigateToSite(url string, openInNewTab bool) error {
	if f.navigator == nil {
		return types.Err(types.ErrInvalidConfig, nil, "no navigator configured")
	}
	return f.navigator.Navigate(url, openInNewTab)
}

func (f *Fetcher) publishAnomaly(ctx context.Context, rawCount int) {
	if f.publisher == nil || f.topic == "" {
		return
	}
	b, err := json.Marshal(map[string]any{
		"event":     anomalyTopicEvent,
		"raw_rows":  rawCount,
		"tenant_of": f.session.BaseURL(),
	})
	if err != nil {
		return
	}
	if err := f.publisher.PublishRaw(ctx, f.topic, b); err != nil {
		log.WithError(err).Warn("failed to publish mapping anomaly event")
	}
}

func cloneRecords(rs []types.SiteRecord) []types.SiteRecord {
	if rs == nil {
		return nil
	}
	out := make([]types.SiteRecord, len(rs))
	copy(out, rs)
	return out
}
