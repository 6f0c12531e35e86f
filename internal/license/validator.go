package license

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"sitenav/internal/backends"
	"sitenav/internal/metrics"
	"sitenav/internal/ports"
	"sitenav/internal/resil"
	"sitenav/internal/types"
)

// CacheKeyPrefix scopes persisted license entries; the full key is the prefix
// plus the tenant identifier.
const CacheKeyPrefix = "license_status:"

const transitionEvent = "license_transition"

type checkCall struct {
	done   chan struct{}
	status types.LicenseStatus
	err    error
}

// Validator re-validates a tenant's subscription against the licensing API,
// backed by a persisted tenant-scoped cache entry. Failure policy is fail
// open: a stale cached answer, or a synthesized valid status when no cache
// exists, is always preferred over blocking navigation. The one exception is
// an underivable tenant identifier, which is a configuration problem and
// yields a fixed invalid result with no I/O at all.
type Validator struct {
	store     ports.CacheStore
	session   ports.Session
	cfg       types.LicenseConfig
	publisher ports.Publisher
	topic     string
	tenant    string

	mu       sync.Mutex
	inflight *checkCall
}

// NewValidator extracts the tenant once from the session URL. Extraction
// failure is not fatal here; the validator becomes terminal-negative.
func NewValidator(store ports.CacheStore, session ports.Session, cfg types.LicenseConfig, publisher ports.Publisher, topic string) *Validator {
	tenant, err := ExtractTenant(session.BaseURL(), cfg.TenantSuffixes)
	if err != nil {
		log.WithError(err).Warn("license validator has no tenant, failing closed")
	}
	return &Validator{
		store:     store,
		session:   session,
		cfg:       cfg,
		publisher: publisher,
		topic:     topic,
		tenant:    tenant,
	}
}

// Tenant returns the derived tenant identifier, empty when unknown.
func (v *Validator) Tenant() string { return v.tenant }

func (v *Validator) cacheKey() string { return CacheKeyPrefix + v.tenant }

// GetQuickCacheStatus reads the persisted cache with no remote I/O. A valid
// cached response is usable for the full grace window so an enterprise tenant
// is never blocked by a missed background refresh; an invalid one only for the
// short freshness window so a newly licensed tenant is re-checked promptly.
func (v *Validator) GetQuickCacheStatus(ctx context.Context) (types.LicenseStatus, bool) {
	if v.tenant == "" {
		return types.LicenseStatus{}, false
	}
	entry, ok := v.readCache(ctx)
	if !ok {
		return types.LicenseStatus{}, false
	}

	now := resil.Now()
	age := now.Sub(time.Unix(entry.CachedAt, 0))
	window := v.cfg.InvalidFresh
	if entry.Response.Valid {
		window = v.cfg.GracePeriod
	}
	if age >= window {
		metrics.CacheReadsTotal.WithLabelValues("license", "miss").Inc()
		return types.LicenseStatus{}, false
	}
	metrics.CacheReadsTotal.WithLabelValues("license", "hit").Inc()
	status := entry.Response
	status.IsCached = true
	return status, true
}

// GetLicenseStatus returns the authoritative license status, consulting the
// cache under the category-dependent freshness window unless forceRefresh is
// set. Concurrent callers coalesce on one in-flight remote validation.
func (v *Validator) GetLicenseStatus(ctx context.Context, forceRefresh bool) (types.LicenseStatus, error) {
	if v.tenant == "" {
		// Unrecoverable configuration issue, not a transient failure:
		// no network, no cache, no fail-open.
		return types.LicenseStatus{Valid: false, Reason: types.ReasonInvalidTenantID}, nil
	}

	v.mu.Lock()
	if c := v.inflight; c != nil {
		v.mu.Unlock()
		select {
		case <-c.done:
			return c.status, c.err
		case <-ctx.Done():
			return types.LicenseStatus{}, ctx.Err()
		}
	}
	v.mu.Unlock()

	if !forceRefresh {
		if entry, ok := v.readCache(ctx); ok {
			window := v.cfg.InvalidFresh
			if entry.Response.Valid {
				window = v.cfg.ValidFreshFor
			}
			age := resil.Now().Sub(time.Unix(entry.CachedAt, 0))
			if age < window {
				metrics.CacheReadsTotal.WithLabelValues("license", "hit").Inc()
				status := entry.Response
				status.IsCached = true
				return status, nil
			}
			metrics.CacheReadsTotal.WithLabelValues("license", "miss").Inc()
		}
	}

	v.mu.Lock()
	if c := v.inflight; c != nil {
		// Raced with another caller that started the check first.
		v.mu.Unlock()
		select {
		case <-c.done:
			return c.status, c.err
		case <-ctx.Done():
			return types.LicenseStatus{}, ctx.Err()
		}
	}
	call := &checkCall{done: make(chan struct{})}
	v.inflight = call
	v.mu.Unlock()

	status, err := v.validate(ctx)

	v.mu.Lock()
	call.status, call.err = status, err
	v.inflight = nil
	v.mu.Unlock()
	close(call.done)

	return status, err
}

// validate performs the remote check plus the fail-open policy. The returned
// error is always nil today; the signature keeps the policy explicit at the
// call sites should a fail-closed mode ever be configured.
func (v *Validator) validate(ctx context.Context) (types.LicenseStatus, error) {
	start := time.Now()
	status, err := resil.WithTimeout(ctx, v.cfg.Timeout, "license validation timed out",
		func(ctx context.Context) (types.LicenseStatus, error) {
			return v.queryLicense(ctx)
		})
	metrics.RemoteCallLatency.WithLabelValues("license").Observe(time.Since(start).Seconds())

	if err != nil {
		cat := resil.Classify(err)
		metrics.RemoteCallsTotal.WithLabelValues("license", string(cat)).Inc()
		log.WithError(err).WithFields(log.Fields{
			"tenant":   v.tenant,
			"category": cat,
		}).Warn("license validation failed")

		// Fail open regardless of category: a stale cached response if any
		// entry exists at all (even beyond the grace window), otherwise an
		// assumed-valid status. The fetch failure stays out of the result.
		if entry, ok := v.readCache(ctx); ok {
			metrics.FailOpenTotal.WithLabelValues("stale").Inc()
			stale := entry.Response
			stale.IsCached = true
			return stale, nil
		}
		metrics.FailOpenTotal.WithLabelValues("assume_valid").Inc()
		return types.LicenseStatus{Valid: true, IsCached: false}, nil
	}
	metrics.RemoteCallsTotal.WithLabelValues("license", "ok").Inc()

	v.persist(ctx, status)
	return status, nil
}

// queryLicense issues one GET to the licensing endpoint.
func (v *Validator) queryLicense(ctx context.Context) (types.LicenseStatus, error) {
	var zero types.LicenseStatus

	q := url.Values{}
	q.Set("tenant", v.tenant)
	q.Set("product", v.cfg.Product)
	endpoint := v.cfg.Endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, types.NewCategorized(types.CategoryValidation, 0, "create license request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.session.Doer().Do(req)
	if err != nil {
		return zero, types.NewCategorized(types.CategoryNetwork, 0, "license call", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return zero, types.NewCategorized(types.CategoryNetwork, 0, "read license response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return zero, resil.FromStatus(resp.StatusCode,
			fmt.Sprintf("license endpoint returned http %d", resp.StatusCode), nil)
	}

	var status types.LicenseStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return zero, types.NewCategorized(types.CategoryValidation, 0, "parse license response", err)
	}
	if !status.Reason.Known() {
		return zero, types.NewCategorized(types.CategoryValidation, 0,
			fmt.Sprintf("license response has unknown reason %q", status.Reason), types.ErrMalformedResult)
	}
	return status, nil
}

// readCache loads and checks the persisted entry. Mismatched or structurally
// invalid entries are removed immediately, never partially trusted. Store
// failures are swallowed and logged per the persistence contract.
func (v *Validator) readCache(ctx context.Context) (types.CachedLicenseStatus, bool) {
	var zero types.CachedLicenseStatus

	raw, err := v.store.GetItem(ctx, v.cacheKey())
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			log.WithError(err).Warn("license cache read failed")
		}
		return zero, false
	}
	decoded, err := backends.DecodeValue(string(raw))
	if err != nil {
		log.WithError(err).Warn("license cache entry undecodable, discarding")
		v.discard(ctx)
		return zero, false
	}
	var entry types.CachedLicenseStatus
	if err := json.Unmarshal(decoded, &entry); err != nil {
		log.WithError(err).Warn("license cache entry unparsable, discarding")
		v.discard(ctx)
		return zero, false
	}
	if err := entry.Validate(); err != nil {
		log.WithError(err).Warn("license cache entry invalid, discarding")
		v.discard(ctx)
		return zero, false
	}
	if entry.TenantID != v.tenant {
		log.WithFields(log.Fields{
			"cached":  entry.TenantID,
			"current": v.tenant,
		}).Warn("license cache entry is for another tenant, discarding")
		v.discard(ctx)
		return zero, false
	}
	return entry, true
}

// persist writes the new entry and publishes a transition event when validity
// flipped. Both are best-effort.
func (v *Validator) persist(ctx context.Context, status types.LicenseStatus) {
	prev, hadPrev := v.readCache(ctx)

	entry := types.CachedLicenseStatus{
		Response: status,
		CachedAt: resil.Now().Unix(),
		TenantID: v.tenant,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		log.WithError(err).Error("failed to marshal license cache entry")
		return
	}
	if err := v.store.SetItem(ctx, v.cacheKey(), []byte(backends.EncodeValue(raw))); err != nil {
		log.WithError(err).Warn("license cache write failed")
	}

	if hadPrev && prev.Response.Valid != status.Valid {
		v.publishTransition(ctx, prev.Response.Valid, status)
	}
}

// ClearCache removes the persisted entry unconditionally; best-effort.
func (v *Validator) ClearCache(ctx context.Context) {
	if v.tenant == "" {
		return
	}
	v.discard(ctx)
}

func (v *Validator) discard(ctx context.Context) {
	if err := v.store.RemoveItem(ctx, v.cacheKey()); err != nil {
		log.WithError(err).Warn("license cache remove failed")
	}
}

func (v *Validator) publishTransition(ctx context.Context, wasValid bool, now types.LicenseStatus) {
	if v.publisher == nil || v.topic == "" {
		return
	}
	b, err := json.Marshal(map[string]any{
		"event":      transitionEvent,
		"tenant":     v.tenant,
		"from_valid": wasValid,
		"to_valid":   now.Valid,
		"reason":     now.Reason,
	})
	if err != nil {
		return
	}
	if err := v.publisher.PublishRaw(ctx, v.topic, b); err != nil {
		log.WithError(err).Warn("failed to publish license transition event")
	}
}
