package types

import (
	"fmt"
	"time"
)

// SiteID and WebID are distinct string types on purpose: a site identifier and
// a web identifier must never be interchanged silently.
type SiteID string

type WebID string

const UntitledSiteTitle = "Untitled site"

// SiteRecord is an immutable row of the site directory. Records are built
// fresh on every successful fetch and replaced wholesale; never mutated.
type SiteRecord struct {
	ID                SiteID `json:"id" dynamodbav:"id"`
	Title             string `json:"title" dynamodbav:"title"`
	URL               string `json:"url" dynamodbav:"url"`
	Description       string `json:"description,omitempty" dynamodbav:"description"`
	WebID             WebID  `json:"web_id,omitempty" dynamodbav:"web_id"`
	SiteCollectionURL string `json:"site_collection_url,omitempty" dynamodbav:"site_collection_url"`
}

func (r SiteRecord) Validate() error {
	if r.ID == "" {
		return Err(ErrInvalidRecord, nil, "site record has empty id")
	}
	if r.URL == "" {
		return Err(ErrInvalidRecord, nil, "site record %q has empty url", r.ID)
	}
	return nil
}

// ValidateRecords checks every record; the caller drops the whole set on the
// first failure rather than repairing it partially.
func ValidateRecords(rs []SiteRecord) error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return Err(ErrInvalidRecord, err, "record %d of %d", i, len(rs))
		}
	}
	return nil
}

// LicenseReason explains an invalid license result.
type LicenseReason string

const (
	ReasonNone                 LicenseReason = ""
	ReasonTenantNotRegistered  LicenseReason = "tenant_not_registered"
	ReasonSubscriptionExpired  LicenseReason = "subscription_expired"
	ReasonSubscriptionCanceled LicenseReason = "subscription_canceled"
	ReasonSubscriptionInactive LicenseReason = "subscription_inactive"
	ReasonMissingTenantID      LicenseReason = "missing_tenant_id"
	ReasonInvalidTenantID      LicenseReason = "invalid_tenant_id"
	ReasonRateLimitExceeded    LicenseReason = "rate_limit_exceeded"
	ReasonServerError          LicenseReason = "server_error"
)

var knownReasons = map[LicenseReason]struct{}{
	ReasonNone: {}, ReasonTenantNotRegistered: {}, ReasonSubscriptionExpired: {},
	ReasonSubscriptionCanceled: {}, ReasonSubscriptionInactive: {},
	ReasonMissingTenantID: {}, ReasonInvalidTenantID: {},
	ReasonRateLimitExceeded: {}, ReasonServerError: {},
}

func (r LicenseReason) Known() bool {
	_, ok := knownReasons[r]
	return ok
}

// LicenseStatus is the licensing API's answer for a tenant, or a locally
// synthesized status on fail-open.
type LicenseStatus struct {
	Valid     bool          `json:"valid" dynamodbav:"valid"`
	Tier      string        `json:"tier,omitempty" dynamodbav:"tier"`
	Features  []string      `json:"features,omitempty" dynamodbav:"features"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty" dynamodbav:"expires_at"`
	Reason    LicenseReason `json:"reason,omitempty" dynamodbav:"reason"`
	// IsCached is set by the validator on responses served from cache; it is
	// false on a synthesized fail-open status.
	IsCached bool `json:"is_cached,omitempty" dynamodbav:"-"`
}

// CachedLicenseStatus is the persisted cache entry, scoped to one tenant.
// An entry whose TenantID does not match the current session's tenant is
// discarded immediately, never partially trusted.
type CachedLicenseStatus struct {
	Response LicenseStatus `json:"response" dynamodbav:"response"`
	CachedAt int64         `json:"cached_at" dynamodbav:"cached_at"`
	TenantID string        `json:"tenant_id" dynamodbav:"tenant_id"`
}

func (c CachedLicenseStatus) Validate() error {
	if c.TenantID == "" {
		return Err(ErrInvalidRecord, nil, "cached license status has empty tenant_id")
	}
	if c.CachedAt <= 0 {
		return Err(ErrInvalidRecord, nil, "cached license status has invalid cached_at %d", c.CachedAt)
	}
	if !c.Response.Reason.Known() {
		return Err(ErrInvalidRecord, nil, "cached license status has unknown reason %q", c.Response.Reason)
	}
	return nil
}

func (c CachedLicenseStatus) String() string {
	return fmt.Sprintf("tenant=%s valid=%t cached_at=%d", c.TenantID, c.Response.Valid, c.CachedAt)
}
