package types

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	UserIDHdrName = "x-user-id"

	DefaultRowLimit        = 500
	DefaultRemoteTimeout   = 30 * time.Second
	DefaultSiteCacheTTL    = 5 * time.Minute
	DefaultValidFreshFor   = 24 * time.Hour
	DefaultInvalidFresh    = time.Hour
	DefaultLicenseGrace    = 7 * 24 * time.Hour
	DefaultLicenseProduct  = "sitenav"
	DefaultLicenseEndpoint = "https://licensing.sitenav.io/api/license/validate"
)

// DefaultSelectProperties are the search managed properties the row mapper
// consumes. Order is not significant; the response carries key/value cells.
var DefaultSelectProperties = []string{
	"Title", "Path", "Description", "SiteId", "WebId", "SiteCollectionUrl",
}

// DefaultTenantSuffixes are the recognized platform domain suffixes. The
// tenant identifier is the first DNS label in front of one of these.
var DefaultTenantSuffixes = []string{
	"sharepoint.com", "sharepoint.cn", "sharepoint.de", "sharepoint-mil.us", "sharepoint.us",
}

// SearchConfig tunes the site directory query. QueryText selects the record
// class; RowLimit bounds the result set; SelectProperties lists the cells the
// mapper reads.
type SearchConfig struct {
	QueryText        string        `yaml:"query_text" json:"query_text"`
	RowLimit         int           `yaml:"row_limit" json:"row_limit"`
	SelectProperties []string      `yaml:"select_properties" json:"select_properties"`
	TrimDuplicates   bool          `yaml:"trim_duplicates" json:"trim_duplicates"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	CacheTTL         time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// LicenseConfig tunes license validation. The asymmetric freshness windows are
// deliberate: a cached valid answer is cheap to over-trust, a cached invalid
// answer blocks a possibly just-licensed tenant and must be re-checked soon.
type LicenseConfig struct {
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	Product        string        `yaml:"product" json:"product"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ValidFreshFor  time.Duration `yaml:"valid_fresh_for" json:"valid_fresh_for"`
	InvalidFresh   time.Duration `yaml:"invalid_fresh_for" json:"invalid_fresh_for"`
	GracePeriod    time.Duration `yaml:"grace_period" json:"grace_period"`
	TenantSuffixes []string      `yaml:"tenant_suffixes" json:"tenant_suffixes"`
}

// AppConfig is the file-loadable service configuration. Backend and transport
// credentials stay in the environment (see internal/backends); this file only
// carries tuning that is awkward as env vars.
type AppConfig struct {
	Port    int           `yaml:"port" json:"port"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	License LicenseConfig `yaml:"license" json:"license"`
}

func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return Err(ErrInvalidConfig, nil, "port %d out of range", c.Port)
	}
	if c.Search.RowLimit <= 0 {
		return Err(ErrInvalidConfig, nil, "search.row_limit must be positive")
	}
	if c.Search.Timeout <= 0 || c.License.Timeout <= 0 {
		return Err(ErrInvalidConfig, nil, "timeouts must be positive")
	}
	if c.License.Endpoint == "" {
		return Err(ErrInvalidConfig, nil, "license.endpoint is required")
	}
	if c.License.InvalidFresh > c.License.ValidFreshFor {
		return Err(ErrInvalidConfig, nil, "license.invalid_fresh_for must not exceed valid_fresh_for")
	}
	if c.License.GracePeriod < c.License.ValidFreshFor {
		return Err(ErrInvalidConfig, nil, "license.grace_period must cover the valid freshness window")
	}
	return nil
}

// ApplyDefaults fills zero-valued tuning fields in place.
func (c *AppConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Search.QueryText == "" {
		c.Search.QueryText = "contentclass:STS_Site"
	}
	if c.Search.RowLimit == 0 {
		c.Search.RowLimit = DefaultRowLimit
	}
	if len(c.Search.SelectProperties) == 0 {
		c.Search.SelectProperties = append([]string(nil), DefaultSelectProperties...)
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = DefaultRemoteTimeout
	}
	if c.Search.CacheTTL == 0 {
		c.Search.CacheTTL = DefaultSiteCacheTTL
	}
	if c.License.Endpoint == "" {
		c.License.Endpoint = DefaultLicenseEndpoint
	}
	if c.License.Product == "" {
		c.License.Product = DefaultLicenseProduct
	}
	if c.License.Timeout == 0 {
		c.License.Timeout = DefaultRemoteTimeout
	}
	if c.License.ValidFreshFor == 0 {
		c.License.ValidFreshFor = DefaultValidFreshFor
	}
	if c.License.InvalidFresh == 0 {
		c.License.InvalidFresh = DefaultInvalidFresh
	}
	if c.License.GracePeriod == 0 {
		c.License.GracePeriod = DefaultLicenseGrace
	}
	if len(c.License.TenantSuffixes) == 0 {
		c.License.TenantSuffixes = append([]string(nil), DefaultTenantSuffixes...)
	}
}

// LoadConfig reads a YAML config file, expanding ${ENV} references before
// decoding. A missing path yields pure defaults.
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, Err(ErrInvalidConfig, err, "parse config file %s", path)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
