package ports

import "net/http"

// Session exposes the current tenant's context to the data-access layer: the
// absolute base URL of the site the user is working in, and an HTTP doer with
// bearer-style auth already attached. The core never manages credentials.
type Session interface {
	// BaseURL returns the absolute URL of the current site, e.g.
	// "https://contoso.sharepoint.com/sites/hub".
	BaseURL() string

	// Doer returns the authenticated HTTP client for remote calls.
	Doer() *http.Client
}
