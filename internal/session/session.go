package session

import (
	"net/http"
	"time"
)

// Static is a ports.Session with a fixed base URL and bearer token, suitable
// for service-to-service use. The token is attached by a wrapping transport
// so callers never handle credentials.
type Static struct {
	baseURL string
	client  *http.Client
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		clone := req.Clone(req.Context())
		clone.Header.Set("Authorization", "Bearer "+t.token)
		return t.next.RoundTrip(clone)
	}
	return t.next.RoundTrip(req)
}

// NewStatic builds a session around baseURL. The client carries no overall
// timeout: deadlines are the deadline guard's job, per call.
func NewStatic(baseURL, token string) *Static {
	return &Static{
		baseURL: baseURL,
		client: &http.Client{
			Transport: &bearerTransport{
				token: token,
				next: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			},
		},
	}
}

func (s *Static) BaseURL() string    { return s.baseURL }
func (s *Static) Doer() *http.Client { return s.client }
