package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the identity provider's public OAuth2 endpoints. Most
// callers use Auth on top of it.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// noRedirectClient returns a client that surfaces 302s instead of following
// them, so the authorization code can be read from Location.
func (c *SDKClient) noRedirectClient() *http.Client {
	return &http.Client{
		Transport: c.HTTPClient.Transport,
		Timeout:   c.HTTPClient.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
