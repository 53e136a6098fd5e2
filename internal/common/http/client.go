// internal/common/http/client.go
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client is a pooled HTTP client shared by all calls to one upstream.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: newPooledClient(timeout)}
}

// CredentialsConfig is the client-credentials grant used for service auth.
type CredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewClientWithCredentials returns a Client whose requests carry a bearer token
// obtained (and refreshed) through the OAuth2 client-credentials flow.
func NewClientWithCredentials(ctx context.Context, timeout time.Duration, creds CredentialsConfig) *Client {
	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
	}

	base := newPooledClient(timeout)
	authed := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	authed.Timeout = timeout
	return &Client{httpClient: authed}
}

func newPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}

// HTTPClient exposes the underlying *http.Client for SDKs that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
