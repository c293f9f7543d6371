package provider

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts for vendor HTTP calls. Per-call deadlines come from the context.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// HTTPClient is shared by all vendor clients so connections are pooled.
var HTTPClient = NewHTTPClient(DefaultTimeout)

// NewHTTPClient creates a client with the given overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ClientOr returns c, or the shared client when c is nil.
func ClientOr(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return HTTPClient
}
