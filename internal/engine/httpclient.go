package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Doer executes one HTTP exchange and returns body bytes and status code.
type Doer interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)
}

// BrowserClient wraps tls-client with Chrome TLS fingerprint.
// Requests appear as Chrome 131+ to TLS fingerprinting (JA3 hash).
type BrowserClient struct {
	client tls_client.HttpClient
}

// ClientOptions tunes BrowserClient and StdClient construction.
type ClientOptions struct {
	Timeout  time.Duration
	ProxyURL string
	// InsecureSkipVerify disables certificate checks, for local test servers.
	InsecureSkipVerify bool
}

// NewBrowserClient creates a client that impersonates Chrome 131.
func NewBrowserClient(o ClientOptions) (*BrowserClient, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	if o.ProxyURL != "" {
		opts = append(opts, tls_client.WithProxyUrl(o.ProxyURL))
	}
	if o.InsecureSkipVerify {
		opts = append(opts, tls_client.WithInsecureSkipVerify())
	}
	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &BrowserClient{client: client}, nil
}

// Do executes a request with Chrome TLS fingerprint.
func (bc *BrowserClient) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	req, err := fhttp.NewRequest(method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req = req.WithContext(ctx)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// Chrome-like header order matters for fingerprinting
	req.Header[fhttp.HeaderOrderKey] = []string{
		"accept",
		"accept-language",
		"accept-encoding",
		"referer",
		"cookie",
		"user-agent",
	}

	resp, err := bc.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("tls request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// NewDoer prefers the Chrome-fingerprint client and falls back to net/http.
func NewDoer(o ClientOptions) Doer {
	bc, err := NewBrowserClient(o)
	if err == nil {
		return bc
	}
	slog.Warn("tls-client unavailable, using net/http", slog.Any("error", err))
	return NewStdClient(o)
}
