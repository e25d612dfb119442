package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// StdClient is the net/http Doer used when tls-client cannot start.
type StdClient struct {
	client *http.Client
}

// NewStdClient creates an HTTP client with proper settings for web scraping.
func NewStdClient(o ClientOptions) *StdClient {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}
	if o.ProxyURL != "" {
		if pu, err := url.Parse(o.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(pu)
		}
	}
	return &StdClient{client: &http.Client{
		Timeout:   timeout,
		Jar:       jar,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}}
}

// Do sends the request and returns the decoded body.
func (c *StdClient) Do(ctx context.Context, method, rawURL string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(resp.Body)
}

// FetchPage GETs rawURL with the given Doer and counts the request.
func FetchPage(ctx context.Context, d Doer, rawURL string, headers map[string]string) ([]byte, int, error) {
	metrics.FetchRequests.Add(1)
	body, status, err := d.Do(ctx, http.MethodGet, rawURL, headers, nil)
	if err != nil {
		metrics.FetchErrors.Add(1)
	}
	return body, status, err
}
