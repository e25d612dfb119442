package engine

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewBrowserClient(t *testing.T) {
	bc, err := NewBrowserClient(ClientOptions{})
	if err != nil {
		t.Fatalf("NewBrowserClient() error = %v", err)
	}
	if bc == nil || bc.client == nil {
		t.Fatal("NewBrowserClient() returned an unusable client")
	}
}

func TestChromeHeaders(t *testing.T) {
	h := ChromeHeaders()

	for _, key := range []string{"accept", "accept-language", "user-agent"} {
		if _, ok := h[key]; !ok {
			t.Errorf("ChromeHeaders() missing key %q", key)
		}
	}
	if !strings.HasPrefix(h["accept-language"], "zh-CN") {
		t.Errorf("accept-language = %q, want zh-CN first", h["accept-language"])
	}
	if len(h["user-agent"]) < 20 {
		t.Errorf("user-agent too short: %q", h["user-agent"])
	}
}

func TestStdClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://www.zhipin.com/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("<html>职位</html>"))
		_ = gz.Close()
	}))
	defer srv.Close()

	c := NewStdClient(ClientOptions{})
	body, status, err := FetchPage(context.Background(), c, srv.URL, map[string]string{
		"Referer":         "https://www.zhipin.com/",
		"Accept-Encoding": "gzip",
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if string(body) != "<html>职位</html>" {
		t.Errorf("body = %q", body)
	}

	_, status, err = c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err != nil || status != http.StatusForbidden {
		t.Errorf("without referer: status=%d err=%v, want 403", status, err)
	}
}
