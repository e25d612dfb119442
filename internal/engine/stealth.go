package engine

import (
	stealth "github.com/anatolykoptev/go-stealth"
)

// RandomUserAgent returns a realistic desktop browser User-Agent.
func RandomUserAgent() string { return stealth.RandomUserAgent() }

// ChromeHeaders returns Chrome navigation headers tuned for Chinese job sites.
func ChromeHeaders() map[string]string {
	h := make(map[string]string, 8)
	for k, v := range stealth.ChromeHeaders() {
		h[k] = v
	}
	h["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	h["accept-language"] = "zh-CN,zh;q=0.9,en;q=0.8"
	if h["user-agent"] == "" {
		h["user-agent"] = RandomUserAgent()
	}
	return h
}
