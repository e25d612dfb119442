package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/anatolykoptev/go-kit/strutil"
)

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe = regexp.MustCompile(`\s+`)
	fenceRe    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// HTMLToText converts an HTML fragment to Markdown-flavoured text,
// falling back to tag stripping when conversion fails.
func HTMLToText(fragment string) string {
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return CleanHTML(fragment)
	}
	return strings.TrimSpace(md)
}

// CollapseSpaces replaces runs of whitespace with a single space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for CJK.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// StripFences removes a surrounding Markdown code fence from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Dedupe returns items with blanks removed and duplicates dropped, keeping order.
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
