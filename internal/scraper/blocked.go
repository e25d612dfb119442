package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

var blockedBodyIndicators = []string{"验证码", "captcha", "not a robot", "blocked", "访问受限", "请稍后再试"}

// minPageRunes is the smallest body that can hold a real job page.
const minPageRunes = 1000

// IsBlockedResponse reports whether an HTTP response looks like an anti-bot wall.
func IsBlockedResponse(status int, body []byte) bool {
	switch status {
	case 403, 429, 503:
		return true
	}
	text := strings.ToLower(string(body))
	for _, ind := range blockedBodyIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) < minPageRunes
}

var (
	blockedTitleIndicators = []string{"验证", "captcha", "登录", "login", "请稍候"}
	blockedPageIndicators  = []string{"验证码", "人机验证", "请登录", "访问受限", "机器人"}
)

// CheckBlockedPage inspects a rendered page title and body text.
func CheckBlockedPage(title, bodyText string) bool {
	t := strings.ToLower(title)
	for _, ind := range blockedTitleIndicators {
		if strings.Contains(t, ind) {
			return true
		}
	}
	for _, ind := range blockedPageIndicators {
		if strings.Contains(bodyText, ind) {
			return true
		}
	}
	return false
}

var antiRobotIndicators = []string{"请输入验证码", "人机验证", "安全验证", "not a robot", "captcha", "访问过于频繁", "请稍后再试"}

// VisibleText returns the rendered title and body text of a page, without
// markup, scripts or styles.
func VisibleText(html string) (title, body string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	doc.Find("script, style, noscript, template").Remove()
	return engine.CollapseSpaces(doc.Find("title").First().Text()),
		engine.CollapseSpaces(doc.Find("body").Text())
}

// HasAntiRobot reports whether the visible text of a page shows a
// verification challenge. Markup such as <meta name="robots"> is ignored.
func HasAntiRobot(html string) bool {
	title, body := VisibleText(html)
	lower := strings.ToLower(title + "\n" + body)
	for _, ind := range antiRobotIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
