package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSite(t *testing.T) {
	tests := []struct {
		url  string
		want Site
		ok   bool
	}{
		{"https://www.zhipin.com/job_detail/abc.html", SiteBoss, true},
		{"https://www.lagou.com/jobs/123.html", SiteLagou, true},
		{"https://jobs.zhaopin.com/1.htm", SiteZhilian, true},
		{"https://www.liepin.com/job/1.shtml", SiteLiepin, true},
		{"https://jobs.51job.com/beijing/1.html", Site51Job, true},
		{"https://example.com/job/1", "", false},
		{"not a url", "", false},
		{"https://notzhipin.com/x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := DetectSite(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShortID(t *testing.T) {
	id := ShortID("https://www.zhipin.com/job_detail/1.html")
	assert.Len(t, id, 8)
	assert.Equal(t, id, ShortID("https://www.zhipin.com/job_detail/1.html"))
	assert.NotEqual(t, id, ShortID("https://www.zhipin.com/job_detail/2.html"))
}

func TestExtractSkills(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"boundaries", "熟悉Go语言和Redis，了解Google内部工具", []string{"Go", "Redis"}},
		{"java vs javascript", "精通JavaScript", []string{"JavaScript"}},
		{"case insensitive", "python / DJANGO / mysql", []string{"Python", "Django", "MySQL"}},
		{"symbols", "C++ 与 C# 开发", []string{"C++", "C#"}},
		{"chinese", "有机器学习和大数据经验", []string{"机器学习", "大数据"}},
		{"none", "负责销售工作", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSkills(tt.text))
		})
	}
}

func TestExtractSkillsCapped(t *testing.T) {
	text := "Java Python JavaScript TypeScript C++ C# Go PHP Ruby Scala Kotlin React Vue"
	got := ExtractSkills(text)
	assert.Len(t, got, MaxSkills)
	assert.Equal(t, "Java", got[0])
}

func TestParseSalary(t *testing.T) {
	lo, hi, ok := ParseSalary("15k-25k·13薪")
	assert.True(t, ok)
	assert.Equal(t, 15000, lo)
	assert.Equal(t, 25000, hi)

	lo, hi, ok = ParseSalary("20~30K")
	assert.True(t, ok)
	assert.Equal(t, 20000, lo)
	assert.Equal(t, 30000, hi)

	_, _, ok = ParseSalary("面议")
	assert.False(t, ok)
}

func TestParseExperience(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi int
		ok     bool
	}{
		{"经验3-5年 / 本科", 3, 5, true},
		{"1~3年", 1, 3, true},
		{"5年以上", 5, 0, true},
		{"经验不限", 0, 0, true},
		{"应届生", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, ok := ParseExperience(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestParseEducation(t *testing.T) {
	assert.Equal(t, "本科", ParseEducation("本科及以上"))
	assert.Equal(t, "硕士", ParseEducation("硕士"))
	assert.Equal(t, "不限", ParseEducation("学历不限"))
	assert.Equal(t, "", ParseEducation("无"))
}

func TestIsBlockedResponse(t *testing.T) {
	long := []byte(strings.Repeat("正常职位页面内容 ", 200))
	assert.False(t, IsBlockedResponse(200, long))
	assert.True(t, IsBlockedResponse(403, long))
	assert.True(t, IsBlockedResponse(429, long))
	assert.True(t, IsBlockedResponse(503, long))
	assert.True(t, IsBlockedResponse(200, []byte("short page")))
	assert.True(t, IsBlockedResponse(200, append(append([]byte{}, long...), "请输入验证码"...)))
	assert.True(t, IsBlockedResponse(200, append(append([]byte{}, long...), "CAPTCHA"...)))

	withMeta := append([]byte(`<meta name="robots" content="index,follow">`), long...)
	assert.False(t, IsBlockedResponse(200, withMeta))
}

func TestCheckBlockedPage(t *testing.T) {
	assert.True(t, CheckBlockedPage("安全验证", ""))
	assert.True(t, CheckBlockedPage("Login - BOSS", ""))
	assert.True(t, CheckBlockedPage("Go开发", "请完成人机验证"))
	assert.False(t, CheckBlockedPage("Go开发工程师", "岗位职责"))
}

func TestHasAntiRobot(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"rate limited", "<div>访问过于频繁，请稍后再试</div>", true},
		{"captcha", "<div>Please solve the CAPTCHA</div>", true},
		{"checkbox", "<label>I'm not a robot</label>", true},
		{"challenge title", "<html><head><title>安全验证</title></head><body></body></html>", true},
		{"plain", "<span class=name>Go开发</span>", false},
		{"meta robots", `<html><head><meta name="robots" content="index,follow"><meta name="googlebot" content="noarchive"></head><body><span class=name>Go开发</span></body></html>`, false},
		{"script only", `<html><body><script>var captchaLoaded = false; // robot check</script><p>岗位职责</p></body></html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAntiRobot(tt.html))
		})
	}
}

func TestVisibleText(t *testing.T) {
	title, body := VisibleText(`<html><head><title> Go 开发 </title><style>p{}</style></head>
<body><p>岗位  职责</p><script>x()</script></body></html>`)
	assert.Equal(t, "Go 开发", title)
	assert.Equal(t, "岗位 职责", body)
}
