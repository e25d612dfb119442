package scraper

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_resume/internal/apperr"
)

const bossJobURL = "https://www.zhipin.com/job_detail/abc123.html"

func bossPage() string {
	filler := strings.Repeat("<p>公司福利：五险一金，带薪年假，弹性工作，定期团建。</p>", 40)
	return `<html><head><title>高级Go开发工程师-字节跳动-BOSS直聘</title></head><body>
<div class="job-banner">
  <h1 class="name">高级Go开发工程师</h1>
  <span class="salary">25-40K·15薪</span>
  <span class="job-area">北京·海淀区</span>
  <span class="job-experience">3-5年</span>
  <span class="job-degree">本科</span>
</div>
<div class="company-info"><div class="company-name"><a href="/gongsi/1.html">字节跳动</a></div>
  <p class="company-size">10000人以上</p><p class="company-type">互联网</p></div>
<div class="job-tags"><span class="job-tag">Go</span><span class="job-tag">Kubernetes</span><span class="job-tag">Go</span></div>
<div class="job-sec"><h3>职位描述</h3>
  <p>负责公司核心业务后端服务的设计与开发，使用Go语言构建高并发微服务。</p>
  <p>熟悉MySQL、Redis、Kafka，有Docker与Kubernetes实践经验者优先。</p>
</div>` + filler + `</body></html>`
}

// fakeDoer replays a scripted sequence of responses.
type fakeDoer struct {
	mu    sync.Mutex
	steps []fakeStep
	calls int
	hdrs  []map[string]string
}

type fakeStep struct {
	status int
	body   string
	err    error
}

func (f *fakeDoer) Do(_ context.Context, _, _ string, headers map[string]string, _ io.Reader) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hdrs = append(f.hdrs, headers)
	step := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	if step.err != nil {
		return nil, 0, step.err
	}
	return []byte(step.body), step.status, nil
}

func quickBoss(d *fakeDoer) *BossScraper {
	return NewBossScraper(BossOptions{Doer: d, MaxTries: 3, Referer: "https://www.zhipin.com/"})
}

func TestExtractBossJob(t *testing.T) {
	job, err := ExtractBossJob(bossPage(), bossJobURL)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, ShortID(bossJobURL), job.ID)
	assert.Equal(t, "高级Go开发工程师", job.Title)
	assert.Equal(t, "字节跳动", job.Company)
	assert.Equal(t, "25-40K·15薪", job.Salary)
	assert.Equal(t, 25000, job.SalaryMin)
	assert.Equal(t, 40000, job.SalaryMax)
	assert.Equal(t, "北京·海淀区", job.Location)
	assert.Equal(t, 3, job.ExperienceMin)
	assert.Equal(t, 5, job.ExperienceMax)
	assert.Equal(t, "本科", job.EducationLevel)
	assert.Contains(t, job.Description, "高并发微服务")
	assert.Equal(t, job.Description, job.Requirements)
	assert.Equal(t, []string{"Go", "Kubernetes"}, job.Tags)
	assert.Equal(t, "10000人以上", job.CompanyInfo["size"])
	assert.Equal(t, "互联网", job.CompanyInfo["type"])
	assert.Contains(t, job.Skills, "Go")
	assert.Contains(t, job.Skills, "Redis")
	assert.Equal(t, "全职", job.JobType)
	assert.Equal(t, SiteBoss, job.Source)
}

func TestExtractBossJobFallbacks(t *testing.T) {
	html := `<html><head><title>数据分析师 - 某公司</title></head><body><div>hello</div></body></html>`
	job, err := ExtractBossJob(html, bossJobURL)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "数据分析师", job.Title)
	assert.Equal(t, "未知公司", job.Company)
	assert.Equal(t, "职位描述暂无", job.Description)
	assert.Equal(t, "职位要求暂无", job.Requirements)
}

func TestExtractBossJobNoTitle(t *testing.T) {
	job, err := ExtractBossJob(`<html><body><div>nothing</div></body></html>`, bossJobURL)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestBossScrapeSuccess(t *testing.T) {
	d := &fakeDoer{steps: []fakeStep{{status: 200, body: bossPage()}}}
	res := quickBoss(d).Scrape(context.Background(), bossJobURL)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "高级Go开发工程师", res.Job.Title)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, "https://www.zhipin.com/", d.hdrs[0]["referer"])
	assert.NotEmpty(t, d.hdrs[0]["user-agent"])
}

func TestBossScrapeRetriesBlocked(t *testing.T) {
	d := &fakeDoer{steps: []fakeStep{
		{status: 200, body: "请输入验证码"},
		{status: 429, body: bossPage()},
		{status: 200, body: bossPage()},
	}}
	res := quickBoss(d).Scrape(context.Background(), bossJobURL)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, d.calls)
}

func TestBossScrapeAllBlocked(t *testing.T) {
	d := &fakeDoer{steps: []fakeStep{{status: 403, body: "forbidden"}}}
	res := quickBoss(d).Scrape(context.Background(), bossJobURL)
	assert.False(t, res.Success)
	assert.Equal(t, "请求失败", res.Error)
	assert.Equal(t, 3, d.calls)
}

func TestBossFetchNetworkError(t *testing.T) {
	d := &fakeDoer{steps: []fakeStep{{err: &net.OpError{Op: "dial", Err: errors.New("refused")}}}}
	body, err := quickBoss(d).Fetch(context.Background(), bossJobURL)
	assert.Nil(t, body)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
	assert.Equal(t, 3, d.calls)
}

func TestBossScrapeInvalidURL(t *testing.T) {
	d := &fakeDoer{steps: []fakeStep{{status: 200, body: bossPage()}}}
	res := quickBoss(d).Scrape(context.Background(), "zhipin.com/job")
	assert.False(t, res.Success)
	assert.Equal(t, "无效的URL格式", res.Error)
	assert.Equal(t, 0, d.calls)
}

func TestBossHealthy(t *testing.T) {
	tests := []struct {
		name    string
		step    fakeStep
		wantErr string
	}{
		{"ok", fakeStep{status: 200, body: "<html></html>"}, ""},
		{"rejected", fakeStep{status: 403}, "403"},
		{"unreachable", fakeStep{err: errors.New("dial tcp: i/o timeout")}, "connection failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDoer{steps: []fakeStep{tt.step}}
			opts := DefaultBossOptions(d)
			err := NewBossScraper(opts).Healthy(context.Background())
			assert.Equal(t, 1, d.calls, "health check does not retry")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	assert.NoError(t, quickBoss(&fakeDoer{steps: []fakeStep{{status: 500}}}).Healthy(context.Background()),
		"no health URL configured")
}

func TestGenericScraper(t *testing.T) {
	filler := strings.Repeat("<p>岗位职责：负责数据平台建设，使用Python和Kafka处理实时数据流。</p>", 30)
	page := `<html><head><title>数据工程师 - 智联招聘</title></head><body><article><h1>数据工程师</h1>` +
		filler + `</article></body></html>`
	d := &fakeDoer{steps: []fakeStep{{status: 200, body: page}}}
	g := NewGenericScraper(SiteZhilian, BossOptions{Doer: d, MaxTries: 1})

	res := g.Scrape(context.Background(), "https://jobs.zhaopin.com/1.htm")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "数据工程师", res.Job.Title)
	assert.Equal(t, SiteZhilian, res.Job.Source)
	assert.Contains(t, res.Job.Description, "数据平台")
	assert.Contains(t, res.Job.Skills, "Python")
	assert.Equal(t, "https://jobs.zhaopin.com/", d.hdrs[0]["referer"])
}
