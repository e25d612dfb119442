// Package jobs manages target job postings: manual entry, status changes,
// sample data and import of scraped results.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Input is the user-supplied data for a new job.
type Input struct {
	Title        string
	Company      string
	Description  string
	Requirements string
	Location     string
	Salary       string
	Experience   string
	SourceURL    string
}

// Patch lists updatable fields; nil pointers are left unchanged.
type Patch struct {
	Title        *string
	Company      *string
	Description  *string
	Requirements *string
	Location     *string
	Salary       *string
	Experience   *string
	Status       *string
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Company == nil && p.Description == nil && p.Requirements == nil &&
		p.Location == nil && p.Salary == nil && p.Experience == nil && p.Status == nil
}

// Manager is the job service backed by storage.
type Manager struct {
	db  *storage.DB
	log *slog.Logger
}

// NewManager returns a Manager over db.
func NewManager(db *storage.DB) *Manager {
	return &Manager{db: db, log: logging.Component("jobs")}
}

// ManualURLPrefix marks jobs entered by hand.
const ManualURLPrefix = "manual://"

// Create validates in and stores a new active job.
func (m *Manager) Create(ctx context.Context, in Input) (*storage.Job, error) {
	required := []struct {
		value, field, msg string
	}{
		{in.Title, "title", "职位名称不能为空"},
		{in.Company, "company", "公司名称不能为空"},
		{in.Description, "description", "职位描述不能为空"},
		{in.Requirements, "requirements", "职位要求不能为空"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, apperr.Validation(r.msg, r.field)
		}
	}

	url := strings.TrimSpace(in.SourceURL)
	if url == "" {
		url = ManualURLPrefix + uuid.NewString()
	}
	desc := strings.TrimSpace(in.Description)
	reqs := strings.TrimSpace(in.Requirements)
	j := &storage.Job{
		URL:          url,
		Title:        strings.TrimSpace(in.Title),
		Company:      strings.TrimSpace(in.Company),
		Description:  desc,
		Requirements: reqs,
		Location:     strings.TrimSpace(in.Location),
		Salary:       strings.TrimSpace(in.Salary),
		Experience:   strings.TrimSpace(in.Experience),
		Skills:       scraper.ExtractSkills(desc + "\n" + reqs),
		Source:       "manual",
		Status:       storage.JobActive,
	}
	if lo, hi, ok := scraper.ParseSalary(j.Salary); ok {
		j.SalaryMin, j.SalaryMax = lo, hi
	}
	if _, err := m.db.SaveJob(ctx, j); err != nil {
		return nil, err
	}
	m.log.Info("job created", slog.String("title", j.Title), slog.String("company", j.Company))
	return j, nil
}

// Get loads one job.
func (m *Manager) Get(ctx context.Context, id int64) (*storage.Job, error) {
	return m.db.GetJob(ctx, id)
}

// List returns jobs newest first, optionally filtered by status.
func (m *Manager) List(ctx context.Context, status string) ([]storage.Job, error) {
	if status != "" && !storage.ValidJobStatus(status) {
		return nil, apperr.Validation("无效的职位状态: "+status, "status")
	}
	return m.db.ListJobs(ctx, 0, 0, status)
}

// Update applies p to job id. An empty patch is a no-op that reports false.
func (m *Manager) Update(ctx context.Context, id int64, p Patch) (bool, error) {
	if p.empty() {
		return false, nil
	}
	j, err := m.db.GetJob(ctx, id)
	if err != nil {
		return false, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&j.Title, p.Title)
	set(&j.Company, p.Company)
	set(&j.Description, p.Description)
	set(&j.Requirements, p.Requirements)
	set(&j.Location, p.Location)
	set(&j.Salary, p.Salary)
	set(&j.Experience, p.Experience)
	if p.Status != nil {
		if !storage.ValidJobStatus(*p.Status) {
			return false, apperr.Validation("无效的职位状态: "+*p.Status, "status")
		}
		j.Status = *p.Status
	}
	if p.Title != nil && j.Title == "" {
		return false, apperr.Validation("职位名称不能为空", "title")
	}
	if p.Company != nil && j.Company == "" {
		return false, apperr.Validation("公司名称不能为空", "company")
	}
	if p.Salary != nil {
		j.SalaryMin, j.SalaryMax = 0, 0
		if lo, hi, ok := scraper.ParseSalary(j.Salary); ok {
			j.SalaryMin, j.SalaryMax = lo, hi
		}
	}
	if err := m.db.UpdateJob(ctx, j); err != nil {
		return false, err
	}
	return true, nil
}

// SetStatus moves a job to active, archived or applied.
func (m *Manager) SetStatus(ctx context.Context, id int64, status string) error {
	if !storage.ValidJobStatus(status) {
		return apperr.Validation("无效的职位状态: "+status, "status")
	}
	return m.db.UpdateJobStatus(ctx, id, status)
}

// Delete removes a job. It reports false when the job did not exist.
func (m *Manager) Delete(ctx context.Context, id int64) (bool, error) {
	err := m.db.DeleteJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.log.Info("job deleted", slog.Int64("id", id))
	return true, nil
}

var sampleJobs = []Input{
	{
		Title:        "Python后端开发工程师",
		Company:      "科技有限公司A",
		Description:  "负责公司核心业务系统的后端开发，包括API设计、数据库优化、微服务架构等工作。",
		Requirements: "1. 3年以上Python开发经验；2. 熟悉Django/Flask框架；3. 熟悉MySQL/Redis；4. 了解微服务架构；5. 有团队协作经验。",
		Location:     "北京",
		Salary:       "20-35K",
		Experience:   "3-5年",
	},
	{
		Title:        "AI算法工程师",
		Company:      "人工智能科技B",
		Description:  "负责机器学习算法的研发和优化，包括深度学习模型训练、算法性能优化等。",
		Requirements: "1. 硕士以上学历，计算机相关专业；2. 熟悉Python、TensorFlow/PyTorch；3. 有深度学习项目经验；4. 了解NLP或CV领域；5. 英语读写能力强。",
		Location:     "上海",
		Salary:       "25-45K",
		Experience:   "2-4年",
	},
	{
		Title:        "全栈开发工程师",
		Company:      "互联网公司C",
		Description:  "负责Web应用的前后端开发，包括用户界面设计、后端API开发、数据库设计等。",
		Requirements: "1. 熟悉JavaScript、HTML/CSS；2. 了解React/Vue.js框架；3. 有Node.js或Python后端经验；4. 熟悉Git版本控制；5. 有产品思维。",
		Location:     "深圳",
		Salary:       "18-30K",
		Experience:   "2-3年",
	},
}

// CreateSampleJobs stores the three demo jobs. Individual failures are logged
// and skipped.
func (m *Manager) CreateSampleJobs(ctx context.Context) []*storage.Job {
	out := make([]*storage.Job, 0, len(sampleJobs))
	for _, in := range sampleJobs {
		j, err := m.Create(ctx, in)
		if err != nil {
			m.log.Error("sample job failed", slog.String("title", in.Title), slog.Any("error", err))
			continue
		}
		out = append(out, j)
	}
	m.log.Info("sample jobs created", slog.Int("count", len(out)))
	return out
}

// ImportScraped persists a successful scrape result, updating the row when
// the URL was imported before.
func (m *Manager) ImportScraped(ctx context.Context, res scraper.Result) (*storage.Job, error) {
	if !res.Success || res.Job == nil {
		msg := res.Error
		if msg == "" {
			msg = "爬取结果为空"
		}
		return nil, apperr.Validation("无法导入失败的爬取结果: "+msg, "result")
	}
	sj := res.Job
	url := sj.SourceURL
	if url == "" {
		url = res.URL
	}
	j := &storage.Job{
		URL:          url,
		Title:        sj.Title,
		Company:      sj.Company,
		Location:     sj.Location,
		Salary:       sj.Salary,
		SalaryMin:    sj.SalaryMin,
		SalaryMax:    sj.SalaryMax,
		Experience:   sj.ExperienceLevel,
		Education:    sj.EducationLevel,
		Description:  sj.Description,
		Requirements: sj.Requirements,
		Skills:       sj.Skills,
		Tags:         sj.Tags,
		Source:       string(sj.Source),
		Status:       storage.JobActive,
	}
	if _, err := m.db.SaveJob(ctx, j); err != nil {
		return nil, err
	}
	m.log.Info("scraped job imported", slog.String("url", url), slog.Int64("id", j.ID))
	return j, nil
}
