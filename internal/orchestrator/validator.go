package orchestrator

import (
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/scraper"
)

const (
	maxSkillTags      = 20
	maxDescriptionLen = 10000
)

// DataValidator checks and normalizes scraped jobs.
type DataValidator struct{}

// Validate reports data-quality problems. ok is true when none were found.
func (DataValidator) Validate(job *scraper.Job) (bool, []string) {
	var errs []string
	if utf8.RuneCountInString(strings.TrimSpace(job.Title)) < 2 {
		errs = append(errs, "职位标题缺失或过短")
	}
	if utf8.RuneCountInString(strings.TrimSpace(job.Company)) < 2 {
		errs = append(errs, "公司名称缺失或过短")
	}
	if utf8.RuneCountInString(strings.TrimSpace(job.Description)) < 10 {
		errs = append(errs, "职位描述缺失或过短")
	}
	if job.SalaryMin > 0 && job.SalaryMax > 0 && job.SalaryMin > job.SalaryMax {
		errs = append(errs, "薪资范围不合理")
	}
	if len(job.Skills) > maxSkillTags {
		errs = append(errs, "技能标签过多，可能存在噪音数据")
	}
	if utf8.RuneCountInString(job.Description) > maxDescriptionLen {
		errs = append(errs, "职位描述过长，可能包含非相关内容")
	}
	return len(errs) == 0, errs
}

// Clean strips stray markup, collapses whitespace, drops blank description
// lines and dedupes skills in place.
func (DataValidator) Clean(job *scraper.Job) {
	job.Title = engine.CollapseSpaces(engine.CleanHTML(job.Title))
	job.Company = engine.CollapseSpaces(engine.CleanHTML(job.Company))

	if job.Description != "" {
		var lines []string
		for _, l := range strings.Split(job.Description, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		job.Description = strings.Join(lines, "\n")
	}

	if len(job.Skills) > 0 {
		job.Skills = engine.Dedupe(job.Skills)
	}
}
