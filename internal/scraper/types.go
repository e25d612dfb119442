// Package scraper holds the per-site job posting adapters and the shared
// extraction helpers (skills, salary, blocked-page heuristics).
package scraper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// Site identifies a recruiting website.
type Site string

const (
	SiteBoss    Site = "boss"
	SiteLagou   Site = "lagou"
	SiteZhilian Site = "zhilian"
	SiteLiepin  Site = "liepin"
	Site51Job   Site = "51job"
)

// AllSites lists every recognised site in display order.
var AllSites = []Site{SiteBoss, SiteLagou, SiteZhilian, SiteLiepin, Site51Job}

var siteDomains = []struct {
	domain string
	site   Site
}{
	{"zhipin.com", SiteBoss},
	{"lagou.com", SiteLagou},
	{"zhaopin.com", SiteZhilian},
	{"liepin.com", SiteLiepin},
	{"51job.com", Site51Job},
}

// DetectSite maps a job URL to its site by host. ok is false for unknown hosts.
func DetectSite(rawURL string) (Site, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range siteDomains {
		if host == d.domain || strings.HasSuffix(host, "."+d.domain) {
			return d.site, true
		}
	}
	return "", false
}

// Job is a normalized job posting.
type Job struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Company         string            `json:"company"`
	Location        string            `json:"location,omitempty"`
	Salary          string            `json:"salary,omitempty"`
	SalaryMin       int               `json:"salary_min,omitempty"`
	SalaryMax       int               `json:"salary_max,omitempty"`
	ExperienceLevel string            `json:"experience_level,omitempty"`
	ExperienceMin   int               `json:"experience_min,omitempty"`
	ExperienceMax   int               `json:"experience_max,omitempty"`
	EducationLevel  string            `json:"education_level,omitempty"`
	Description     string            `json:"description"`
	Requirements    string            `json:"requirements,omitempty"`
	JobType         string            `json:"job_type,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Skills          []string          `json:"skills,omitempty"`
	CompanyInfo     map[string]string `json:"company_info,omitempty"`
	ContactInfo     map[string]string `json:"contact_info,omitempty"`
	PublishedTime   string            `json:"published_time,omitempty"`
	Source          Site              `json:"source"`
	SourceURL       string            `json:"source_url"`
	CrawledAt       time.Time         `json:"crawled_at"`
}

// Result is the outcome of scraping one URL.
type Result struct {
	Success   bool      `json:"success"`
	Job       *Job      `json:"job,omitempty"`
	Error     string    `json:"error,omitempty"`
	URL       string    `json:"url"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Succeeded builds a successful result.
func Succeeded(rawURL string, job *Job) Result {
	return Result{Success: true, Job: job, URL: rawURL, ScrapedAt: time.Now()}
}

// Failed builds a failed result.
func Failed(rawURL, msg string) Result {
	return Result{Success: false, Error: msg, URL: rawURL, ScrapedAt: time.Now()}
}

// Scraper fetches and extracts one job posting.
type Scraper interface {
	Site() Site
	Scrape(ctx context.Context, rawURL string) Result
	Close() error
}

// ShortID returns the first 8 hex chars of md5(s).
func ShortID(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

func validHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}
