package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// SiteStats are the per-site counters.
type SiteStats struct {
	Attempts        int        `json:"attempts"`
	Successes       int        `json:"successes"`
	Failures        int        `json:"failures"`
	AvgResponseTime float64    `json:"avg_response_time"`
	LastSuccess     *time.Time `json:"last_success"`
	LastFailure     *time.Time `json:"last_failure"`
}

// Stats is the persisted statistics document.
type Stats struct {
	TotalAttempts       int                   `json:"total_attempts"`
	SuccessfulScrapes   int                   `json:"successful_scrapes"`
	FailedScrapes       int                   `json:"failed_scrapes"`
	AverageResponseTime float64               `json:"average_response_time"`
	SuccessRate         float64               `json:"success_rate"`
	SiteStats           map[string]*SiteStats `json:"site_stats"`
	LastUpdated         time.Time             `json:"last_updated"`
}

// Monitor records scrape outcomes and persists them to a JSON file.
type Monitor struct {
	mu    sync.Mutex
	path  string
	stats Stats
	now   func() time.Time
	log   *slog.Logger
}

// NewMonitor loads existing stats from path. A missing or corrupt file
// starts from zero.
func NewMonitor(path string) *Monitor {
	if path == "" {
		path = "scraping_stats.json"
	}
	m := &Monitor{
		path:  path,
		stats: Stats{SiteStats: map[string]*SiteStats{}, LastUpdated: time.Now()},
		now:   time.Now,
		log:   slog.With(slog.String("component", "monitor")),
	}
	if err := m.load(); err != nil {
		m.log.Warn("加载统计数据失败", slog.Any("error", err))
	}
	return m
}

func (m *Monitor) load() error {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var st Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode %s: %w", m.path, err)
	}
	if st.SiteStats == nil {
		st.SiteStats = map[string]*SiteStats{}
	}
	m.stats = st
	return nil
}

// save writes the stats atomically. Callers hold m.mu.
func (m *Monitor) save() {
	data, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		m.log.Error("保存统计数据失败", slog.Any("error", err))
		return
	}
	if err := writeFileAtomic(m.path, data); err != nil {
		m.log.Error("保存统计数据失败", slog.Any("error", err))
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".stats-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (m *Monitor) site(name string) *SiteStats {
	s, ok := m.stats.SiteStats[name]
	if !ok {
		s = &SiteStats{}
		m.stats.SiteStats[name] = s
	}
	return s
}

func (m *Monitor) updateRate() {
	if m.stats.TotalAttempts > 0 {
		m.stats.SuccessRate = float64(m.stats.SuccessfulScrapes) / float64(m.stats.TotalAttempts)
	} else {
		m.stats.SuccessRate = 0
	}
}

// RecordAttempt counts one scrape attempt.
func (m *Monitor) RecordAttempt(site string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.TotalAttempts++
	m.site(site).Attempts++
	m.stats.LastUpdated = m.now()
}

// RecordSuccess counts a success with its response time and saves.
func (m *Monitor) RecordSuccess(site string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	secs := d.Seconds()
	m.stats.SuccessfulScrapes++
	n := float64(m.stats.SuccessfulScrapes)
	m.stats.AverageResponseTime = (m.stats.AverageResponseTime*(n-1) + secs) / n
	m.updateRate()

	s := m.site(site)
	s.Successes++
	if s.Successes > 1 {
		sn := float64(s.Successes)
		s.AvgResponseTime = (s.AvgResponseTime*(sn-1) + secs) / sn
	} else {
		s.AvgResponseTime = secs
	}
	now := m.now()
	s.LastSuccess = &now
	m.stats.LastUpdated = now
	m.save()
}

// RecordFailure counts a final failure and saves.
func (m *Monitor) RecordFailure(site, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.FailedScrapes++
	m.updateRate()
	s := m.site(site)
	s.Failures++
	now := m.now()
	s.LastFailure = &now
	m.stats.LastUpdated = now
	m.log.Debug("scrape failed", slog.String("site", site), slog.String("reason", reason))
	m.save()
}

// Snapshot returns a deep copy of the current stats.
func (m *Monitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stats
	st.SiteStats = make(map[string]*SiteStats, len(m.stats.SiteStats))
	for k, v := range m.stats.SiteStats {
		c := *v
		st.SiteStats[k] = &c
	}
	return st
}

// OverallReport summarizes all sites.
type OverallReport struct {
	TotalAttempts       int    `json:"total_attempts"`
	SuccessRate         string `json:"success_rate"`
	AverageResponseTime string `json:"average_response_time"`
	SuccessfulScrapes   int    `json:"successful_scrapes"`
	FailedScrapes       int    `json:"failed_scrapes"`
}

// SiteReport summarizes one site.
type SiteReport struct {
	Attempts        int        `json:"attempts"`
	SuccessRate     string     `json:"success_rate"`
	AvgResponseTime string     `json:"avg_response_time"`
	LastSuccess     *time.Time `json:"last_success"`
	LastFailure     *time.Time `json:"last_failure"`
}

// Report is the human-readable performance summary.
type Report struct {
	Overall OverallReport         `json:"overall"`
	BySite  map[string]SiteReport `json:"by_site"`
}

func percent(r float64) string { return fmt.Sprintf("%.2f%%", r*100) }

func seconds(s float64) string { return fmt.Sprintf("%.2fs", s) }

// Report formats the current stats.
func (m *Monitor) Report() Report {
	st := m.Snapshot()
	r := Report{
		Overall: OverallReport{
			TotalAttempts:       st.TotalAttempts,
			SuccessRate:         percent(st.SuccessRate),
			AverageResponseTime: seconds(st.AverageResponseTime),
			SuccessfulScrapes:   st.SuccessfulScrapes,
			FailedScrapes:       st.FailedScrapes,
		},
		BySite: make(map[string]SiteReport, len(st.SiteStats)),
	}
	for name, s := range st.SiteStats {
		var rate float64
		if s.Attempts > 0 {
			rate = float64(s.Successes) / float64(s.Attempts)
		}
		r.BySite[name] = SiteReport{
			Attempts:        s.Attempts,
			SuccessRate:     percent(rate),
			AvgResponseTime: seconds(s.AvgResponseTime),
			LastSuccess:     s.LastSuccess,
			LastFailure:     s.LastFailure,
		}
	}
	return r
}

// Sites lists the sites with recorded stats, sorted.
func (r Report) Sites() []string {
	out := make([]string, 0, len(r.BySite))
	for s := range r.BySite {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
