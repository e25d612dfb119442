package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// Job statuses.
const (
	JobActive   = "active"
	JobArchived = "archived"
	JobApplied  = "applied"
)

// ValidJobStatus reports whether s is a known job status.
func ValidJobStatus(s string) bool {
	switch s {
	case JobActive, JobArchived, JobApplied:
		return true
	}
	return false
}

// Job is a stored job posting.
type Job struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location,omitempty"`
	Salary       string    `json:"salary,omitempty"`
	SalaryMin    int       `json:"salary_min,omitempty"`
	SalaryMax    int       `json:"salary_max,omitempty"`
	Experience   string    `json:"experience,omitempty"`
	Education    string    `json:"education,omitempty"`
	Description  string    `json:"description"`
	Requirements string    `json:"requirements"`
	Skills       []string  `json:"skills"`
	Tags         []string  `json:"tags,omitempty"`
	Source       string    `json:"source,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const jobColumns = `id, url, title, company, location, salary, salary_min, salary_max, experience,
	education, description, requirements, skills, tags, source, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		j                                             Job
		location, salary, exp, edu, desc, req, source sql.NullString
		skills, tags                                  sql.NullString
		created, updated                              string
	)
	err := s.Scan(&j.ID, &j.URL, &j.Title, &j.Company, &location, &salary, &j.SalaryMin, &j.SalaryMax,
		&exp, &edu, &desc, &req, &skills, &tags, &source, &j.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	j.Location, j.Salary, j.Experience, j.Education = location.String, salary.String, exp.String, edu.String
	j.Description, j.Requirements, j.Source = desc.String, req.String, source.String
	fromJSON(skills, &j.Skills)
	fromJSON(tags, &j.Tags)
	j.CreatedAt, j.UpdatedAt = parseTime(created), parseTime(updated)
	return &j, nil
}

// SaveJob inserts j, or updates the existing row with the same URL.
// It returns the row id.
func (d *DB) SaveJob(ctx context.Context, j *Job) (int64, error) {
	var existing int64
	err := d.db.QueryRowContext(ctx, "SELECT id FROM jobs WHERE url = ?", j.URL).Scan(&existing)
	switch {
	case err == nil:
		d.log.Info("job exists, updating", slog.String("url", j.URL))
		j.ID = existing
		if err := d.UpdateJob(ctx, j); err != nil {
			return 0, err
		}
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, wrap("保存职位失败", err)
	}

	if j.Status == "" {
		j.Status = JobActive
	}
	ts := now()
	res, err := d.db.ExecContext(ctx, `INSERT INTO jobs (url, title, company, location, salary, salary_min, salary_max,
		experience, education, description, requirements, skills, tags, source, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.URL, j.Title, j.Company, j.Location, j.Salary, j.SalaryMin, j.SalaryMax,
		j.Experience, j.Education, j.Description, j.Requirements, toJSON(orEmpty(j.Skills)), toJSON(orEmpty(j.Tags)),
		j.Source, j.Status, ts, ts)
	if err != nil {
		return 0, wrap("保存职位失败", err)
	}
	id, _ := res.LastInsertId()
	j.ID = id
	return id, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// GetJob loads one job.
func (d *DB) GetJob(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取职位失败", ErrNotFound)
	}
	return j, wrap("获取职位失败", err)
}

// ListJobs returns jobs newest first. limit <= 0 means no limit; an empty
// status returns every status.
func (d *DB) ListJobs(ctx context.Context, limit, offset int, status string) ([]Job, error) {
	q := "SELECT " + jobColumns + " FROM jobs"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("获取职位列表失败", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, wrap("获取职位列表失败", err)
		}
		out = append(out, *j)
	}
	return out, wrap("获取职位列表失败", rows.Err())
}

// UpdateJob rewrites every editable column of j.
func (d *DB) UpdateJob(ctx context.Context, j *Job) error {
	if j.Status == "" {
		j.Status = JobActive
	}
	res, err := d.db.ExecContext(ctx, `UPDATE jobs SET title = ?, company = ?, location = ?, salary = ?,
		salary_min = ?, salary_max = ?, experience = ?, education = ?, description = ?, requirements = ?,
		skills = ?, tags = ?, source = ?, status = ?, updated_at = ? WHERE id = ?`,
		j.Title, j.Company, j.Location, j.Salary, j.SalaryMin, j.SalaryMax, j.Experience, j.Education,
		j.Description, j.Requirements, toJSON(orEmpty(j.Skills)), toJSON(orEmpty(j.Tags)), j.Source, j.Status, now(), j.ID)
	if err != nil {
		return wrap("更新职位失败", err)
	}
	return affected(res, "更新职位失败")
}

// UpdateJobStatus changes only the status column.
func (d *DB) UpdateJobStatus(ctx context.Context, id int64, status string) error {
	res, err := d.db.ExecContext(ctx, "UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?", status, now(), id)
	if err != nil {
		return wrap("更新职位状态失败", err)
	}
	return affected(res, "更新职位状态失败")
}

// DeleteJob removes a job and, by cascade, its analyses and greetings.
func (d *DB) DeleteJob(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return wrap("删除职位失败", err)
	}
	return affected(res, "删除职位失败")
}
