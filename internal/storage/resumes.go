package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Resume is a stored resume with its parsed sections.
type Resume struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	FilePath     string              `json:"file_path,omitempty"`
	Content      string              `json:"content"`
	PersonalInfo map[string]string   `json:"personal_info,omitempty"`
	Education    []map[string]string `json:"education,omitempty"`
	Experience   []map[string]string `json:"experience,omitempty"`
	Projects     []map[string]string `json:"projects,omitempty"`
	Skills       []string            `json:"skills,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
	FileType     string              `json:"file_type,omitempty"`
	FileSize     int64               `json:"file_size,omitempty"`
	IsDefault    bool                `json:"is_default"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

const resumeColumns = `id, name, file_path, content, personal_info, education, experience, projects,
	skills, metadata, file_type, file_size, is_default, created_at, updated_at`

func scanResume(s scanner) (*Resume, error) {
	var (
		r                                   Resume
		filePath, fileType                  sql.NullString
		personal, edu, exp, proj, skl, meta sql.NullString
		fileSize                            sql.NullInt64
		isDefault                           int
		created, updated                    string
	)
	err := s.Scan(&r.ID, &r.Name, &filePath, &r.Content, &personal, &edu, &exp, &proj,
		&skl, &meta, &fileType, &fileSize, &isDefault, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.FilePath, r.FileType, r.FileSize = filePath.String, fileType.String, fileSize.Int64
	r.IsDefault = isDefault != 0
	fromJSON(personal, &r.PersonalInfo)
	fromJSON(edu, &r.Education)
	fromJSON(exp, &r.Experience)
	fromJSON(proj, &r.Projects)
	fromJSON(skl, &r.Skills)
	fromJSON(meta, &r.Metadata)
	r.CreatedAt, r.UpdatedAt = parseTime(created), parseTime(updated)
	return &r, nil
}

// SaveResume inserts r and returns its id.
func (d *DB) SaveResume(ctx context.Context, r *Resume) (int64, error) {
	ts := now()
	res, err := d.db.ExecContext(ctx, `INSERT INTO resumes (name, file_path, content, personal_info, education,
		experience, projects, skills, metadata, file_type, file_size, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.FilePath, r.Content, toJSON(r.PersonalInfo), toJSON(r.Education), toJSON(r.Experience),
		toJSON(r.Projects), toJSON(orEmpty(r.Skills)), toJSON(r.Metadata), r.FileType, r.FileSize,
		boolInt(r.IsDefault), ts, ts)
	if err != nil {
		return 0, wrap("保存简历失败", err)
	}
	id, _ := res.LastInsertId()
	r.ID = id
	if r.IsDefault {
		if err := d.SetDefaultResume(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

// GetResume loads one resume.
func (d *DB) GetResume(ctx context.Context, id int64) (*Resume, error) {
	r, err := scanResume(d.db.QueryRowContext(ctx, "SELECT "+resumeColumns+" FROM resumes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取简历失败", ErrNotFound)
	}
	return r, wrap("获取简历失败", err)
}

// DefaultResume returns the resume marked default.
func (d *DB) DefaultResume(ctx context.Context) (*Resume, error) {
	r, err := scanResume(d.db.QueryRowContext(ctx, "SELECT "+resumeColumns+" FROM resumes WHERE is_default = 1 LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取默认简历失败", ErrNotFound)
	}
	return r, wrap("获取默认简历失败", err)
}

// ListResumes returns resumes newest first. limit <= 0 means no limit.
func (d *DB) ListResumes(ctx context.Context, limit, offset int) ([]Resume, error) {
	q := "SELECT " + resumeColumns + " FROM resumes ORDER BY created_at DESC, id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("获取简历列表失败", err)
	}
	defer rows.Close()

	var out []Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, wrap("获取简历列表失败", err)
		}
		out = append(out, *r)
	}
	return out, wrap("获取简历列表失败", rows.Err())
}

// UpdateResumeContent replaces the content and metadata of a resume.
func (d *DB) UpdateResumeContent(ctx context.Context, id int64, content string, metadata map[string]any) error {
	res, err := d.db.ExecContext(ctx, "UPDATE resumes SET content = ?, metadata = ?, updated_at = ? WHERE id = ?",
		content, toJSON(metadata), now(), id)
	if err != nil {
		return wrap("更新简历失败", err)
	}
	return affected(res, "更新简历失败")
}

// SetDefaultResume marks id as the only default resume.
func (d *DB) SetDefaultResume(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("设置默认简历失败", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "UPDATE resumes SET is_default = 0 WHERE is_default = 1"); err != nil {
		return wrap("设置默认简历失败", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE resumes SET is_default = 1, updated_at = ? WHERE id = ?", now(), id)
	if err != nil {
		return wrap("设置默认简历失败", err)
	}
	if err := affected(res, "设置默认简历失败"); err != nil {
		return err
	}
	return wrap("设置默认简历失败", tx.Commit())
}

// DeleteResume removes a resume and its dependent rows.
func (d *DB) DeleteResume(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM resumes WHERE id = ?", id)
	if err != nil {
		return wrap("删除简历失败", err)
	}
	return affected(res, "删除简历失败")
}
