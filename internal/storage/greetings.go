package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Greeting is a stored greeting message for a job/resume pair.
type Greeting struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	ResumeID  int64     `json:"resume_id"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	IsCustom  bool      `json:"is_custom"`
	CreatedAt time.Time `json:"created_at"`
}

const greetingColumns = "id, job_id, resume_id, content, version, is_custom, created_at"

func scanGreeting(s scanner) (*Greeting, error) {
	var (
		g       Greeting
		custom  int
		created string
	)
	if err := s.Scan(&g.ID, &g.JobID, &g.ResumeID, &g.Content, &g.Version, &custom, &created); err != nil {
		return nil, err
	}
	g.IsCustom = custom != 0
	g.CreatedAt = parseTime(created)
	return &g, nil
}

// SaveGreeting inserts g. A zero Version becomes the next version number
// for the job/resume pair.
func (d *DB) SaveGreeting(ctx context.Context, g *Greeting) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrap("保存打招呼语失败", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if g.Version <= 0 {
		var maxVer sql.NullInt64
		err := tx.QueryRowContext(ctx, "SELECT MAX(version) FROM greetings WHERE job_id = ? AND resume_id = ?",
			g.JobID, g.ResumeID).Scan(&maxVer)
		if err != nil {
			return 0, wrap("保存打招呼语失败", err)
		}
		g.Version = int(maxVer.Int64) + 1
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO greetings (job_id, resume_id, content, version, is_custom, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, g.JobID, g.ResumeID, g.Content, g.Version, boolInt(g.IsCustom), now())
	if err != nil {
		return 0, wrap("保存打招呼语失败", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, wrap("保存打招呼语失败", err)
	}
	id, _ := res.LastInsertId()
	g.ID = id
	return id, nil
}

// GetGreeting loads one greeting.
func (d *DB) GetGreeting(ctx context.Context, id int64) (*Greeting, error) {
	g, err := scanGreeting(d.db.QueryRowContext(ctx, "SELECT "+greetingColumns+" FROM greetings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取打招呼语失败", ErrNotFound)
	}
	return g, wrap("获取打招呼语失败", err)
}

// ListGreetingsFor returns the greetings of a job/resume pair, newest version first.
func (d *DB) ListGreetingsFor(ctx context.Context, jobID, resumeID int64) ([]Greeting, error) {
	return d.queryGreetings(ctx, "SELECT "+greetingColumns+` FROM greetings
		WHERE job_id = ? AND resume_id = ? ORDER BY version DESC, id DESC`, jobID, resumeID)
}

// ListGreetings returns all greetings newest first. limit <= 0 means no limit.
func (d *DB) ListGreetings(ctx context.Context, limit, offset int) ([]Greeting, error) {
	q := "SELECT " + greetingColumns + " FROM greetings ORDER BY created_at DESC, id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return d.queryGreetings(ctx, q, args...)
}

func (d *DB) queryGreetings(ctx context.Context, q string, args ...any) ([]Greeting, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("获取打招呼语失败", err)
	}
	defer rows.Close()

	var out []Greeting
	for rows.Next() {
		g, err := scanGreeting(rows)
		if err != nil {
			return nil, wrap("获取打招呼语失败", err)
		}
		out = append(out, *g)
	}
	return out, wrap("获取打招呼语失败", rows.Err())
}

// DeleteGreeting removes one greeting.
func (d *DB) DeleteGreeting(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM greetings WHERE id = ?", id)
	if err != nil {
		return wrap("删除打招呼语失败", err)
	}
	return affected(res, "删除打招呼语失败")
}
