// Package storage persists jobs, resumes, analyses, greetings, settings and
// agents in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_resume/internal/apperr"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite handle.
type DB struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		url          TEXT UNIQUE NOT NULL,
		title        TEXT NOT NULL,
		company      TEXT NOT NULL,
		location     TEXT,
		salary       TEXT,
		salary_min   INTEGER DEFAULT 0,
		salary_max   INTEGER DEFAULT 0,
		experience   TEXT,
		education    TEXT,
		description  TEXT,
		requirements TEXT,
		skills       TEXT,
		tags         TEXT,
		source       TEXT,
		status       TEXT NOT NULL DEFAULT 'active',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resumes (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		file_path     TEXT,
		content       TEXT NOT NULL,
		personal_info TEXT,
		education     TEXT,
		experience    TEXT,
		projects      TEXT,
		skills        TEXT,
		metadata      TEXT,
		file_type     TEXT,
		file_size     INTEGER DEFAULT 0,
		is_default    INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_agents (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL,
		description     TEXT,
		agent_type      TEXT NOT NULL DEFAULT 'general',
		prompt_template TEXT NOT NULL,
		is_builtin      INTEGER NOT NULL DEFAULT 0,
		usage_count     INTEGER NOT NULL DEFAULT 0,
		average_rating  REAL NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		result_uuid       TEXT,
		job_id            INTEGER NOT NULL,
		resume_id         INTEGER NOT NULL,
		agent_id          INTEGER REFERENCES ai_agents (id) ON DELETE SET NULL,
		overall_score     REAL,
		skill_match_score REAL,
		experience_score  REAL,
		keyword_coverage  REAL,
		match_scores      TEXT,
		matching_skills   TEXT,
		missing_skills    TEXT,
		strengths         TEXT,
		weaknesses        TEXT,
		suggestions       TEXT,
		raw_response      TEXT,
		execution_time    REAL DEFAULT 0,
		created_at        TEXT NOT NULL,
		FOREIGN KEY (job_id) REFERENCES jobs (id) ON DELETE CASCADE,
		FOREIGN KEY (resume_id) REFERENCES resumes (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS greetings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id     INTEGER NOT NULL,
		resume_id  INTEGER NOT NULL,
		content    TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		is_custom  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (job_id) REFERENCES jobs (id) ON DELETE CASCADE,
		FOREIGN KEY (resume_id) REFERENCES resumes (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agent_usage_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id       INTEGER NOT NULL,
		analysis_id    INTEGER,
		rating         REAL,
		feedback       TEXT,
		execution_time REAL DEFAULT 0,
		success        INTEGER NOT NULL DEFAULT 1,
		error_message  TEXT,
		created_at     TEXT NOT NULL,
		FOREIGN KEY (agent_id) REFERENCES ai_agents (id) ON DELETE CASCADE,
		FOREIGN KEY (analysis_id) REFERENCES analyses (id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_job_resume ON analyses(job_id, resume_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_agent_id ON analyses(agent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_greetings_job_id ON greetings(job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_type ON ai_agents(agent_type)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_builtin ON ai_agents(is_builtin)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_usage_agent_id ON agent_usage_history(agent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_usage_analysis_id ON agent_usage_history(analysis_id)`,
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, apperr.Database("创建数据库目录失败", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperr.Database("打开数据库失败", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, apperr.Database("初始化数据库失败", err)
		}
	}
	d := &DB{db: db, path: path, log: slog.With(slog.String("component", "storage"))}
	d.log.Debug("database ready", slog.String("path", path))
	return d, nil
}

// Close closes the handle.
func (d *DB) Close() error { return d.db.Close() }

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// timeLayout is fixed-width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func now() string { return time.Now().UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// fromJSON decodes a nullable JSON column, leaving v untouched when empty.
func fromJSON(s sql.NullString, v any) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return
	}
	_ = json.Unmarshal([]byte(s.String), v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperr.Database(op, err)
}

func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// Stats returns row counts per table and the database file size.
func (d *DB) Stats(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, table := range []string{"jobs", "resumes", "analyses", "greetings", "app_settings", "ai_agents", "agent_usage_history"} {
		var n int64
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, wrap("统计数据失败", err)
		}
		out[table+"_count"] = n
	}
	if fi, err := os.Stat(d.path); err == nil {
		out["db_size"] = fi.Size()
	}
	return out, nil
}

// Vacuum compacts the database file.
func (d *DB) Vacuum(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		return wrap("数据库优化失败", err)
	}
	d.log.Info("database vacuumed")
	return nil
}
