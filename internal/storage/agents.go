package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Agent is a stored prompt-template agent.
type Agent struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Type           string    `json:"agent_type"`
	PromptTemplate string    `json:"prompt_template"`
	IsBuiltin      bool      `json:"is_builtin"`
	UsageCount     int       `json:"usage_count"`
	AverageRating  float64   `json:"average_rating"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Usage is one agent invocation.
type Usage struct {
	ID            int64     `json:"id"`
	AgentID       int64     `json:"agent_id"`
	AnalysisID    *int64    `json:"analysis_id,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
	ExecutionTime float64   `json:"execution_time"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AgentStats aggregates an agent's usage history.
type AgentStats struct {
	AgentID          int64   `json:"agent_id"`
	UsageCount       int     `json:"usage_count"`
	SuccessCount     int     `json:"success_count"`
	SuccessRate      float64 `json:"success_rate"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	AverageRating    float64 `json:"average_rating"`
	RatedCount       int     `json:"rated_count"`
}

const agentColumns = `id, name, description, agent_type, prompt_template, is_builtin, usage_count,
	average_rating, created_at, updated_at`

func scanAgent(s scanner) (*Agent, error) {
	var (
		a                Agent
		desc             sql.NullString
		builtin          int
		created, updated string
	)
	err := s.Scan(&a.ID, &a.Name, &desc, &a.Type, &a.PromptTemplate, &builtin, &a.UsageCount,
		&a.AverageRating, &created, &updated)
	if err != nil {
		return nil, err
	}
	a.Description = desc.String
	a.IsBuiltin = builtin != 0
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return &a, nil
}

// SaveAgent inserts a and returns its id.
func (d *DB) SaveAgent(ctx context.Context, a *Agent) (int64, error) {
	ts := now()
	res, err := d.db.ExecContext(ctx, `INSERT INTO ai_agents (name, description, agent_type, prompt_template,
		is_builtin, usage_count, average_rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Description, a.Type, a.PromptTemplate, boolInt(a.IsBuiltin), a.UsageCount, a.AverageRating, ts, ts)
	if err != nil {
		return 0, wrap("保存Agent失败", err)
	}
	id, _ := res.LastInsertId()
	a.ID = id
	return id, nil
}

// GetAgent loads one agent.
func (d *DB) GetAgent(ctx context.Context, id int64) (*Agent, error) {
	a, err := scanAgent(d.db.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM ai_agents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取Agent失败", ErrNotFound)
	}
	return a, wrap("获取Agent失败", err)
}

// FindBuiltinAgent looks up a built-in agent by name.
func (d *DB) FindBuiltinAgent(ctx context.Context, name string) (*Agent, error) {
	a, err := scanAgent(d.db.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM ai_agents WHERE name = ? AND is_builtin = 1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取Agent失败", ErrNotFound)
	}
	return a, wrap("获取Agent失败", err)
}

// ListAgents returns agents, built-ins first. An empty agentType returns all types.
func (d *DB) ListAgents(ctx context.Context, agentType string) ([]Agent, error) {
	q := "SELECT " + agentColumns + " FROM ai_agents"
	var args []any
	if agentType != "" {
		q += " WHERE agent_type = ?"
		args = append(args, agentType)
	}
	q += " ORDER BY is_builtin DESC, id ASC"
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("获取Agent列表失败", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, wrap("获取Agent列表失败", err)
		}
		out = append(out, *a)
	}
	return out, wrap("获取Agent列表失败", rows.Err())
}

// UpdateAgent rewrites the editable columns of a.
func (d *DB) UpdateAgent(ctx context.Context, a *Agent) error {
	res, err := d.db.ExecContext(ctx, `UPDATE ai_agents SET name = ?, description = ?, agent_type = ?,
		prompt_template = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Description, a.Type, a.PromptTemplate, now(), a.ID)
	if err != nil {
		return wrap("更新Agent失败", err)
	}
	return affected(res, "更新Agent失败")
}

// DeleteAgent removes an agent and its usage history.
func (d *DB) DeleteAgent(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM ai_agents WHERE id = ?", id)
	if err != nil {
		return wrap("删除Agent失败", err)
	}
	return affected(res, "删除Agent失败")
}

// IncrementAgentUsage bumps usage_count. With a rating it instead recomputes
// average_rating from every rated usage of the agent.
func (d *DB) IncrementAgentUsage(ctx context.Context, id int64, rating *float64) error {
	var (
		res sql.Result
		err error
	)
	if rating == nil {
		res, err = d.db.ExecContext(ctx,
			"UPDATE ai_agents SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?", now(), id)
	} else {
		res, err = d.db.ExecContext(ctx, `UPDATE ai_agents SET average_rating = COALESCE(
			(SELECT AVG(rating) FROM agent_usage_history WHERE agent_id = ? AND rating IS NOT NULL), 0),
			updated_at = ? WHERE id = ?`, id, now(), id)
	}
	if err != nil {
		return wrap("更新Agent使用统计失败", err)
	}
	return affected(res, "更新Agent使用统计失败")
}

const usageColumns = "id, agent_id, analysis_id, rating, feedback, execution_time, success, error_message, created_at"

func scanUsage(s scanner) (*Usage, error) {
	var (
		u              Usage
		analysisID     sql.NullInt64
		rating         sql.NullFloat64
		feedback, emsg sql.NullString
		execTime       sql.NullFloat64
		success        int
		created        string
	)
	if err := s.Scan(&u.ID, &u.AgentID, &analysisID, &rating, &feedback, &execTime, &success, &emsg, &created); err != nil {
		return nil, err
	}
	u.AnalysisID = ptrInt(analysisID)
	if rating.Valid {
		r := rating.Float64
		u.Rating = &r
	}
	u.Feedback, u.ErrorMessage = feedback.String, emsg.String
	u.ExecutionTime = execTime.Float64
	u.Success = success != 0
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// SaveUsage inserts a usage record and returns its id.
func (d *DB) SaveUsage(ctx context.Context, u *Usage) (int64, error) {
	res, err := d.db.ExecContext(ctx, `INSERT INTO agent_usage_history (agent_id, analysis_id, rating, feedback,
		execution_time, success, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.AgentID, nullInt(u.AnalysisID), nullFloat(u.Rating), u.Feedback, u.ExecutionTime,
		boolInt(u.Success), u.ErrorMessage, now())
	if err != nil {
		return 0, wrap("保存Agent使用记录失败", err)
	}
	id, _ := res.LastInsertId()
	u.ID = id
	return id, nil
}

// GetUsage loads one usage record.
func (d *DB) GetUsage(ctx context.Context, id int64) (*Usage, error) {
	u, err := scanUsage(d.db.QueryRowContext(ctx, "SELECT "+usageColumns+" FROM agent_usage_history WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取Agent使用记录失败", ErrNotFound)
	}
	return u, wrap("获取Agent使用记录失败", err)
}

// UpdateUsage rewrites the analysis link, rating and feedback of u.
func (d *DB) UpdateUsage(ctx context.Context, u *Usage) error {
	res, err := d.db.ExecContext(ctx,
		"UPDATE agent_usage_history SET analysis_id = ?, rating = ?, feedback = ? WHERE id = ?",
		nullInt(u.AnalysisID), nullFloat(u.Rating), u.Feedback, u.ID)
	if err != nil {
		return wrap("更新Agent使用记录失败", err)
	}
	return affected(res, "更新Agent使用记录失败")
}

// AgentStatistics aggregates the usage history of one agent.
func (d *DB) AgentStatistics(ctx context.Context, id int64) (*AgentStats, error) {
	st := &AgentStats{AgentID: id}
	var (
		avgExec, avgRating sql.NullFloat64
		successes          sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(success), AVG(execution_time),
		AVG(rating), COUNT(rating) FROM agent_usage_history WHERE agent_id = ?`, id).
		Scan(&st.UsageCount, &successes, &avgExec, &avgRating, &st.RatedCount)
	if err != nil {
		return nil, wrap("获取Agent统计失败", err)
	}
	st.SuccessCount = int(successes.Int64)
	st.AvgExecutionTime = avgExec.Float64
	st.AverageRating = avgRating.Float64
	if st.UsageCount > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.UsageCount)
	}
	return st, nil
}
