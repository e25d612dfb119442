package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Analysis is a stored resume/job match result.
type Analysis struct {
	ID              int64              `json:"id"`
	UUID            string             `json:"result_uuid,omitempty"`
	JobID           int64              `json:"job_id"`
	ResumeID        int64              `json:"resume_id"`
	AgentID         *int64             `json:"agent_id,omitempty"`
	OverallScore    float64            `json:"overall_score"`
	SkillMatchScore float64            `json:"skill_match_score"`
	ExperienceScore float64            `json:"experience_score"`
	KeywordCoverage float64            `json:"keyword_coverage"`
	MatchScores     map[string]float64 `json:"match_scores,omitempty"`
	MatchingSkills  []string           `json:"matching_skills,omitempty"`
	MissingSkills   []string           `json:"missing_skills,omitempty"`
	Strengths       []string           `json:"strengths,omitempty"`
	Weaknesses      []string           `json:"weaknesses,omitempty"`
	Suggestions     []string           `json:"suggestions,omitempty"`
	RawResponse     string             `json:"raw_response,omitempty"`
	ExecutionTime   float64            `json:"execution_time"`
	CreatedAt       time.Time          `json:"created_at"`
}

const analysisColumns = `id, result_uuid, job_id, resume_id, agent_id, overall_score, skill_match_score,
	experience_score, keyword_coverage, match_scores, matching_skills, missing_skills, strengths,
	weaknesses, suggestions, raw_response, execution_time, created_at`

func scanAnalysis(s scanner) (*Analysis, error) {
	var (
		a                                 Analysis
		uuid, raw                         sql.NullString
		agentID                           sql.NullInt64
		overall, skill, exp, kw, execTime sql.NullFloat64
		scores, matching, missing, str    sql.NullString
		weak, sugg                        sql.NullString
		created                           string
	)
	err := s.Scan(&a.ID, &uuid, &a.JobID, &a.ResumeID, &agentID, &overall, &skill, &exp, &kw,
		&scores, &matching, &missing, &str, &weak, &sugg, &raw, &execTime, &created)
	if err != nil {
		return nil, err
	}
	a.UUID, a.RawResponse = uuid.String, raw.String
	a.AgentID = ptrInt(agentID)
	a.OverallScore, a.SkillMatchScore, a.ExperienceScore = overall.Float64, skill.Float64, exp.Float64
	a.KeywordCoverage, a.ExecutionTime = kw.Float64, execTime.Float64
	fromJSON(scores, &a.MatchScores)
	fromJSON(matching, &a.MatchingSkills)
	fromJSON(missing, &a.MissingSkills)
	fromJSON(str, &a.Strengths)
	fromJSON(weak, &a.Weaknesses)
	fromJSON(sugg, &a.Suggestions)
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// SaveAnalysis inserts a and returns its id.
func (d *DB) SaveAnalysis(ctx context.Context, a *Analysis) (int64, error) {
	res, err := d.db.ExecContext(ctx, `INSERT INTO analyses (result_uuid, job_id, resume_id, agent_id,
		overall_score, skill_match_score, experience_score, keyword_coverage, match_scores, matching_skills,
		missing_skills, strengths, weaknesses, suggestions, raw_response, execution_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UUID, a.JobID, a.ResumeID, nullInt(a.AgentID), a.OverallScore, a.SkillMatchScore, a.ExperienceScore,
		a.KeywordCoverage, toJSON(a.MatchScores), toJSON(orEmpty(a.MatchingSkills)), toJSON(orEmpty(a.MissingSkills)),
		toJSON(orEmpty(a.Strengths)), toJSON(orEmpty(a.Weaknesses)), toJSON(orEmpty(a.Suggestions)),
		a.RawResponse, a.ExecutionTime, now())
	if err != nil {
		return 0, wrap("保存分析结果失败", err)
	}
	id, _ := res.LastInsertId()
	a.ID = id
	return id, nil
}

// GetAnalysis loads one analysis.
func (d *DB) GetAnalysis(ctx context.Context, id int64) (*Analysis, error) {
	a, err := scanAnalysis(d.db.QueryRowContext(ctx, "SELECT "+analysisColumns+" FROM analyses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("获取分析结果失败", ErrNotFound)
	}
	return a, wrap("获取分析结果失败", err)
}

// ListAnalyses returns analyses newest first, optionally filtered by job
// and/or resume (0 means any).
func (d *DB) ListAnalyses(ctx context.Context, jobID, resumeID int64, limit int) ([]Analysis, error) {
	q := "SELECT " + analysisColumns + " FROM analyses WHERE 1=1"
	var args []any
	if jobID > 0 {
		q += " AND job_id = ?"
		args = append(args, jobID)
	}
	if resumeID > 0 {
		q += " AND resume_id = ?"
		args = append(args, resumeID)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("获取分析列表失败", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, wrap("获取分析列表失败", err)
		}
		out = append(out, *a)
	}
	return out, wrap("获取分析列表失败", rows.Err())
}

// DeleteAnalysis removes one analysis.
func (d *DB) DeleteAnalysis(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return wrap("删除分析结果失败", err)
	}
	return affected(res, "删除分析结果失败")
}
