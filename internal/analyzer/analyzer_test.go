package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

const goodReply = "分析如下：\n```json\n" + `{
  "match_scores": {"技能匹配度": 88, "经验匹配度": 120, "教育背景": "70"},
  "overall_score": 81.5,
  "suggestions": ["补充K8s经验", ""],
  "matching_skills": ["Go", "Redis"],
  "missing_skills": ["Kubernetes"],
  "strengths": ["基础扎实"],
  "weaknesses": ["缺少大型项目"]
}` + "\n```"

var testJob = JobInfo{ID: 1, Title: "Go工程师", Company: "测试公司", Description: "后端开发", Requirements: "熟悉Go"}

func TestParseResponse(t *testing.T) {
	p := ParseResponse(goodReply, nil)
	assert.InDelta(t, 81.5, p.OverallScore, 1e-9)
	assert.Equal(t, map[string]float64{"技能匹配度": 88, "经验匹配度": 100, "教育背景": 70}, p.MatchScores)
	assert.Equal(t, []string{"补充K8s经验"}, p.Suggestions)
	assert.Equal(t, []string{"Go", "Redis"}, p.MatchingSkills)
	assert.Equal(t, []string{"Kubernetes"}, p.MissingSkills)
}

func TestParseResponseDefaults(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, p Parsed)
	}{
		{"not json", "抱歉，我无法分析", func(t *testing.T, p Parsed) {
			assert.Equal(t, DefaultParsed(), p)
		}},
		{"broken json", `{"overall_score": 80,`, func(t *testing.T, p Parsed) {
			assert.Equal(t, []string{"建议重新进行详细分析"}, p.Suggestions)
			assert.InDelta(t, 60, p.OverallScore, 1e-9)
		}},
		{"missing fields", `{"overall_score": -5}`, func(t *testing.T, p Parsed) {
			assert.InDelta(t, 0, p.OverallScore, 1e-9)
			assert.Equal(t, map[string]float64{"总体匹配": 60}, p.MatchScores)
			assert.Empty(t, p.Suggestions)
			assert.NotNil(t, p.Strengths)
		}},
		{"non numeric score", `{"overall_score": "high"}`, func(t *testing.T, p Parsed) {
			assert.InDelta(t, 60, p.OverallScore, 1e-9)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ParseResponse(tt.reply, nil))
		})
	}
}

func TestUserPrompt(t *testing.T) {
	j := testJob
	j.Salary = "20-30K"
	out := UserPrompt("我的简历", j)
	assert.Contains(t, out, "【职位信息】")
	assert.Contains(t, out, "职位名称：Go工程师")
	assert.Contains(t, out, "薪资范围：20-30K")
	assert.NotContains(t, out, "工作地点")
	assert.Contains(t, out, "【简历内容】\n我的简历")
}

func TestEngineAnalyze(t *testing.T) {
	var sent []llm.Message
	e := NewEngine(llm.Func(func(_ context.Context, msgs []llm.Message) (string, error) {
		sent = msgs
		return goodReply, nil
	}))
	r, err := e.Analyze(context.Background(), "简历", testJob)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	assert.Equal(t, Version, r.Version)
	assert.Len(t, r.ID, 36)
	assert.Equal(t, int64(1), r.JobID)
	assert.Equal(t, goodReply, r.RawResponse)
}

func TestEngineValidation(t *testing.T) {
	e := NewEngine(llm.Func(func(context.Context, []llm.Message) (string, error) { return "{}", nil }))
	tests := []struct {
		name   string
		resume string
		job    JobInfo
		field  string
	}{
		{"empty resume", "  ", testJob, "resume_content"},
		{"no title", "简历", JobInfo{Description: "x"}, "job_info"},
		{"no description", "简历", JobInfo{Title: "x"}, "job_info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Analyze(context.Background(), tt.resume, tt.job)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tt.field, ae.Context["field"])
		})
	}
}

func TestEngineWrapsPlainErrors(t *testing.T) {
	e := NewEngine(llm.Func(func(context.Context, []llm.Message) (string, error) {
		return "", errors.New("boom")
	}))
	_, err := e.Analyze(context.Background(), "简历", testJob)
	assert.True(t, apperr.Is(err, apperr.KindAIService))
}

func seed(t *testing.T) (*storage.DB, int64, int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	jobID, err := db.SaveJob(ctx, &storage.Job{URL: "manual://1", Title: "Go工程师", Company: "测试公司",
		Description: "后端开发", Requirements: "熟悉Go", Status: storage.JobActive})
	require.NoError(t, err)
	resID, err := db.SaveResume(ctx, &storage.Resume{Name: "r", Content: "张三 Go Redis", IsDefault: true})
	require.NoError(t, err)
	return db, jobID, resID
}

func TestServicePersists(t *testing.T) {
	db, jobID, resID := seed(t)
	s := NewService(db, llm.Func(func(context.Context, []llm.Message) (string, error) { return goodReply, nil }))
	ctx := context.Background()

	r, err := s.AnalyzeStored(ctx, jobID, 0)
	require.NoError(t, err)
	assert.Equal(t, resID, r.ResumeID)

	list, err := s.List(ctx, jobID, resID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].UUID)
	assert.InDelta(t, 88, list[0].SkillMatchScore, 1e-9)
	assert.InDelta(t, 100, list[0].ExperienceScore, 1e-9)

	require.NoError(t, s.Delete(ctx, list[0].ID))
	_, err = s.Get(ctx, list[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServiceMockWithoutModel(t *testing.T) {
	db, jobID, resID := seed(t)
	s := NewService(db, nil)
	assert.False(t, s.Available(context.Background()))

	r, err := s.AnalyzeStored(context.Background(), jobID, resID)
	require.NoError(t, err)
	assert.Equal(t, MockVersion, r.Version)
	assert.InDelta(t, 74, r.OverallScore, 1e-9)

	// unsaved ids skip persistence
	_, err = s.Analyze(context.Background(), "简历", 0, testJob)
	require.NoError(t, err)
	list, err := s.List(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
