package agents

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

const textReply = `总体匹配度：85分
技能匹配度: 120
经验匹配度 70.5
关键词覆盖率评分 60
缺失的关键技能：
- Kubernetes
• Docker
简历优势
1. 基础扎实
改进建议
2. 补充项目经验`

func TestParseResponseText(t *testing.T) {
	a := ParseResponse(textReply)
	assert.InDelta(t, 85, a.OverallScore, 1e-9)
	assert.InDelta(t, 100, a.SkillMatchScore, 1e-9)
	assert.InDelta(t, 70.5, a.ExperienceScore, 1e-9)
	assert.InDelta(t, 60, a.KeywordCoverage, 1e-9)
	assert.Equal(t, []string{"Kubernetes", "Docker"}, a.MissingSkills)
	assert.Equal(t, []string{"基础扎实"}, a.Strengths)
	assert.Equal(t, []string{"补充项目经验"}, a.Suggestions)
}

func TestParseResponseJSON(t *testing.T) {
	a := ParseResponse(` {"overall_score": 77, "strengths": ["沟通"]}`)
	assert.InDelta(t, 77, a.OverallScore, 1e-9)
	assert.Equal(t, []string{"沟通"}, a.Strengths)
	assert.NotNil(t, a.MissingSkills)

	a = ParseResponse("```json\n{\"overall_score\": 64}\n```")
	assert.InDelta(t, 64, a.OverallScore, 1e-9)

	// broken JSON falls back to the line extractor
	a = ParseResponse("{总体匹配度 50")
	assert.InDelta(t, 50, a.OverallScore, 1e-9)
}

func TestTemplates(t *testing.T) {
	for _, b := range Builtins() {
		assert.NoError(t, ValidateTemplate(b.PromptTemplate), b.Name)
	}
	err := ValidateTemplate("只有 {job_description}")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	out := FormatPrompt("{job_description}|{resume_content}|{job_skills}|{extra}|{unknown}", AnalysisContext{
		JobDescription: "JD",
		ResumeContent:  "CV",
		JobSkills:      []string{"Go", "SQL"},
		Additional:     map[string]string{"extra": "X"},
	})
	assert.Equal(t, "JD|CV|Go, SQL|X|{unknown}", out)
}

func TestRecommendType(t *testing.T) {
	tests := []struct {
		desc string
		want AgentType
	}{
		{"招聘后端开发工程师", TypeTechnical},
		{"技术团队经理", TypeTechnical},
		{"销售团队主管", TypeManagement},
		{"资深UI设计师", TypeCreative},
		{"负责ux研究", TypeCreative},
		{"大客户销售", TypeSales},
		{"BD专员", TypeSales},
		{"前台接待", TypeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendType(tt.desc))
		})
	}
}

func newManager(t *testing.T, c llm.Completer) (*Manager, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	m := NewManager(db, c)
	require.NoError(t, m.EnsureBuiltins(context.Background()))
	return m, db
}

func TestEnsureBuiltinsIdempotent(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.EnsureBuiltins(ctx))

	all, err := m.List(ctx, "", true, true)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	a, err := m.Recommend(ctx, "Go开发")
	require.NoError(t, err)
	assert.Equal(t, "技术岗位专用Agent", a.Name)
}

func TestCreateUpdateDelete(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()
	tmpl := "JD={job_description} CV={resume_content}"

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"no name", CreateInput{Type: "general", PromptTemplate: tmpl}, "name"},
		{"bad type", CreateInput{Name: "x", Type: "robot", PromptTemplate: tmpl}, "agent_type"},
		{"bad template", CreateInput{Name: "x", Type: "general", PromptTemplate: "{resume_content}"}, "prompt_template"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, tt.in)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.field, ae.Context["field"])
		})
	}

	a, err := m.Create(ctx, CreateInput{Name: " 我的Agent ", Type: "sales", PromptTemplate: tmpl})
	require.NoError(t, err)
	assert.Equal(t, "我的Agent", a.Name)

	custom, err := m.List(ctx, "", false, true)
	require.NoError(t, err)
	require.Len(t, custom, 1)

	desc := "新描述"
	up, err := m.Update(ctx, a.ID, Patch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, up.Description)

	builtin, err := m.Recommend(ctx, "随便")
	require.NoError(t, err)
	_, err = m.Update(ctx, builtin.ID, Patch{Description: &desc})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = m.Delete(ctx, builtin.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	ok, err := m.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzeWithRecordsUsage(t *testing.T) {
	fail := false
	m, _ := newManager(t, llm.Func(func(_ context.Context, msgs []llm.Message) (string, error) {
		if fail {
			return "", errors.New("timeout")
		}
		require.Len(t, msgs, 1)
		return textReply, nil
	}))
	ctx := context.Background()
	agent, err := m.Recommend(ctx, "")
	require.NoError(t, err)
	c := AnalysisContext{JobDescription: "JD", ResumeContent: "CV"}

	out, err := m.AnalyzeWith(ctx, agent.ID, c)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.InDelta(t, 85, out.Analysis.OverallScore, 1e-9)

	fail = true
	out2, err := m.AnalyzeWith(ctx, agent.ID, c)
	require.NoError(t, err)
	assert.False(t, out2.Success)
	assert.Contains(t, out2.Error, "timeout")

	require.NoError(t, m.RateUsage(ctx, out.UsageID, 4, "不错"))
	assert.True(t, apperr.Is(m.RateUsage(ctx, out.UsageID, 6, ""), apperr.KindValidation))

	st, err := m.Statistics(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.UsageCount)
	assert.Equal(t, 1, st.SuccessCount)
	assert.InDelta(t, 4, st.AverageRating, 1e-9)

	got, err := m.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	assert.InDelta(t, 4, got.AverageRating, 1e-9)
}

func TestAnalyzeWithoutModel(t *testing.T) {
	m, _ := newManager(t, nil)
	agent, err := m.Recommend(context.Background(), "")
	require.NoError(t, err)
	out, err := m.AnalyzeWith(context.Background(), agent.ID, AnalysisContext{JobDescription: "a", ResumeContent: "b"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "AI服务不可用")
}

func TestIntegratorSavesAnalysis(t *testing.T) {
	m, db := newManager(t, llm.Func(func(context.Context, []llm.Message) (string, error) { return textReply, nil }))
	ctx := context.Background()
	jobID, err := db.SaveJob(ctx, &storage.Job{URL: "manual://x", Title: "Go开发", Company: "c",
		Description: "d", Requirements: "r", Status: storage.JobActive})
	require.NoError(t, err)
	resID, err := db.SaveResume(ctx, &storage.Resume{Name: "cv", Content: "CV"})
	require.NoError(t, err)

	in := NewIntegrator(m, db)
	res, err := in.AnalyzeWithRecommended(ctx, Request{JobID: jobID, ResumeID: resID,
		JobDescription: "后端开发工程师", ResumeContent: "CV"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, string(TypeTechnical), res.AgentType)
	require.Positive(t, res.AnalysisID)

	stored, err := db.GetAnalysis(ctx, res.AnalysisID)
	require.NoError(t, err)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, res.AgentID, *stored.AgentID)
	assert.InDelta(t, 85, stored.OverallScore, 1e-9)

	u, err := db.GetUsage(ctx, res.UsageID)
	require.NoError(t, err)
	require.NotNil(t, u.AnalysisID)
	assert.Equal(t, res.AnalysisID, *u.AnalysisID)
}

func TestCompare(t *testing.T) {
	var calls atomic.Int32
	m, _ := newManager(t, llm.Func(func(_ context.Context, msgs []llm.Message) (string, error) {
		calls.Add(1)
		switch {
		case strings.Contains(msgs[0].Content, "技术招聘专家"):
			return `{"overall_score": 90, "skill_match_score": 80}`, nil
		case strings.Contains(msgs[0].Content, "销售招聘专家"):
			return "", errors.New("down")
		}
		return `{"overall_score": 70, "skill_match_score": 60}`, nil
	}))
	ctx := context.Background()
	all, err := m.List(ctx, "", true, false)
	require.NoError(t, err)
	ids := []int64{999}
	for _, a := range all {
		ids = append(ids, a.ID)
	}

	res, err := NewIntegrator(m, nil).Compare(ctx, Request{JobDescription: "JD", ResumeContent: "CV"}, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 5, calls.Load())
	require.Len(t, res.Results, 4)

	overall := res.Comparison.Scores["overall_score"]
	assert.InDelta(t, 75, overall.Average, 1e-9)
	assert.InDelta(t, 90, overall.Max, 1e-9)
	assert.InDelta(t, 70, overall.Min, 1e-9)
	assert.InDelta(t, 75, overall.Variance, 1e-9)
	require.NotNil(t, res.Comparison.BestAgent)
	assert.Equal(t, "技术岗位专用Agent", res.Comparison.BestAgent.AgentName)
}

func TestStats(t *testing.T) {
	s := stats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, s.Average, 1e-9)
	assert.InDelta(t, 4, s.Variance, 1e-9)
	assert.InDelta(t, 9, s.Max, 1e-9)
	assert.InDelta(t, 2, s.Min, 1e-9)
}
