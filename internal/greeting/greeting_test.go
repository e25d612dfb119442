package greeting

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

var (
	testJob    = &storage.Job{ID: 1, Title: "Go工程师", Company: "星辰科技", Skills: []string{"Go", "Redis", "Kafka", "MySQL"}}
	testResume = &storage.Resume{ID: 2, Skills: []string{"redis", "Go", "Python"},
		Experience: []map[string]string{{"company": "A"}, {"company": "B"}}}
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []string
		wantErr bool
	}{
		{
			name:  "fenced json",
			reply: "```json\n{\"greetings\": [\"您好，我对贵司Go岗位很感兴趣\", \"短\", \"我有五年Go开发经验，期待沟通\"]}\n```",
			want:  []string{"您好，我对贵司Go岗位很感兴趣", "我有五年Go开发经验，期待沟通"},
		},
		{
			name:  "capped at three",
			reply: `{"greetings": ["第一条足够长的打招呼语内容", "第二条足够长的打招呼语内容", "第三条足够长的打招呼语内容", "第四条足够长的打招呼语内容"]}`,
			want:  []string{"第一条足够长的打招呼语内容", "第二条足够长的打招呼语内容", "第三条足够长的打招呼语内容"},
		},
		{name: "too few", reply: `{"greetings": ["第一条足够长的打招呼语内容", 42]}`, wantErr: true},
		{name: "not json", reply: "好的", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchingSkills(t *testing.T) {
	assert.Equal(t, []string{"Go", "Redis"}, MatchingSkills(testJob.Skills, testResume.Skills))
	assert.Empty(t, MatchingSkills(nil, testResume.Skills))
}

func TestUserPrompt(t *testing.T) {
	opts := DefaultOptions()
	opts.CustomTone = "幽默一点"
	p := UserPrompt(testJob, testResume, opts)
	assert.Contains(t, p, "职位名称：Go工程师")
	assert.Contains(t, p, "工作经验：2段工作经历")
	assert.Contains(t, p, "匹配技能：Go, Redis")
	assert.Contains(t, p, "80-100字以内")
	assert.Contains(t, p, "正式商务、友好专业、简洁直接")
	assert.Contains(t, p, "幽默一点")

	p = UserPrompt(testJob, testResume, Options{Style: StyleConcise, Length: LengthShort})
	assert.Contains(t, p, "50字以内")
	assert.Contains(t, p, "统一采用简洁直接的风格")
	assert.NotContains(t, p, "突出匹配的技能")
}

func TestTemplates(t *testing.T) {
	out := Templates(testJob, testResume)
	require.Len(t, out, 3)
	assert.Contains(t, out[0], "星辰科技的Go工程师职位")
	assert.Contains(t, out[0], "在redis等技术方面")

	out = Templates(&storage.Job{}, &storage.Resume{})
	assert.Contains(t, out[0], "贵公司的该职位职位非常感兴趣，希望")
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	good := llm.Func(func(context.Context, []llm.Message) (string, error) {
		return `{"greetings": ["第一条足够长的打招呼语内容", "第二条足够长的打招呼语内容"]}`, nil
	})
	broken := llm.Func(func(context.Context, []llm.Message) (string, error) { return "", errors.New("503") })

	tests := []struct {
		name   string
		llm    llm.Completer
		source string
		count  int
	}{
		{"ai", good, SourceAI, 2},
		{"llm error", broken, SourceTemplate, 3},
		{"no llm", nil, SourceTemplate, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewGenerator(nil, tt.llm).Generate(ctx, testJob, testResume, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.source, res.Source)
			assert.Len(t, res.Greetings, tt.count)
			assert.Equal(t, StyleMixed, res.Options.Style)
		})
	}

	_, err := NewGenerator(nil, nil).Generate(ctx, testJob, testResume, Options{Style: "随意"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = NewGenerator(nil, nil).Generate(ctx, nil, testResume, Options{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSaveAndHistory(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	jobID, err := db.SaveJob(ctx, &storage.Job{URL: "manual://g", Title: "Go工程师", Company: "星辰科技",
		Description: "d", Requirements: "r", Skills: []string{"Go"}, Status: storage.JobActive})
	require.NoError(t, err)
	resID, err := db.SaveResume(ctx, &storage.Resume{Name: "cv", Content: "c", Skills: []string{"Go"}, IsDefault: true})
	require.NoError(t, err)

	g := NewGenerator(db, nil)
	res, job, resume, err := g.GenerateFor(ctx, jobID, 0, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, resID, resume.ID)
	assert.Equal(t, jobID, job.ID)

	for i, text := range res.Greetings[:2] {
		gr, err := g.Save(ctx, jobID, resID, text, i == 1)
		require.NoError(t, err)
		assert.Equal(t, i+1, gr.Version)
	}
	_, err = g.Save(ctx, jobID, resID, "  ", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	hist, err := g.History(ctx, jobID, resID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 2, hist[0].Version)
	assert.True(t, hist[0].IsCustom)
}
