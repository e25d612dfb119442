// Package analyzer scores how well a resume matches a job posting using an
// LLM, with a fixed fallback when no model is configured.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/logging"
)

// Version tags results produced by the model; MockVersion tags the fallback.
const (
	Version     = "1.0"
	MockVersion = "1.0-mock"
)

// JobInfo is the job side of an analysis.
type JobInfo struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	Description     string `json:"description"`
	Requirements    string `json:"requirements"`
	Location        string `json:"location,omitempty"`
	Salary          string `json:"salary,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
}

// Result is one resume/job match analysis.
type Result struct {
	ID             string             `json:"id"`
	ResumeID       int64              `json:"resume_id"`
	JobID          int64              `json:"job_id"`
	MatchScores    map[string]float64 `json:"match_scores"`
	OverallScore   float64            `json:"overall_score"`
	Suggestions    []string           `json:"suggestions"`
	MatchingSkills []string           `json:"matching_skills"`
	MissingSkills  []string           `json:"missing_skills"`
	Strengths      []string           `json:"strengths"`
	Weaknesses     []string           `json:"weaknesses"`
	CreatedAt      time.Time          `json:"created_at"`
	Version        string             `json:"analysis_version"`
	RawResponse    string             `json:"-"`
	Elapsed        time.Duration      `json:"-"`
}

// Parsed holds the fields read from a model reply.
type Parsed struct {
	MatchScores    map[string]float64 `json:"match_scores"`
	OverallScore   float64            `json:"overall_score"`
	Suggestions    []string           `json:"suggestions"`
	MatchingSkills []string           `json:"matching_skills"`
	MissingSkills  []string           `json:"missing_skills"`
	Strengths      []string           `json:"strengths"`
	Weaknesses     []string           `json:"weaknesses"`
}

const systemPrompt = `你是一个专业的HR和简历分析专家。你的任务是分析简历与职位的匹配度，并提供详细的分析报告。

请严格按照以下JSON格式返回分析结果：

{
    "match_scores": {
        "技能匹配度": 85.0,
        "经验匹配度": 75.0,
        "教育背景": 90.0,
        "岗位契合度": 80.0
    },
    "overall_score": 82.5,
    "suggestions": [
        "建议补充相关项目经验",
        "可以学习更多行业相关技能"
    ],
    "matching_skills": ["Python", "机器学习", "数据分析"],
    "missing_skills": ["Kubernetes", "Docker", "微服务"],
    "strengths": ["技术基础扎实", "学习能力强"],
    "weaknesses": ["缺乏大型项目经验", "团队协作经验较少"]
}

要求：
1. match_scores中的分数为0-100的浮点数
2. overall_score为所有分项的加权平均，保留1位小数
3. suggestions提供3-5条具体的改进建议
4. skills数组包含具体的技能名称
5. strengths和weaknesses各提供2-4个要点
6. 分析要客观、专业、有建设性`

// SystemPrompt returns the JSON contract sent as the system message.
func SystemPrompt() string { return systemPrompt }

// UserPrompt renders the job and resume for the model.
func UserPrompt(resumeContent string, job JobInfo) string {
	var sb strings.Builder
	sb.WriteString("请分析以下简历与职位的匹配度：\n\n【职位信息】\n")
	fmt.Fprintf(&sb, "职位名称：%s\n公司：%s\n职位描述：%s\n职位要求：%s\n", job.Title, job.Company, job.Description, job.Requirements)
	if job.Location != "" {
		fmt.Fprintf(&sb, "工作地点：%s\n", job.Location)
	}
	if job.Salary != "" {
		fmt.Fprintf(&sb, "薪资范围：%s\n", job.Salary)
	}
	if job.ExperienceLevel != "" {
		fmt.Fprintf(&sb, "经验要求：%s\n", job.ExperienceLevel)
	}
	sb.WriteString("\n【简历内容】\n")
	sb.WriteString(resumeContent)
	sb.WriteString("\n\n请基于以上信息，从技能匹配度、经验匹配度、教育背景、岗位契合度等维度进行详细分析，并按照指定的JSON格式返回结果。")
	return sb.String()
}

// Engine runs analyses against a model.
type Engine struct {
	llm llm.Completer
	log *slog.Logger
	now func() time.Time
}

// NewEngine returns an Engine over c.
func NewEngine(c llm.Completer) *Engine {
	return &Engine{llm: c, log: logging.Component("analyzer"), now: time.Now}
}

// Analyze validates the inputs, asks the model and parses its reply.
func (e *Engine) Analyze(ctx context.Context, resumeContent string, job JobInfo) (*Result, error) {
	if strings.TrimSpace(resumeContent) == "" {
		return nil, apperr.Validation("简历内容不能为空", "resume_content")
	}
	if strings.TrimSpace(job.Title) == "" || strings.TrimSpace(job.Description) == "" {
		return nil, apperr.Validation("职位信息不完整", "job_info")
	}

	e.log.Info("analysis started", slog.String("job", job.Title))
	start := e.now()
	reply, err := e.llm.Chat(ctx, []llm.Message{llm.System(systemPrompt), llm.User(UserPrompt(resumeContent, job))})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) || ctx.Err() != nil {
			return nil, err
		}
		return nil, apperr.AIService(fmt.Sprintf("分析失败: %v", err), "matching_engine", "")
	}
	p := ParseResponse(reply, e.log)
	r := &Result{
		ID:             uuid.NewString(),
		JobID:          job.ID,
		MatchScores:    p.MatchScores,
		OverallScore:   p.OverallScore,
		Suggestions:    p.Suggestions,
		MatchingSkills: p.MatchingSkills,
		MissingSkills:  p.MissingSkills,
		Strengths:      p.Strengths,
		Weaknesses:     p.Weaknesses,
		CreatedAt:      e.now(),
		Version:        Version,
		RawResponse:    reply,
		Elapsed:        e.now().Sub(start),
	}
	e.log.Info("analysis finished", slog.String("overall", fmt.Sprintf("%.1f%%", r.OverallScore)))
	return r, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// DefaultParsed is returned when a reply is not valid JSON.
func DefaultParsed() Parsed {
	return Parsed{
		MatchScores:    map[string]float64{"总体评估": 60},
		OverallScore:   60,
		Suggestions:    []string{"建议重新进行详细分析"},
		MatchingSkills: []string{},
		MissingSkills:  []string{},
		Strengths:      []string{"具备基础条件"},
		Weaknesses:     []string{"需要更多信息进行分析"},
	}
}

// ParseResponse extracts the outermost JSON object from reply, fills
// defaults for missing fields and clamps scores to 0..100. A nil logger
// disables warnings.
func ParseResponse(reply string, log *slog.Logger) Parsed {
	raw := reply
	if m := jsonObjectRe.FindString(reply); m != "" {
		raw = m
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		if log != nil {
			log.Error("analysis reply is not JSON", slog.Any("error", err))
		}
		return DefaultParsed()
	}

	missing := func(field string) {
		if log != nil {
			log.Warn("analysis reply missing field", slog.String("field", field))
		}
	}
	p := Parsed{}

	if rm, ok := data["match_scores"]; ok {
		var scores map[string]any
		if json.Unmarshal(rm, &scores) == nil {
			p.MatchScores = make(map[string]float64, len(scores))
			for k, v := range scores {
				if f, ok := toFloat(v); ok {
					p.MatchScores[k] = clamp(f)
				}
			}
		}
	} else {
		missing("match_scores")
	}
	if p.MatchScores == nil {
		p.MatchScores = map[string]float64{"总体匹配": 60}
	}

	p.OverallScore = 60
	if rm, ok := data["overall_score"]; ok {
		var v any
		if json.Unmarshal(rm, &v) == nil {
			if f, ok := toFloat(v); ok {
				p.OverallScore = clamp(f)
			}
		}
	} else {
		missing("overall_score")
	}

	lists := []struct {
		field string
		dst   *[]string
	}{
		{"suggestions", &p.Suggestions},
		{"matching_skills", &p.MatchingSkills},
		{"missing_skills", &p.MissingSkills},
		{"strengths", &p.Strengths},
		{"weaknesses", &p.Weaknesses},
	}
	for _, l := range lists {
		*l.dst = []string{}
		rm, ok := data[l.field]
		if !ok {
			missing(l.field)
			continue
		}
		*l.dst = stringList(rm)
	}
	return p
}

func stringList(rm json.RawMessage) []string {
	var items []any
	if json.Unmarshal(rm, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		return f, err == nil
	}
	return 0, false
}

func clamp(f float64) float64 {
	return max(0, min(100, f))
}

// MockResult is the fixed analysis used when no model is available.
func MockResult(resumeID int64, job JobInfo) *Result {
	return &Result{
		ID:       uuid.NewString(),
		ResumeID: resumeID,
		JobID:    job.ID,
		MatchScores: map[string]float64{
			"技能匹配度": 75, "经验匹配度": 68, "教育背景": 82, "岗位契合度": 71,
		},
		OverallScore: 74,
		Suggestions: []string{
			"建议补充与该职位相关的项目经验",
			"可以学习职位要求中提到的新技术",
			"完善简历中的量化成果描述",
			"增加行业相关的认证或培训经历",
		},
		MatchingSkills: []string{"Python", "数据分析", "项目管理", "团队协作"},
		MissingSkills:  []string{"Docker", "Kubernetes", "云计算", "大数据处理"},
		Strengths: []string{
			"技术基础扎实，学习能力强",
			"有相关行业工作经验",
			"具备良好的沟通协调能力",
		},
		Weaknesses: []string{
			"缺乏大型项目的技术架构经验",
			"对新兴技术的实践应用较少",
			"行业深度理解有待提升",
		},
		CreatedAt: time.Now(),
		Version:   MockVersion,
	}
}
