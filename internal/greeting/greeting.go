// Package greeting writes short opening messages to recruiters for a
// job/resume pair and keeps a versioned history of them.
package greeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Styles.
const (
	StyleMixed    = "智能混合"
	StyleFormal   = "正式商务"
	StyleFriendly = "友好专业"
	StyleConcise  = "简洁直接"
)

// Lengths.
const (
	LengthShort  = "简短"
	LengthMedium = "适中"
	LengthLong   = "详细"
)

// Styles and Lengths list the accepted option values.
var (
	Styles  = []string{StyleMixed, StyleFormal, StyleFriendly, StyleConcise}
	Lengths = []string{LengthShort, LengthMedium, LengthLong}
)

var lengthLimits = map[string]string{
	LengthShort:  "50字以内",
	LengthMedium: "80-100字以内",
	LengthLong:   "120-150字以内",
}

// Options tune generation. Zero values select the defaults.
type Options struct {
	Style             string `json:"style"`
	Length            string `json:"length"`
	IncludeSkills     bool   `json:"include_skills"`
	IncludeExperience bool   `json:"include_experience"`
	CustomTone        string `json:"custom_tone,omitempty"`
}

// DefaultOptions returns mixed style, medium length, with skills and
// experience highlighted.
func DefaultOptions() Options {
	return Options{Style: StyleMixed, Length: LengthMedium, IncludeSkills: true, IncludeExperience: true}
}

func (o Options) normalize() (Options, error) {
	if o.Style == "" {
		o.Style = StyleMixed
	}
	if o.Length == "" {
		o.Length = LengthMedium
	}
	if !contains(Styles, o.Style) {
		return o, apperr.Validation("不支持的打招呼语风格: "+o.Style, "style")
	}
	if !contains(Lengths, o.Length) {
		return o, apperr.Validation("不支持的长度选项: "+o.Length, "length")
	}
	return o, nil
}

// Source values of a Result.
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
)

// Result holds generated greetings.
type Result struct {
	Greetings []string `json:"greetings"`
	Source    string   `json:"source"`
	Options   Options  `json:"options"`
}

// Generator produces and stores greetings.
type Generator struct {
	db  *storage.DB
	llm llm.Completer
	log *slog.Logger
}

// NewGenerator returns a Generator. A nil completer uses templates only.
func NewGenerator(db *storage.DB, c llm.Completer) *Generator {
	return &Generator{db: db, llm: c, log: logging.Component("greeting")}
}

// Generate writes up to three greetings for job and resume. Any model
// failure falls back to the template greetings.
func (g *Generator) Generate(ctx context.Context, job *storage.Job, resume *storage.Resume, opts Options) (*Result, error) {
	if job == nil || resume == nil {
		return nil, apperr.Validation("请先选择职位和简历", "job_resume")
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if g.llm != nil && g.llm.Available(ctx) {
		out, err := g.generateAI(ctx, job, resume, opts)
		if err == nil {
			return &Result{Greetings: out, Source: SourceAI, Options: opts}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn("AI greeting failed, using templates", slog.Any("error", err))
	}
	return &Result{Greetings: Templates(job, resume), Source: SourceTemplate, Options: opts}, nil
}

// GenerateFor loads the job and resume by id. A zero resumeID selects the
// default resume.
func (g *Generator) GenerateFor(ctx context.Context, jobID, resumeID int64, opts Options) (*Result, *storage.Job, *storage.Resume, error) {
	job, err := g.db.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}
	var res *storage.Resume
	if resumeID > 0 {
		res, err = g.db.GetResume(ctx, resumeID)
	} else {
		res, err = g.db.DefaultResume(ctx)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	out, err := g.Generate(ctx, job, res, opts)
	return out, job, res, err
}

func (g *Generator) generateAI(ctx context.Context, job *storage.Job, resume *storage.Resume, opts Options) ([]string, error) {
	reply, err := g.llm.Chat(ctx, []llm.Message{
		llm.System(systemPrompt),
		llm.User(UserPrompt(job, resume, opts)),
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(reply)
}

const systemPrompt = `你是一个专业的求职顾问，擅长撰写个性化的求职打招呼语。

请严格按照以下JSON格式返回结果：

{
    "greetings": [
        "第一个打招呼语内容",
        "第二个打招呼语内容",
        "第三个打招呼语内容"
    ]
}

要求：
1. 每个打招呼语要个性化，避免模板化
2. 突出求职者与职位的匹配点
3. 语言要自然流畅，有说服力
4. 避免过度夸大或谦逊
5. 体现专业素养和求职诚意`

// UserPrompt describes the job, the candidate and the requested tone.
func UserPrompt(job *storage.Job, resume *storage.Resume, opts Options) string {
	var sb strings.Builder
	sb.WriteString("请基于以下信息生成3个不同风格的求职打招呼语：\n\n【目标职位】\n")
	fmt.Fprintf(&sb, "职位名称：%s\n公司名称：%s\n技能要求：%s\n\n", job.Title, job.Company, strings.Join(head(job.Skills, 5), ", "))
	sb.WriteString("【求职者信息】\n")
	fmt.Fprintf(&sb, "技能：%s\n工作经验：%d段工作经历\n匹配技能：%s\n\n",
		strings.Join(head(resume.Skills, 5), ", "), len(resume.Experience),
		strings.Join(head(MatchingSkills(job.Skills, resume.Skills), 3), ", "))

	sb.WriteString("要求：\n")
	fmt.Fprintf(&sb, "1. 每个打招呼语控制在%s\n", lengthLimits[opts.Length])
	n := 2
	if opts.IncludeSkills {
		fmt.Fprintf(&sb, "%d. 突出匹配的技能\n", n)
		n++
	}
	if opts.IncludeExperience {
		fmt.Fprintf(&sb, "%d. 提及相关的工作经验\n", n)
		n++
	}
	fmt.Fprintf(&sb, "%d. 体现对该职位的兴趣和了解\n", n)
	n++
	if opts.Style == StyleMixed {
		fmt.Fprintf(&sb, "%d. 三个版本分别采用：正式商务、友好专业、简洁直接的风格\n", n)
	} else {
		fmt.Fprintf(&sb, "%d. 三个版本统一采用%s的风格，措辞各不相同\n", n, opts.Style)
	}
	if tone := strings.TrimSpace(opts.CustomTone); tone != "" {
		fmt.Fprintf(&sb, "补充语气要求：%s\n", tone)
	}
	return sb.String()
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// minGreetingRunes is the exclusive lower bound for a usable greeting.
const minGreetingRunes = 10

// ParseResponse reads {"greetings": [...]} from reply. At least two usable
// greetings are required; at most three are returned.
func ParseResponse(reply string) ([]string, error) {
	raw := reply
	if m := jsonObjectRe.FindString(reply); m != "" {
		raw = m
	}
	var data struct {
		Greetings []any `json:"greetings"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, apperr.AIService("打招呼语响应解析失败: "+err.Error(), "greeting", "")
	}
	var out []string
	for _, item := range data.Greetings {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); engine.RuneLen(s) > minGreetingRunes {
			out = append(out, s)
		}
	}
	if len(out) < 2 {
		return nil, errors.New("AI生成的打招呼语数量不足")
	}
	return out[:min(len(out), 3)], nil
}

// Templates returns the three fixed greetings.
func Templates(job *storage.Job, resume *storage.Resume) []string {
	title, company := job.Title, job.Company
	if title == "" {
		title = "该职位"
	}
	if company == "" {
		company = "贵公司"
	}
	skillText := ""
	if len(resume.Skills) > 0 {
		skillText = fmt.Sprintf("，在%s等技术方面有丰富经验", resume.Skills[0])
	}
	return []string{
		fmt.Sprintf("您好！我对%s的%s职位非常感兴趣%s，希望能有机会与您详细交流，期待您的回复。", company, title, skillText),
		fmt.Sprintf("尊敬的HR，我是一名经验丰富的开发者，看到%s招聘%s的信息后，觉得自己的技能背景与职位需求高度匹配，希望能加入您的团队。", company, title),
		fmt.Sprintf("Hello！我在招聘平台上关注到%s的%s职位，我的专业技能和项目经验正好符合职位要求，希望有机会进一步沟通。", company, title),
	}
}

// MatchingSkills returns the job skills also listed on the resume,
// compared case-insensitively, in job order.
func MatchingSkills(jobSkills, resumeSkills []string) []string {
	have := make(map[string]bool, len(resumeSkills))
	for _, s := range resumeSkills {
		have[strings.ToLower(s)] = true
	}
	var out []string
	for _, s := range jobSkills {
		if have[strings.ToLower(s)] {
			out = append(out, s)
		}
	}
	return engine.Dedupe(out)
}

// Save stores content as the next greeting version for the pair.
func (g *Generator) Save(ctx context.Context, jobID, resumeID int64, content string, custom bool) (*storage.Greeting, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("打招呼语内容不能为空", "content")
	}
	gr := &storage.Greeting{JobID: jobID, ResumeID: resumeID, Content: content, IsCustom: custom}
	if _, err := g.db.SaveGreeting(ctx, gr); err != nil {
		return nil, err
	}
	g.log.Info("greeting saved", slog.Int64("job", jobID), slog.Int64("resume", resumeID), slog.Int("version", gr.Version))
	return gr, nil
}

// History returns the saved greetings for a job/resume pair.
func (g *Generator) History(ctx context.Context, jobID, resumeID int64) ([]storage.Greeting, error) {
	return g.db.ListGreetingsFor(ctx, jobID, resumeID)
}

func head(s []string, n int) []string {
	return s[:min(len(s), n)]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
