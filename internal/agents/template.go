package agents

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_resume/internal/apperr"
)

// AnalysisContext carries the inputs substituted into a prompt template.
type AnalysisContext struct {
	JobID          int64
	ResumeID       int64
	JobDescription string
	ResumeContent  string
	JobSkills      []string
	ResumeSkills   []string
	Additional     map[string]string
}

var requiredVars = []string{"job_description", "resume_content"}

// ValidateTemplate checks that tmpl references every required variable.
func ValidateTemplate(tmpl string) error {
	for _, v := range requiredVars {
		if !strings.Contains(tmpl, "{"+v+"}") {
			return apperr.Validation(fmt.Sprintf("Prompt模板缺少必需变量: {%s}", v), "prompt_template")
		}
	}
	return nil
}

// FormatPrompt substitutes the context into tmpl. Placeholders with no
// matching value are left as written.
func FormatPrompt(tmpl string, c AnalysisContext) string {
	vars := map[string]string{
		"job_description": c.JobDescription,
		"resume_content":  c.ResumeContent,
		"job_skills":      strings.Join(c.JobSkills, ", "),
		"resume_skills":   strings.Join(c.ResumeSkills, ", "),
	}
	for k, v := range c.Additional {
		vars[k] = v
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
