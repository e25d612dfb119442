package agents

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_resume/internal/apperr"
)

var routes = []struct {
	typ      AgentType
	keywords []string
}{
	{TypeTechnical, []string{"开发", "程序员", "工程师", "技术", "编程", "代码", "软件", "算法"}},
	{TypeManagement, []string{"经理", "主管", "总监", "管理", "领导", "团队"}},
	{TypeCreative, []string{"设计", "创意", "美术", "ui", "ux", "视觉"}},
	{TypeSales, []string{"销售", "客户", "业务", "市场", "bd"}},
}

// RecommendType picks the agent type whose keywords first match the job
// description, falling back to general.
func RecommendType(jobDescription string) AgentType {
	desc := strings.ToLower(jobDescription)
	for _, r := range routes {
		if containsAny(desc, r.keywords...) {
			return r.typ
		}
	}
	return TypeGeneral
}

// Recommend returns the built-in agent for the recommended type. When no
// built-in of that type is installed it tries the general agent.
func (m *Manager) Recommend(ctx context.Context, jobDescription string) (*Agent, error) {
	builtins, err := m.List(ctx, "", true, false)
	if err != nil {
		return nil, err
	}
	for _, t := range []AgentType{RecommendType(jobDescription), TypeGeneral} {
		for i := range builtins {
			if builtins[i].Type == string(t) {
				return &builtins[i], nil
			}
		}
	}
	return nil, apperr.AIService("没有可用的Agent", "agents", "")
}
