// Package agents manages prompt-template analysis agents: the built-in set,
// user-defined agents, keyword-based recommendation and multi-agent
// comparison.
package agents

import "github.com/anatolykoptev/go_resume/internal/storage"

// Agent is a stored agent.
type Agent = storage.Agent

// AgentType classifies an agent by the kind of job it targets.
type AgentType string

const (
	TypeGeneral    AgentType = "general"
	TypeTechnical  AgentType = "technical"
	TypeManagement AgentType = "management"
	TypeCreative   AgentType = "creative"
	TypeSales      AgentType = "sales"
)

// Types lists every agent type.
var Types = []AgentType{TypeGeneral, TypeTechnical, TypeManagement, TypeCreative, TypeSales}

// ValidType reports whether s names an agent type.
func ValidType(s string) bool {
	for _, t := range Types {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Builtins returns the agents installed by EnsureBuiltins.
func Builtins() []Agent {
	return []Agent{
		{
			Name:        "通用分析Agent",
			Description: "适用于所有类型职位的通用分析",
			Type:        string(TypeGeneral),
			PromptTemplate: `请分析以下简历与职位的匹配度：

职位描述：{job_description}
简历内容：{resume_content}

请从以下维度进行分析：
1. 技能匹配度 (0-100分)
2. 经验匹配度 (0-100分)
3. 关键词覆盖率 (0-100分)
4. 总体匹配度 (0-100分)
5. 缺失的关键技能
6. 简历优势
7. 改进建议

请以JSON格式返回结果，或者清晰地列出各项评分和建议。`,
		},
		{
			Name:        "技术岗位专用Agent",
			Description: "专门针对技术开发岗位的深度分析",
			Type:        string(TypeTechnical),
			PromptTemplate: `作为技术招聘专家，请深度分析以下技术岗位简历匹配度：

职位技能要求：{job_skills}
职位描述：{job_description}
简历技能：{resume_skills}
简历内容：{resume_content}

重点分析：
1. 编程语言匹配度
2. 技术栈相关性
3. 项目经验技术含量
4. 技术深度评估
5. 学习能力体现
6. 具体的技术改进建议

请提供详细的技术评估和具体的技能提升建议。`,
		},
		{
			Name:        "管理岗位专用Agent",
			Description: "专门针对管理类岗位的领导力分析",
			Type:        string(TypeManagement),
			PromptTemplate: `作为管理岗位招聘专家，请分析以下管理岗位简历匹配度：

职位描述：{job_description}
简历内容：{resume_content}

重点评估：
1. 领导力体现
2. 团队管理经验
3. 项目管理能力
4. 战略思维展现
5. 沟通协调能力
6. 业绩管理经验
7. 管理经验的提升建议

请从管理者角度提供专业评估和发展建议。`,
		},
		{
			Name:        "创意行业专用Agent",
			Description: "专门针对创意设计类岗位的创新能力分析",
			Type:        string(TypeCreative),
			PromptTemplate: `作为创意行业招聘专家，请分析以下创意岗位简历匹配度：

职位描述：{job_description}
简历内容：{resume_content}

重点评估：
1. 创意思维体现
2. 设计能力展现
3. 作品集质量
4. 创新项目经验
5. 美学素养体现
6. 跨媒体技能
7. 创意能力提升建议

请从创意专业角度提供评估和作品优化建议。`,
		},
		{
			Name:        "销售岗位专用Agent",
			Description: "专门针对销售类岗位的业绩和沟通能力分析",
			Type:        string(TypeSales),
			PromptTemplate: `作为销售招聘专家，请分析以下销售岗位简历匹配度：

职位描述：{job_description}
简历内容：{resume_content}

重点评估：
1. 销售业绩数据
2. 客户关系管理能力
3. 沟通谈判技巧
4. 市场开拓经验
5. 目标达成能力
6. 抗压能力体现
7. 销售技能提升建议

请从销售专业角度提供评估和业绩优化建议。`,
		},
	}
}
