package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Manager owns the agent lifecycle and runs agent analyses.
type Manager struct {
	db  *storage.DB
	llm llm.Completer
	log *slog.Logger
}

// NewManager returns a Manager. c may be nil; analyses then fail and are
// recorded as failed usage.
func NewManager(db *storage.DB, c llm.Completer) *Manager {
	return &Manager{db: db, llm: c, log: logging.Component("agents")}
}

// EnsureBuiltins installs any missing built-in agent.
func (m *Manager) EnsureBuiltins(ctx context.Context) error {
	for _, b := range Builtins() {
		_, err := m.db.FindBuiltinAgent(ctx, b.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		b.IsBuiltin = true
		if _, err := m.db.SaveAgent(ctx, &b); err != nil {
			return err
		}
		m.log.Info("created builtin agent", slog.String("name", b.Name))
	}
	return nil
}

// CreateInput describes a user-defined agent.
type CreateInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Type           string `json:"agent_type"`
	PromptTemplate string `json:"prompt_template"`
}

// Create validates in and stores a custom agent.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Agent, error) {
	for _, f := range []struct{ name, val string }{
		{"name", in.Name}, {"agent_type", in.Type}, {"prompt_template", in.PromptTemplate},
	} {
		if strings.TrimSpace(f.val) == "" {
			return nil, apperr.Validation("缺少必填字段: "+f.name, f.name)
		}
	}
	if !ValidType(in.Type) {
		return nil, apperr.Validation(fmt.Sprintf("无效的Agent类型: %s，可选: %v", in.Type, Types), "agent_type")
	}
	if err := ValidateTemplate(in.PromptTemplate); err != nil {
		return nil, err
	}
	a := &Agent{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Type:           in.Type,
		PromptTemplate: in.PromptTemplate,
	}
	id, err := m.db.SaveAgent(ctx, a)
	if err != nil {
		return nil, err
	}
	m.log.Info("created agent", slog.String("name", a.Name), slog.Int64("id", id))
	return a, nil
}

// Get loads one agent.
func (m *Manager) Get(ctx context.Context, id int64) (*Agent, error) {
	return m.db.GetAgent(ctx, id)
}

// List returns agents of agentType ("" for all), filtered by origin.
func (m *Manager) List(ctx context.Context, agentType string, includeBuiltin, includeCustom bool) ([]Agent, error) {
	if agentType != "" && !ValidType(agentType) {
		return nil, apperr.Validation("无效的Agent类型: "+agentType, "agent_type")
	}
	all, err := m.db.ListAgents(ctx, agentType)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if (a.IsBuiltin && includeBuiltin) || (!a.IsBuiltin && includeCustom) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Patch holds optional agent changes.
type Patch struct {
	Name           *string
	Description    *string
	Type           *string
	PromptTemplate *string
}

// Update applies p to a custom agent.
func (m *Manager) Update(ctx context.Context, id int64, p Patch) (*Agent, error) {
	a, err := m.db.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsBuiltin {
		return nil, apperr.Validation("内置Agent不能修改", "agent_id")
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, apperr.Validation("缺少必填字段: name", "name")
		}
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Type != nil {
		if !ValidType(*p.Type) {
			return nil, apperr.Validation("无效的Agent类型: "+*p.Type, "agent_type")
		}
		a.Type = *p.Type
	}
	if p.PromptTemplate != nil {
		if err := ValidateTemplate(*p.PromptTemplate); err != nil {
			return nil, err
		}
		a.PromptTemplate = *p.PromptTemplate
	}
	if err := m.db.UpdateAgent(ctx, a); err != nil {
		return nil, err
	}
	m.log.Info("updated agent", slog.Int64("id", id))
	return a, nil
}

// Delete removes a custom agent. It reports false when id does not exist.
func (m *Manager) Delete(ctx context.Context, id int64) (bool, error) {
	a, err := m.db.GetAgent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if a.IsBuiltin {
		return false, apperr.Validation("内置Agent不能删除", "agent_id")
	}
	if err := m.db.DeleteAgent(ctx, id); err != nil {
		return false, err
	}
	m.log.Info("deleted agent", slog.String("name", a.Name), slog.Int64("id", id))
	return true, nil
}

// Outcome is the result of running one agent.
type Outcome struct {
	AgentID       int64    `json:"agent_id"`
	UsageID       int64    `json:"usage_id"`
	Success       bool     `json:"success"`
	Analysis      Analysis `json:"analysis"`
	RawResponse   string   `json:"raw_response,omitempty"`
	ExecutionTime float64  `json:"execution_time"`
	Error         string   `json:"error,omitempty"`
}

// AnalyzeWith runs agent id over c and records a usage row. A failed model
// call yields an unsuccessful Outcome, not an error.
func (m *Manager) AnalyzeWith(ctx context.Context, id int64, c AnalysisContext) (*Outcome, error) {
	a, err := m.db.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTemplate(a.PromptTemplate); err != nil {
		return nil, err
	}

	out := &Outcome{AgentID: id}
	start := time.Now()
	raw, err := m.chat(ctx, FormatPrompt(a.PromptTemplate, c))
	out.ExecutionTime = time.Since(start).Seconds()
	if err != nil {
		m.log.Error("agent analysis failed", slog.String("agent", a.Name), slog.Any("error", err))
		out.Error = err.Error()
	} else {
		out.Success = true
		out.RawResponse = raw
		out.Analysis = ParseResponse(raw)
	}

	u := &storage.Usage{AgentID: id, ExecutionTime: out.ExecutionTime, Success: out.Success, ErrorMessage: out.Error}
	if out.UsageID, err = m.db.SaveUsage(ctx, u); err != nil {
		return out, err
	}
	if out.Success {
		if err := m.db.IncrementAgentUsage(ctx, id, nil); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (m *Manager) chat(ctx context.Context, prompt string) (string, error) {
	if m.llm == nil || !m.llm.Available(ctx) {
		return "", apperr.AIService("AI服务不可用", "agents", "")
	}
	return m.llm.Chat(ctx, []llm.Message{llm.User(prompt)})
}

// RateUsage attaches a 1..5 rating to a usage row and refreshes the agent's
// average rating.
func (m *Manager) RateUsage(ctx context.Context, usageID int64, rating float64, feedback string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("评分必须在1.0到5.0之间", "rating")
	}
	u, err := m.db.GetUsage(ctx, usageID)
	if err != nil {
		return err
	}
	u.Rating = &rating
	u.Feedback = feedback
	if err := m.db.UpdateUsage(ctx, u); err != nil {
		return err
	}
	if err := m.db.IncrementAgentUsage(ctx, u.AgentID, &rating); err != nil {
		return err
	}
	m.log.Info("rated agent usage", slog.Int64("usage", usageID), slog.Float64("rating", rating))
	return nil
}

// Statistics aggregates an agent's usage history.
func (m *Manager) Statistics(ctx context.Context, id int64) (*storage.AgentStats, error) {
	return m.db.AgentStatistics(ctx, id)
}
