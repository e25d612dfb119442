package agents

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// Analysis is the structured part of an agent reply.
type Analysis struct {
	OverallScore    float64  `json:"overall_score"`
	SkillMatchScore float64  `json:"skill_match_score"`
	ExperienceScore float64  `json:"experience_score"`
	KeywordCoverage float64  `json:"keyword_coverage"`
	MissingSkills   []string `json:"missing_skills"`
	Strengths       []string `json:"strengths"`
	Suggestions     []string `json:"suggestions"`
}

// ParseResponse decodes a JSON reply or falls back to the line extractor.
func ParseResponse(raw string) Analysis {
	if body := engine.StripFences(raw); strings.HasPrefix(body, "{") {
		var a Analysis
		if err := json.Unmarshal([]byte(body), &a); err == nil {
			a.fill()
			return a
		}
	}
	return extract(raw)
}

func (a *Analysis) fill() {
	if a.MissingSkills == nil {
		a.MissingSkills = []string{}
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
}

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// extract reads scores and bullet lists from free text. Score lines name a
// dimension; heading lines switch the list that following items go to.
func extract(text string) Analysis {
	a := Analysis{}
	a.fill()
	var section *[]string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case containsAny(line, "匹配度", "分数", "评分"):
			m := numberRe.FindString(line)
			if m == "" {
				continue
			}
			score, _ := strconv.ParseFloat(m, 64)
			score = min(score, 100)
			switch {
			case containsAny(line, "总体", "整体"):
				a.OverallScore = score
			case strings.Contains(line, "技能"):
				a.SkillMatchScore = score
			case strings.Contains(line, "经验"):
				a.ExperienceScore = score
			case strings.Contains(line, "关键词"):
				a.KeywordCoverage = score
			}
		case containsAny(line, "缺失", "不足"):
			section = &a.MissingSkills
		case containsAny(line, "优势", "长处"):
			section = &a.Strengths
		case containsAny(line, "建议", "改进"):
			section = &a.Suggestions
		case section != nil && (isListItem(line) || containsAny(line, "经验不足", "缺乏")):
			if item := strings.TrimLeft(line, "-•0123456789. "); item != "" {
				*section = append(*section, item)
			}
		}
	}
	return a
}

func isListItem(line string) bool {
	for _, p := range []string{"-", "•", "1.", "2."} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
