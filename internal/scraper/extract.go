package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// skillGroups are matched case-insensitively against job text.
var skillGroups = [][]string{
	{"Java", "Python", "JavaScript", "TypeScript", "C++", "C#", "Go", "PHP", "Ruby", "Scala", "Kotlin"},
	{"React", "Vue", "Angular", "Spring", "Django", "Flask", "Node.js", "Express"},
	{"MySQL", "PostgreSQL", "MongoDB", "Redis", "Elasticsearch", "Kafka"},
	{"Docker", "Kubernetes", "Jenkins", "Git", "Linux", "AWS", "Azure"},
	{"HTML", "CSS", "SASS", "LESS", "Webpack", "Babel"},
	{"机器学习", "深度学习", "人工智能", "数据分析", "大数据"},
}

// MaxSkills caps ExtractSkills output.
const MaxSkills = 10

// ExtractSkills finds known technology keywords in text.
// ASCII terms must stand alone: "Go" matches "Go语言" but not "Google".
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, group := range skillGroups {
		for _, term := range group {
			if containsTerm(lower, strings.ToLower(term)) {
				out = append(out, term)
				if len(out) == MaxSkills {
					return out
				}
			}
		}
	}
	return out
}

func containsTerm(text, term string) bool {
	if !isASCII(term) {
		return strings.Contains(text, term)
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if !wordByte(text, start-1) && !wordByte(text, end) {
			return true
		}
		from = start + 1
	}
	return false
}

// wordByte reports whether text[i] continues an ASCII identifier.
func wordByte(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	c := text[i]
	return c < unicode.MaxASCII && (c == '_' || c == '+' || c == '#' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}

var (
	salaryRe       = regexp.MustCompile(`(\d+)[kK]?\s*[-~]\s*(\d+)[kK]?`)
	expRangeRe     = regexp.MustCompile(`(\d+)\s*[-~]\s*(\d+)\s*年`)
	expAtLeastRe   = regexp.MustCompile(`(\d+)\s*年以上`)
	educationOrder = []string{"本科", "硕士", "大专", "博士"}
)

// ParseSalary extracts a monthly salary range in yuan from strings like "15k-25k".
func ParseSalary(s string) (lo, hi int, ok bool) {
	m := salaryRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lo, _ = strconv.Atoi(m[1])
	hi, _ = strconv.Atoi(m[2])
	return lo * 1000, hi * 1000, true
}

// ParseExperience reads a years range. "经验不限" yields 0/0 with ok true.
func ParseExperience(s string) (lo, hi int, ok bool) {
	if m := expRangeRe.FindStringSubmatch(s); m != nil {
		lo, _ = strconv.Atoi(m[1])
		hi, _ = strconv.Atoi(m[2])
		return lo, hi, true
	}
	if m := expAtLeastRe.FindStringSubmatch(s); m != nil {
		lo, _ = strconv.Atoi(m[1])
		return lo, 0, true
	}
	if strings.Contains(s, "经验不限") {
		return 0, 0, true
	}
	return 0, 0, false
}

// ParseEducation returns the first degree keyword found, or "不限".
func ParseEducation(s string) string {
	for _, e := range educationOrder {
		if strings.Contains(s, e) {
			return e
		}
	}
	if strings.Contains(s, "学历不限") {
		return "不限"
	}
	return ""
}
