// Package resume parses resume files (PDF, Markdown, plain text) into
// sections and structured fields, and stores them.
package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/engine"
)

// Section categories.
const (
	CatPersonal   = "personal_info"
	CatSkills     = "skills"
	CatExperience = "work_experience"
	CatEducation  = "education"
	CatProjects   = "projects"
)

// Section is one headed block of a resume.
type Section struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Start    int    `json:"start_pos"`
	End      int    `json:"end_pos"`
}

// Parsed is the result of parsing a resume file.
type Parsed struct {
	FilePath     string              `json:"file_path"`
	FileType     string              `json:"file_type"`
	RawText      string              `json:"raw_text"`
	Sections     []Section           `json:"sections"`
	Metadata     map[string]any      `json:"metadata"`
	ParsedAt     time.Time           `json:"parsed_at"`
	PersonalInfo map[string]string   `json:"personal_info"`
	Skills       []string            `json:"skills"`
	Experience   []map[string]string `json:"work_experience"`
	Education    []map[string]string `json:"education"`
	Projects     []map[string]string `json:"projects"`
}

var sectionPatterns = []struct {
	category string
	titles   []string
}{
	{CatPersonal, []string{"基本信息", "个人信息", "联系方式", "Personal Information", "Contact", "基础信息"}},
	{CatSkills, []string{"专业技能", "技能清单", "技术技能", "Skills", "Technical Skills", "核心技能", "技能特长"}},
	{CatExperience, []string{"工作经历", "工作经验", "职业经历", "Work Experience", "Professional Experience", "Employment History"}},
	{CatEducation, []string{"教育经历", "教育背景", "学历信息", "Education", "Educational Background", "Academic Background"}},
	{CatProjects, []string{"项目经历", "项目经验", "主要项目", "Projects", "Project Experience", "Key Projects"}},
}

type headingRe struct {
	category string
	re       *regexp.Regexp
}

var headings = func() []headingRe {
	var out []headingRe
	for _, p := range sectionPatterns {
		for _, t := range p.titles {
			re := regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(` + regexp.QuoteMeta(t) + `)[ \t]*(?:[:：]|$)`)
			out = append(out, headingRe{p.category, re})
		}
	}
	return out
}()

var (
	phoneRe   = regexp.MustCompile(`(?i)(?:电话|手机|Tel|Phone)[:：]?\s*([1-9]\d{2}[*\-\s]*\d{4}[*\-\s]*\d{4})`)
	emailRe   = regexp.MustCompile(`(?i)(?:邮箱|Email|E-mail)[:：]?\s*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
	ageRe     = regexp.MustCompile(`(?i)(?:年龄|Age)[:：]?\s*(\d{1,2})\s*岁?`)
	nameTagRe = regexp.MustCompile(`^(?:#+\s*)?(?:姓名[:：]?\s*)?`)
	digitAtRe = regexp.MustCompile(`[0-9@]`)
	bulletRe  = regexp.MustCompile(`^\s*[-*•]\s*`)
	expLineRe = regexp.MustCompile(`^([^|]+?)\s*\|\s*([^|]+?)\s*\|\s*(.+)$`)
	eduDateRe = regexp.MustCompile(`(\d{4}[./\-]\d{1,2})\s*[-~–至]\s*(\d{4}[./\-]\d{1,2}|至今)`)
	eduSplit  = regexp.MustCompile(`[\s|,，]+`)
)

// Parser turns resume files into Parsed values.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser { return &Parser{} }

// ParseFile parses path according to its extension.
func (p *Parser) ParseFile(path string) (*Parsed, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Parse(fmt.Sprintf("文件不存在: %s", path), path, "")
	}
	ext := strings.ToLower(filepath.Ext(path))
	var text, fileType string
	switch ext {
	case ".pdf":
		fileType = "pdf"
		text, err = readPDF(path)
		if err != nil {
			return nil, apperr.Parse(fmt.Sprintf("PDF解析失败: %v", err), path, fileType)
		}
		text = CleanText(text)
		if strings.TrimSpace(text) == "" {
			return nil, apperr.Parse("PDF文件中未提取到有效文本", path, fileType)
		}
	case ".md", ".markdown", ".txt":
		fileType, emptyMsg := "markdown", "Markdown文件为空"
		if ext == ".txt" {
			fileType, emptyMsg = "text", "文本文件为空"
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.Parse(fmt.Sprintf("无法读取文件: %v", err), path, fileType)
		}
		text, err = decodeText(data)
		if err != nil {
			return nil, apperr.Parse(fmt.Sprintf("无法读取文件: %v", err), path, fileType)
		}
		if strings.TrimSpace(text) == "" {
			return nil, apperr.Parse(emptyMsg, path, fileType)
		}
		return p.parseText(path, fileType, text, fi.Size()), nil
	default:
		return nil, apperr.Unsupported(ext)
	}
	return p.parseText(path, fileType, text, fi.Size()), nil
}

// ParseText parses already-extracted text.
func (p *Parser) ParseText(text string) *Parsed {
	return p.parseText("", "text", text, int64(len(text)))
}

func (p *Parser) parseText(path, fileType, text string, size int64) *Parsed {
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	sections := ExtractSections(text)
	return &Parsed{
		FilePath:     path,
		FileType:     fileType,
		RawText:      text,
		Sections:     sections,
		ParsedAt:     time.Now(),
		PersonalInfo: extractPersonalInfo(text),
		Skills:       extractSkills(sections),
		Experience:   extractExperience(sections),
		Education:    extractEducation(sections),
		Projects:     extractProjects(sections),
		Metadata: map[string]any{
			"file_size":         size,
			"text_length":       utf8.RuneCountInString(text),
			"sections_count":    len(sections),
			"extraction_method": "automatic",
		},
	}
}

func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t)
	}
	return sb.String(), nil
}

// decodeText reads UTF-8, falling back to GBK for legacy Chinese files.
func decodeText(data []byte) (string, error) {
	data = []byte(strings.TrimPrefix(string(data), "\ufeff"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CleanText collapses spaces within each line, keeps line breaks and drops
// blank lines.
func CleanText(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = engine.CollapseSpaces(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

type headingMatch struct {
	title, category string
	start, end      int
}

// ExtractSections splits text at recognised headings. Each section runs to
// the next heading; empty sections are dropped.
func ExtractSections(text string) []Section {
	var matches []headingMatch
	seen := map[int]bool{}
	for _, h := range headings {
		for _, loc := range h.re.FindAllStringSubmatchIndex(text, -1) {
			if seen[loc[0]] {
				continue
			}
			seen[loc[0]] = true
			matches = append(matches, headingMatch{
				title: text[loc[2]:loc[3]], category: h.category, start: loc[0], end: loc[1],
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var out []Section
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		if end < m.end {
			continue
		}
		content := strings.TrimSpace(text[m.end:end])
		if content == "" {
			continue
		}
		out = append(out, Section{Title: m.title, Category: m.category, Content: content, Start: m.end, End: end})
	}
	return out
}

func sectionsOf(sections []Section, category string) []Section {
	var out []Section
	for _, s := range sections {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func extractPersonalInfo(text string) map[string]string {
	info := map[string]string{}
	head := text
	if len(head) > 600 {
		head = head[:600]
	}
	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimSpace(nameTagRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < 20 && !digitAtRe.MatchString(line) {
			info["name"] = line
		}
		break
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		info["phone"] = m[1]
	}
	if m := emailRe.FindStringSubmatch(text); m != nil {
		info["email"] = m[1]
	}
	if m := ageRe.FindStringSubmatch(text); m != nil {
		info["age"] = m[1]
	}
	return info
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func extractSkills(sections []Section) []string {
	var raw []string
	for _, s := range sectionsOf(sections, CatSkills) {
		for _, l := range lines(s.Content) {
			item := l
			if bulletRe.MatchString(l) {
				item = strings.TrimSpace(bulletRe.ReplaceAllString(l, ""))
				raw = append(raw, item)
			}
			if i := strings.IndexAny(item, ":："); i > 0 {
				raw = append(raw, strings.TrimSpace(item[:i]))
			}
		}
	}
	var out []string
	for _, s := range engine.Dedupe(raw) {
		if n := utf8.RuneCountInString(s); n > 1 && n < 50 {
			out = append(out, s)
		}
	}
	return out
}

func extractExperience(sections []Section) []map[string]string {
	var out []map[string]string
	for _, s := range sectionsOf(sections, CatExperience) {
		for _, l := range lines(s.Content) {
			m := expLineRe.FindStringSubmatch(bulletRe.ReplaceAllString(l, ""))
			if m == nil {
				continue
			}
			out = append(out, map[string]string{
				"company":  strings.TrimSpace(m[1]),
				"position": strings.TrimSpace(m[2]),
				"duration": strings.TrimSpace(m[3]),
			})
		}
	}
	return out
}

func extractEducation(sections []Section) []map[string]string {
	var out []map[string]string
	for _, s := range sectionsOf(sections, CatEducation) {
		for _, l := range lines(s.Content) {
			loc := eduDateRe.FindStringIndex(l)
			if loc == nil {
				continue
			}
			rest := strings.TrimSpace(l[:loc[0]] + " " + l[loc[1]:])
			rest = strings.Trim(bulletRe.ReplaceAllString(rest, ""), " |")
			var fields []string
			for _, f := range eduSplit.Split(rest, -1) {
				if f != "" {
					fields = append(fields, f)
				}
			}
			entry := map[string]string{"duration": l[loc[0]:loc[1]], "school": "", "major": "", "degree": ""}
			for i, key := range []string{"school", "major", "degree"} {
				if i < len(fields) {
					entry[key] = fields[i]
				}
			}
			if len(fields) > 3 {
				entry["degree"] = strings.Join(fields[2:], " ")
			}
			out = append(out, entry)
		}
	}
	return out
}

func extractProjects(sections []Section) []map[string]string {
	var out []map[string]string
	for _, s := range sectionsOf(sections, CatProjects) {
		for _, l := range lines(s.Content) {
			i := strings.IndexAny(l, ":：|")
			if i <= 0 {
				continue
			}
			title := strings.TrimSpace(strings.TrimLeft(bulletRe.ReplaceAllString(l[:i], ""), "# "))
			if utf8.RuneCountInString(title) <= 5 {
				continue
			}
			out = append(out, map[string]string{"name": title, "description": strings.TrimSpace(strings.TrimLeft(l[i:], ":：|"))})
		}
	}
	return out
}
