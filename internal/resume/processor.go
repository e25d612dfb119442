package resume

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Processor parses uploaded resume files and keeps them in storage.
type Processor struct {
	db     *storage.DB
	parser *Parser
	log    *slog.Logger
}

// NewProcessor returns a Processor over db.
func NewProcessor(db *storage.DB) *Processor {
	return &Processor{db: db, parser: NewParser(), log: logging.Component("resume")}
}

// SupportedFormats lists the accepted file types.
func (p *Processor) SupportedFormats() []string {
	return []string{"pdf", "markdown", "md", "txt"}
}

// Upload parses the file at path and stores it. An empty name defaults to
// the file's base name. The first stored resume becomes the default.
func (p *Processor) Upload(ctx context.Context, path, name string) (*storage.Resume, error) {
	parsed, err := p.parser.ParseFile(path)
	if err != nil {
		p.log.Error("resume parse failed", slog.String("path", path), slog.Any("error", err))
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(path)
	}

	meta := make(map[string]any, len(parsed.Metadata)+2)
	for k, v := range parsed.Metadata {
		meta[k] = v
	}
	addCounts(meta, parsed.RawText)

	existing, err := p.db.ListResumes(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	size, _ := parsed.Metadata["file_size"].(int64)
	r := &storage.Resume{
		Name:         strings.TrimSpace(name),
		FilePath:     path,
		Content:      parsed.RawText,
		PersonalInfo: parsed.PersonalInfo,
		Education:    parsed.Education,
		Experience:   parsed.Experience,
		Projects:     parsed.Projects,
		Skills:       parsed.Skills,
		Metadata:     meta,
		FileType:     parsed.FileType,
		FileSize:     size,
		IsDefault:    len(existing) == 0,
	}
	if _, err := p.db.SaveResume(ctx, r); err != nil {
		return nil, apperr.Processing("简历保存失败", err)
	}
	p.log.Info("resume uploaded", slog.String("name", r.Name), slog.Int64("id", r.ID),
		slog.Int("sections", len(parsed.Sections)))
	return r, nil
}

func addCounts(meta map[string]any, content string) {
	meta["word_count"] = len(strings.Fields(content))
	meta["char_count"] = utf8.RuneCountInString(content)
}

// Get loads one resume.
func (p *Processor) Get(ctx context.Context, id int64) (*storage.Resume, error) {
	return p.db.GetResume(ctx, id)
}

// List returns all resumes newest first.
func (p *Processor) List(ctx context.Context) ([]storage.Resume, error) {
	return p.db.ListResumes(ctx, 0, 0)
}

// Default returns the default resume.
func (p *Processor) Default(ctx context.Context) (*storage.Resume, error) {
	return p.db.DefaultResume(ctx)
}

// SetDefault marks id as the default resume.
func (p *Processor) SetDefault(ctx context.Context, id int64) error {
	return p.db.SetDefaultResume(ctx, id)
}

// UpdateContent replaces the text of a resume and recomputes its counts.
func (p *Processor) UpdateContent(ctx context.Context, id int64, content string) error {
	r, err := p.db.GetResume(ctx, id)
	if err != nil {
		return err
	}
	meta := r.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	addCounts(meta, content)
	return p.db.UpdateResumeContent(ctx, id, content, meta)
}

// Delete removes a resume. It reports false when it did not exist.
func (p *Processor) Delete(ctx context.Context, id int64) (bool, error) {
	err := p.db.DeleteResume(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.log.Info("resume deleted", slog.Int64("id", id))
	return true, nil
}
