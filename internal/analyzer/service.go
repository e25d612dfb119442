package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Service runs analyses and persists them.
type Service struct {
	db     *storage.DB
	llm    llm.Completer
	engine *Engine
	log    *slog.Logger
}

// NewService returns a Service. A nil completer makes every analysis use
// the mock result.
func NewService(db *storage.DB, c llm.Completer) *Service {
	s := &Service{db: db, llm: c, log: logging.Component("analysis")}
	if c != nil {
		s.engine = NewEngine(c)
	}
	return s
}

// Available reports whether a model is configured and reachable.
func (s *Service) Available(ctx context.Context) bool {
	return s.llm != nil && s.llm.Available(ctx)
}

// JobInfoFrom converts a stored job.
func JobInfoFrom(j *storage.Job) JobInfo {
	return JobInfo{
		ID:              j.ID,
		Title:           j.Title,
		Company:         j.Company,
		Description:     j.Description,
		Requirements:    j.Requirements,
		Location:        j.Location,
		Salary:          j.Salary,
		ExperienceLevel: j.Experience,
	}
}

// Analyze matches resumeContent against job. The result is saved when both
// resumeID and job.ID refer to stored rows.
func (s *Service) Analyze(ctx context.Context, resumeContent string, resumeID int64, job JobInfo) (*Result, error) {
	var (
		r   *Result
		err error
	)
	if !s.Available(ctx) {
		s.log.Warn("AI service unavailable, returning mock analysis")
		r = MockResult(resumeID, job)
	} else {
		err = engine.TrackOperation(ctx, "analyze", 30*time.Second, func(ctx context.Context) error {
			var aerr error
			r, aerr = s.engine.Analyze(ctx, resumeContent, job)
			return aerr
		})
		if err != nil {
			return nil, err
		}
		r.ResumeID = resumeID
	}

	if resumeID > 0 && job.ID > 0 && s.db != nil {
		if _, err := s.db.SaveAnalysis(ctx, toStored(r)); err != nil {
			s.log.Error("save analysis failed", slog.Any("error", err))
			return r, err
		}
	}
	return r, nil
}

// AnalyzeStored loads the job and resume by id and analyzes them. A zero
// resumeID selects the default resume.
func (s *Service) AnalyzeStored(ctx context.Context, jobID, resumeID int64) (*Result, error) {
	job, err := s.db.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var res *storage.Resume
	if resumeID > 0 {
		res, err = s.db.GetResume(ctx, resumeID)
	} else {
		res, err = s.db.DefaultResume(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, res.Content, res.ID, JobInfoFrom(job))
}

// Get returns a stored analysis.
func (s *Service) Get(ctx context.Context, id int64) (*storage.Analysis, error) {
	return s.db.GetAnalysis(ctx, id)
}

// List returns stored analyses, optionally filtered by job and resume.
func (s *Service) List(ctx context.Context, jobID, resumeID int64, limit int) ([]storage.Analysis, error) {
	if limit < 0 {
		return nil, apperr.Validation("limit不能为负数", "limit")
	}
	return s.db.ListAnalyses(ctx, jobID, resumeID, limit)
}

// Delete removes a stored analysis.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.DeleteAnalysis(ctx, id)
}

func toStored(r *Result) *storage.Analysis {
	return &storage.Analysis{
		UUID:            r.ID,
		JobID:           r.JobID,
		ResumeID:        r.ResumeID,
		OverallScore:    r.OverallScore,
		SkillMatchScore: r.MatchScores["技能匹配度"],
		ExperienceScore: r.MatchScores["经验匹配度"],
		MatchScores:     r.MatchScores,
		MatchingSkills:  r.MatchingSkills,
		MissingSkills:   r.MissingSkills,
		Strengths:       r.Strengths,
		Weaknesses:      r.Weaknesses,
		Suggestions:     r.Suggestions,
		RawResponse:     r.RawResponse,
		ExecutionTime:   r.Elapsed.Seconds(),
	}
}
