package staging

import (
	stderrors "errors"
	"fmt"
	"time"

	"stagewise/internal/boundary"
	"stagewise/internal/errors"
	"stagewise/internal/impact"
)

// TimestampField is the document path excluded from snapshot comparisons
const TimestampField = "analysis.timestamp"

// Document is the serialized form of a plan. Exactly one of Analysis and
// Error is set.
type Document struct {
	Analysis *AnalysisSummary `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Error    *ErrorInfo       `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings []string         `json:"warnings" yaml:"warnings"`
	Commits  []CommitDoc      `json:"commits" yaml:"commits"`
}

// AnalysisSummary describes the plan as a whole
type AnalysisSummary struct {
	TotalFiles         int              `json:"totalFiles" yaml:"totalFiles"`
	RecommendedCommits int              `json:"recommendedCommits" yaml:"recommendedCommits"`
	Strategy           StrategyType     `json:"strategy" yaml:"strategy"`
	OverallRisk        impact.RiskLevel `json:"overallRisk" yaml:"overallRisk"`
	Timestamp          string           `json:"timestamp" yaml:"timestamp"`
}

// ErrorInfo replaces the analysis when planning failed
type ErrorInfo struct {
	Code           string             `json:"code" yaml:"code"`
	Message        string             `json:"message" yaml:"message"`
	Details        any                `json:"details,omitempty" yaml:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
}

// CommitDoc is one planned commit
type CommitDoc struct {
	Order            int              `json:"order" yaml:"order"`
	Boundary         BoundaryDoc      `json:"boundary" yaml:"boundary"`
	SuggestedMessage MessageSkeleton  `json:"suggestedMessage" yaml:"suggestedMessage"`
	Risk             impact.RiskLevel `json:"risk" yaml:"risk"`
	EstimatedTime    int              `json:"estimatedTime" yaml:"estimatedTime"`
	Rationale        string           `json:"rationale" yaml:"rationale"`
}

// BoundaryDoc is the serialized boundary
type BoundaryDoc struct {
	ID                  string    `json:"id" yaml:"id"`
	Theme               string    `json:"theme" yaml:"theme"`
	Category            string    `json:"category" yaml:"category"`
	Priority            string    `json:"priority" yaml:"priority"`
	EstimatedComplexity float64   `json:"estimatedComplexity" yaml:"estimatedComplexity"`
	Dependencies        []string  `json:"dependencies" yaml:"dependencies"`
	Reasoning           string    `json:"reasoning" yaml:"reasoning"`
	FileCount           int       `json:"fileCount" yaml:"fileCount"`
	Files               []FileDoc `json:"files" yaml:"files"`
	Forced              bool      `json:"forced,omitempty" yaml:"forced,omitempty"`
}

// FileDoc is one file of a boundary
type FileDoc struct {
	Path       string `json:"path" yaml:"path"`
	Insertions int    `json:"insertions" yaml:"insertions"`
	Deletions  int    `json:"deletions" yaml:"deletions"`
	ChangeType string `json:"changeType" yaml:"changeType"`
}

// NewDocument serializes a plan stamped with now (UTC, RFC3339)
func NewDocument(s StagingStrategy, now time.Time) Document {
	doc := Document{
		Analysis: &AnalysisSummary{
			TotalFiles:         s.TotalFiles,
			RecommendedCommits: len(s.Commits),
			Strategy:           s.Strategy,
			OverallRisk:        s.OverallRisk,
			Timestamp:          now.UTC().Format(time.RFC3339),
		},
		Warnings: append([]string{}, s.Warnings...),
		Commits:  make([]CommitDoc, 0, len(s.Commits)),
	}
	for _, c := range s.Commits {
		doc.Commits = append(doc.Commits, CommitDoc{
			Order:            c.Order,
			Boundary:         boundaryDoc(c.Boundary),
			SuggestedMessage: c.Message,
			Risk:             c.Risk,
			EstimatedTime:    c.EstimatedTime,
			Rationale:        c.Rationale,
		})
	}
	return doc
}

// NewErrorDocument reports a failed run. No partial plan is included.
func NewErrorDocument(err error) Document {
	info := &ErrorInfo{Code: string(errors.InternalError), Message: err.Error()}
	var e *errors.Error
	if stderrors.As(err, &e) {
		info.Code = string(e.Code)
		info.Message = e.Message
		if cause := e.Unwrap(); cause != nil {
			info.Message = fmt.Sprintf("%s: %v", e.Message, cause)
		}
		info.Details = e.Details
		info.SuggestedFixes = e.SuggestedFixes
	}
	return Document{
		Error:    info,
		Warnings: []string{},
		Commits:  []CommitDoc{},
	}
}

func boundaryDoc(b boundary.CommitBoundary) BoundaryDoc {
	files := make([]FileDoc, 0, len(b.Members))
	for _, m := range b.Members {
		files = append(files, FileDoc{
			Path:       m.Change.Path,
			Insertions: m.Change.Insertions,
			Deletions:  m.Change.Deletions,
			ChangeType: string(m.Change.ChangeType),
		})
	}
	deps := append([]string{}, b.Dependencies...)
	return BoundaryDoc{
		ID:                  b.ID,
		Theme:               b.Theme,
		Category:            string(b.Category),
		Priority:            string(b.Priority),
		EstimatedComplexity: b.EstimatedComplexity,
		Dependencies:        deps,
		Reasoning:           b.Reasoning,
		FileCount:           len(files),
		Files:               files,
		Forced:              b.Forced,
	}
}
