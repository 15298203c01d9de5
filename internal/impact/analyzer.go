package impact

import (
	"fmt"
	"log/slog"
	"strings"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/errors"
	"stagewise/internal/slogutil"
)

// Assessment is the risk of one file change
type Assessment struct {
	Path        string       `json:"path"`
	Score       float64      `json:"score"` // 0-1
	Level       RiskLevel    `json:"level"`
	Critical    bool         `json:"critical"`
	Breaking    bool         `json:"breaking"`
	Factors     []RiskFactor `json:"factors"`
	Signals     []string     `json:"signals,omitempty"`
	RemovedAPI  []string     `json:"removedApi,omitempty"`
	Explanation string       `json:"explanation"`
}

// Escalates reports whether the change forces its boundary to high priority
func (a Assessment) Escalates() bool {
	return a.Critical || a.Breaking
}

// Analyzer assesses changes. It holds no mutable state.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an impact analyzer
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: slogutil.OrDiscard(logger)}
}

// Assess scores one change given its classification
func (a *Analyzer) Assess(change changes.GitChange, analysis classify.Analysis) Assessment {
	signals := criticalSignals(change.Path)
	critical := len(signals) > 0

	removed := append([]string(nil), analysis.RemovedExports...)
	breaking := len(removed) > 0 || analysis.Category == classify.BreakingChange
	if len(removed) > 0 {
		if change.ChangeType == changes.Deleted {
			signals = append(signals, "deleted file exported API")
		} else {
			signals = append(signals, "removed exported symbols")
		}
	}

	factors := computeFactors(change, analysis.Category, critical)
	score := weightedScore(factors)
	level := determineRiskLevel(score)
	if breaking {
		level = RiskHigh
	}

	out := Assessment{
		Path:       change.Path,
		Score:      score,
		Level:      level,
		Critical:   critical,
		Breaking:   breaking,
		Factors:    factors,
		Signals:    signals,
		RemovedAPI: removed,
	}
	out.Explanation = generateExplanation(out)
	return out
}

// AssessAll scores each change against the analysis at the same index
func (a *Analyzer) AssessAll(cs []changes.GitChange, analyses []classify.Analysis) ([]Assessment, error) {
	if len(cs) != len(analyses) {
		return nil, errors.New(errors.InternalError,
			fmt.Sprintf("impact: %d changes but %d analyses", len(cs), len(analyses)), nil, nil)
	}
	out := make([]Assessment, len(cs))
	high := 0
	for i, c := range cs {
		if analyses[i].Path != c.Path {
			return nil, errors.New(errors.InternalError,
				fmt.Sprintf("impact: analysis %d is for %s, not %s", i, analyses[i].Path, c.Path), nil, nil)
		}
		out[i] = a.Assess(c, analyses[i])
		if out[i].Level == RiskHigh {
			high++
		}
	}
	a.logger.Debug("impact assessed", "files", len(cs), "high", high)
	return out, nil
}

// criticalSignals names the critical-file signals a path carries
func criticalSignals(p string) []string {
	var signals []string
	base := strings.ToLower(changes.Base(p))
	switch {
	case changes.IsManifest(p):
		signals = append(signals, "package manifest")
	case changes.IsLockFile(p):
		signals = append(signals, "lock file")
	}
	if strings.HasPrefix(base, "dockerfile") || strings.HasSuffix(base, ".dockerfile") ||
		strings.HasPrefix(base, "docker-compose") || strings.HasPrefix(base, "compose.y") {
		signals = append(signals, "container definition")
	}
	if changes.IsEnvFile(p) {
		signals = append(signals, "environment file")
	}
	if changes.IsMigrationPath(p) {
		signals = append(signals, "database migration")
	}
	if changes.IsSecuritySensitive(p) && !changes.IsTestPath(p) && !changes.IsDocPath(p) {
		signals = append(signals, "security-sensitive module")
	}
	return signals
}
