package impact

import (
	"fmt"
	"math"
	"strings"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
)

// RiskLevel represents the risk level of a change
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Rank orders levels: low 0, medium 1, high 2
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// MaxLevel returns the higher of two levels
func MaxLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	if a == "" {
		return RiskLow
	}
	return a
}

// RiskFactor represents a single contributing factor to risk
type RiskFactor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"` // weight in the overall calculation
	Value  float64 `json:"value"`  // normalized value (0.0 - 1.0)
}

// Factor weights
const (
	weightCategory   = 0.35
	weightSize       = 0.25
	weightCritical   = 0.25
	weightChangeType = 0.15
)

// Level thresholds
const (
	highThreshold   = 0.6
	mediumThreshold = 0.35
)

// sizeSaturation is the changed-line count at which the size factor reaches 1
const sizeSaturation = 500

var categoryRisk = map[classify.Category]float64{
	classify.BreakingChange:         1.0,
	classify.SecurityFix:            0.9,
	classify.APIChange:              0.8,
	classify.Deployment:             0.6,
	classify.DependencyUpdate:       0.55,
	classify.FeatureAddition:        0.5,
	classify.BugFix:                 0.5,
	classify.PerformanceImprovement: 0.45,
	classify.Configuration:          0.45,
	classify.Refactor:               0.4,
	classify.Testing:                0.1,
	classify.Documentation:          0.05,
}

var changeTypeRisk = map[changes.ChangeType]float64{
	changes.Deleted:  0.8,
	changes.Renamed:  0.5,
	changes.Modified: 0.4,
	changes.Added:    0.3,
}

// computeFactors returns the weighted factors for one change
func computeFactors(change changes.GitChange, category classify.Category, critical bool) []RiskFactor {
	criticalValue := 0.0
	if critical {
		criticalValue = 1.0
	}
	return []RiskFactor{
		{Name: "category", Weight: weightCategory, Value: categoryRisk[category]},
		{Name: "size", Weight: weightSize, Value: calculateSizeRisk(change.ChangedLines())},
		{Name: "critical-file", Weight: weightCritical, Value: criticalValue},
		{Name: "change-type", Weight: weightChangeType, Value: changeTypeRisk[change.ChangeType]},
	}
}

// calculateSizeRisk uses a logarithmic scale:
// 0 lines = 0.0, 10 lines = 0.39, 100 lines = 0.74, 500+ lines = 1.0
func calculateSizeRisk(lines int) float64 {
	if lines <= 0 {
		return 0
	}
	score := math.Log10(float64(lines)+1) / math.Log10(sizeSaturation+1)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// weightedScore sums the factors, rounded to three decimals
func weightedScore(factors []RiskFactor) float64 {
	total := 0.0
	for _, f := range factors {
		total += f.Weight * f.Value
	}
	return math.Round(total*1000) / 1000
}

// determineRiskLevel converts numeric score to risk level
func determineRiskLevel(score float64) RiskLevel {
	if score >= highThreshold {
		return RiskHigh
	}
	if score >= mediumThreshold {
		return RiskMedium
	}
	return RiskLow
}

// generateExplanation creates a one-line summary of an assessment
func generateExplanation(a Assessment) string {
	var b strings.Builder
	switch a.Level {
	case RiskHigh:
		b.WriteString("High risk")
	case RiskMedium:
		b.WriteString("Medium risk")
	default:
		b.WriteString("Low risk")
	}
	fmt.Fprintf(&b, " (score %.2f)", a.Score)
	if a.Breaking {
		b.WriteString(": breaking")
		if len(a.RemovedAPI) > 0 {
			fmt.Fprintf(&b, ", removes %s", strings.Join(a.RemovedAPI, ", "))
		}
	}
	if len(a.Signals) > 0 {
		fmt.Fprintf(&b, "; %s", strings.Join(a.Signals, ", "))
	}
	return b.String()
}
