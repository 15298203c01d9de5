package boundary

import (
	"fmt"
	"path"
	"strings"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
)

// abbreviations expands common short path tokens in topics
var abbreviations = map[string]string{
	"auth":    "authentication",
	"authn":   "authentication",
	"authz":   "authorization",
	"cfg":     "configuration",
	"conf":    "configuration",
	"config":  "configuration",
	"db":      "database",
	"deps":    "dependencies",
	"doc":     "documentation",
	"docs":    "documentation",
	"env":     "environment",
	"i18n":    "internationalization",
	"infra":   "infrastructure",
	"k8s":     "kubernetes",
	"msg":     "messaging",
	"perf":    "performance",
	"repo":    "repository",
	"svc":     "service",
	"util":    "utilities",
	"utils":   "utilities",
	"ws":      "websocket",
	"admin":   "administration",
	"notif":   "notifications",
	"sec":     "security",
	"sched":   "scheduler",
	"tmpl":    "templates",
	"mgmt":    "management",
	"migrate": "migrations",
}

// noiseTokens never make a topic on their own
var noiseTokens = map[string]bool{
	"src": true, "lib": true, "libs": true, "internal": true, "pkg": true, "app": true, "apps": true,
	"test": true, "tests": true, "spec": true, "specs": true, "index": true, "main": true,
	"cmd": true, "mod": true, "init": true, "core": true, "common": true, "shared": true,
	"packages": true, "source": true, "code": true, "js": true, "ts": true, "go": true,
	"py": true, "rs": true, "java": true, "kotlin": true, "com": true, "org": true, "net": true,
	"impl": true, "new": true, "old": true, "v1": true, "v2": true, "github": true, "dist": true,
	"the": true, "and": true, "for": true,
}

// categoryVotes tallies confidence per category. Companion categories count
// at companionFactor when the boundary also holds other categories.
func categoryVotes(members []Member, companionFactor float64) map[classify.Category]float64 {
	mixed := false
	for _, m := range members {
		if !m.Category.IsCompanion() {
			mixed = true
			break
		}
	}
	votes := make(map[classify.Category]float64)
	for _, m := range members {
		w := m.Confidence
		if mixed && m.Category.IsCompanion() {
			w *= companionFactor
		}
		votes[m.Category] += w
	}
	return votes
}

// majorityCategory is the confidence-weighted majority, ties to the more severe
func majorityCategory(members []Member, companionFactor float64) classify.Category {
	votes := categoryVotes(members, companionFactor)
	var best classify.Category
	bestVote := -1.0
	for _, c := range classify.All() {
		v, ok := votes[c]
		if !ok {
			continue
		}
		// All() is in severity order, so strict comparison keeps the more severe on ties
		if v > bestVote+1e-9 {
			best, bestVote = c, v
		}
	}
	if best == "" {
		return classify.Refactor
	}
	return best
}

// topicOf picks the path token shared by the most files. Directory tokens
// win ties over file-name tokens, then the token seen first. A file-name
// token needs two files behind it unless the boundary has a single file,
// and tokens that only restate the category are skipped.
func topicOf(members []Member, category classify.Category) string {
	counts := make(map[string]int)
	inDir := make(map[string]bool)
	var order []string
	add := func(tok string, dir bool, seen map[string]bool) {
		if len(tok) < 2 || noiseTokens[tok] || isNumeric(tok) || restatesCategory(tok, category) {
			return
		}
		if dir {
			inDir[tok] = true
		}
		if seen[tok] {
			return
		}
		seen[tok] = true
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	for _, m := range members {
		seen := make(map[string]bool)
		dir, file := path.Split(m.Change.Path)
		for _, tok := range changes.PathTokens(strings.TrimSuffix(dir, "/")) {
			add(tok, true, seen)
		}
		for _, tok := range changes.PathTokens(file) {
			add(tok, false, seen)
		}
	}

	best := ""
	for _, tok := range order {
		if !inDir[tok] && counts[tok] < 2 && len(members) > 1 {
			continue
		}
		if best == "" || counts[tok] > counts[best] || (counts[tok] == counts[best] && inDir[tok] && !inDir[best]) {
			best = tok
		}
	}
	if best == "" {
		return "project"
	}
	return expandToken(best)
}

func expandToken(tok string) string {
	if full, ok := abbreviations[tok]; ok {
		return full
	}
	return tok
}

// restatesCategory reports whether tok, expanded, is one of the words of
// category, e.g. "docs" for documentation or "sec" for security-fix.
func restatesCategory(tok string, category classify.Category) bool {
	full := expandToken(tok)
	for _, word := range strings.Split(string(category), "-") {
		if word == full || word == tok {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatTheme renders "<category>: <topic>"
func FormatTheme(category classify.Category, topic string) string {
	return fmt.Sprintf("%s: %s", category, topic)
}

// priorityOf applies the escalation and size thresholds
func priorityOf(members []Member, opts Options) Priority {
	lines := 0
	for _, m := range members {
		if m.Critical || m.Breaking {
			return PriorityHigh
		}
		lines += m.Change.ChangedLines()
	}
	if lines > opts.MediumLineThreshold || len(members) > opts.MediumFileThreshold {
		return PriorityMedium
	}
	return PriorityLow
}

// Describe builds a boundary over members with every derived field set:
// id, category, topic, theme, priority, complexity and the forced flag.
// Dependencies and reasoning are left to the caller.
func Describe(members []Member, opts Options) CommitBoundary {
	opts = opts.withDefaults()
	b := CommitBoundary{
		Members:      members,
		Dependencies: []string{},
	}
	b.ID = BoundaryID(b.Paths())
	b.Category = majorityCategory(members, opts.CompanionVoteFactor)
	b.Topic = topicOf(members, b.Category)
	b.Theme = FormatTheme(b.Category, b.Topic)
	b.Priority = priorityOf(members, opts)
	b.EstimatedComplexity = EstimateComplexity(len(members), b.ChangedLines(), b.HasCritical())
	b.Forced = len(members) > opts.MaxBoundarySize
	return b
}
