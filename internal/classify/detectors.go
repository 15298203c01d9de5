package classify

import (
	"fmt"
	"regexp"
	"strings"

	"stagewise/internal/changes"
)

var (
	apiDirs = map[string]bool{
		"api": true, "apis": true, "routes": true, "router": true, "controllers": true,
		"handlers": true, "endpoints": true, "rest": true, "graphql": true, "rpc": true,
	}
	routeLine = regexp.MustCompile(`(?i)(\b(app|router|r|mux|e|g|api|server)\.(get|post|put|patch|delete|handle|handlefunc|route|group)\s*\(|@(get|post|put|patch|delete|request)mapping\b|@(app|router|bp|blueprint)\.(route|get|post|put|patch|delete)\b|\bhandlefunc\s*\()`)

	versionLines = []*regexp.Regexp{
		regexp.MustCompile(`^\s*"[@\w./-]+"\s*:\s*"[\^~>=<]*v?\d+(\.\d+)*`),                         // package.json, composer.json
		regexp.MustCompile(`^\s*[\w.-]+\s*=\s*(\{[^}]*version\s*=\s*)?"[\^~>=<]*v?\d+(\.\d+)*`),     // Cargo.toml, pyproject.toml
		regexp.MustCompile(`^\s*(require\s+)?[\w.-]+(/[\w.~-]+)+\s+v\d+\.\d+`),                      // go.mod
		regexp.MustCompile(`^\s*[\w.\[\]-]+\s*(==|>=|<=|~=|!=)\s*\d`),                               // requirements.txt
		regexp.MustCompile(`<version>[^<]*\d[^<]*</version>`),                                       // pom.xml
		regexp.MustCompile(`(implementation|api|compile|testImplementation)\s*\(?\s*['"][^'"]+:\d`), // gradle
		regexp.MustCompile(`^\s*gem\s+['"][^'"]+['"]\s*,\s*['"][~>=<\s]*\d`),                        // Gemfile
	}

	fixtureDirs = map[string]bool{
		"testdata": true, "fixtures": true, "__fixtures__": true, "__snapshots__": true, "__mocks__": true, "mocks": true,
	}

	commentLine = regexp.MustCompile(`^\s*(//|#|/\*|\*|\*/|"""|'''|--|<!--|;;)`)

	securityCues = []*regexp.Regexp{
		regexp.MustCompile(`(?i)sanitiz`),
		regexp.MustCompile(`(?i)escape(html|string|\()`),
		regexp.MustCompile(`(?i)\b(xss|csrf|xsrf|ssrf)\b`),
		regexp.MustCompile(`(?i)injection`),
		regexp.MustCompile(`(?i)(prepared statement|parameteri[sz]ed)`),
		regexp.MustCompile(`(?i)\b(bcrypt|argon2|scrypt|pbkdf2)\b`),
		regexp.MustCompile(`(?i)(constant.?time|timingsafeequal|constanttimecompare)`),
		regexp.MustCompile(`(?i)rate.?limit`),
		regexp.MustCompile(`(?i)(allowlist|denylist|whitelist|blacklist)`),
		regexp.MustCompile(`(?i)(verify|validate)(signature|token|jwt)`),
		regexp.MustCompile(`(?i)(httponly|samesite|content-security-policy|strict-transport-security)`),
		regexp.MustCompile(`(?i)(path traversal|filepath\.clean|dompurify|html/template)`),
	}
	cveRef = regexp.MustCompile(`\bCVE-\d{4}-\d{4,}\b`)

	perfCues = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcache(d|s)?\b|\blru\b`),
		regexp.MustCompile(`(?i)\b(memoi[sz]e|usememo|usecallback|react\.memo)\b`),
		regexp.MustCompile(`(?i)\b(debounce|throttle)\b`),
		regexp.MustCompile(`sync\.Pool|\bpool\b`),
		regexp.MustCompile(`(?i)\bbatch(es|ed|ing)?\b`),
		regexp.MustCompile(`make\([^,()]+,\s*0\s*,`),
		regexp.MustCompile(`strings\.Builder|bytes\.Buffer|StringBuilder`),
		regexp.MustCompile(`(?i)create\s+(unique\s+)?index`),
		regexp.MustCompile(`(?i)\blazy\b|React\.lazy`),
		regexp.MustCompile(`(?i)\b(parallel|concurrent(ly)?|worker pool)\b`),
		regexp.MustCompile(`func Benchmark\w*\(`),
	}
	perfWords = regexp.MustCompile(`(?i)(faster|speed.?up|optimi[sz]|performance|\bperf\b|latency|throughput|allocations?)`)

	fixCue = regexp.MustCompile(`(?i)\b(fix(es|ed)?|bug|hotfix|workaround|regression|off[- ]by[- ]one|null pointer|nil pointer|npe|crash(es)?|race condition|edge case)\b`)
)

// evidence caps how many matched lines a detection carries
const evidence = 3

func matchingLines(lines []string, res ...*regexp.Regexp) []string {
	var out []string
	for _, l := range lines {
		for _, re := range res {
			if re.MatchString(l) {
				out = append(out, strings.TrimSpace(l))
				break
			}
		}
	}
	return out
}

// distinctCues counts how many different patterns match somewhere in lines
func distinctCues(lines []string, res []*regexp.Regexp) (int, []string) {
	hits := 0
	var ev []string
	for _, re := range res {
		for _, l := range lines {
			if re.MatchString(l) {
				hits++
				ev = append(ev, strings.TrimSpace(l))
				break
			}
		}
	}
	return hits, ev
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func inDir(p string, dirs map[string]bool) bool {
	for _, part := range strings.Split(changes.Dir(p), "/") {
		if dirs[strings.ToLower(part)] {
			return true
		}
	}
	return false
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// apiDetector recognizes schema files, route definitions and exported
// surface changes under API directories.
type apiDetector struct{}

func (apiDetector) Name() string { return DetectorAPI }

func (apiDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if changes.IsTestPath(p) || changes.IsDocPath(p) {
		return Detection{}, false
	}

	if isAPISpec(p) {
		return Detection{
			Category:   APIChange,
			Confidence: 0.9,
			Reasoning:  "API schema file changed",
			Evidence:   []string{p},
		}, true
	}

	underAPI := inDir(p, apiDirs) && changes.IsSourcePath(p)
	if in.PathOnly {
		if underAPI {
			return Detection{Category: APIChange, Confidence: 0.5, Reasoning: "source file under an API directory"}, true
		}
		return Detection{}, false
	}

	if removed := in.RemovedExports(); underAPI && len(removed) > 0 {
		return Detection{
			Category:   BreakingChange,
			Confidence: 0.85,
			Reasoning:  fmt.Sprintf("removes exported API: %s", strings.Join(firstN(removed, evidence), ", ")),
			Evidence:   firstN(removed, evidence),
		}, true
	}

	routes := matchingLines(concat(in.AddedLines, in.RemovedLines), routeLine)
	switch {
	case len(routes) > 0 && underAPI:
		return Detection{APIChange, 0.85, "route definitions changed under an API directory", firstN(routes, evidence)}, true
	case len(routes) > 0:
		return Detection{APIChange, 0.7, "route definitions changed", firstN(routes, evidence)}, true
	case underAPI && (len(in.Added.ExportedNames()) > 0 || len(in.Removed.ExportedNames()) > 0):
		exported := concat(in.Added.ExportedNames(), in.Removed.ExportedNames())
		return Detection{APIChange, 0.6, "exported declarations changed under an API directory", firstN(exported, evidence)}, true
	}
	return Detection{}, false
}

func isAPISpec(p string) bool {
	switch changes.Ext(p) {
	case ".proto", ".graphql", ".gql", ".thrift", ".avsc":
		return true
	}
	stem := strings.ToLower(changes.Stem(p))
	return strings.HasPrefix(stem, "openapi") || strings.HasPrefix(stem, "swagger")
}

// testDetector recognizes test files and fixtures by path.
type testDetector struct{}

func (testDetector) Name() string { return DetectorTest }

func (testDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if stem, ok := changes.TestSubjectStem(p); ok {
		if stem != changes.Stem(p) {
			return Detection{Testing, 0.95, fmt.Sprintf("test file for %q by naming convention", stem), []string{p}}, true
		}
		return Detection{Testing, 0.85, "source file under a test directory", []string{p}}, true
	}
	if inDir(p, fixtureDirs) || changes.Ext(p) == ".snap" {
		return Detection{Testing, 0.8, "test fixture or snapshot", []string{p}}, true
	}
	return Detection{}, false
}

// configDetector recognizes manifests, lock files and configuration.
// CI and deployment files belong to deploymentDetector.
type configDetector struct{}

func (configDetector) Name() string { return DetectorConfig }

func (configDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if changes.IsDeploymentPath(p) {
		return Detection{}, false
	}

	switch {
	case changes.IsLockFile(p):
		return Detection{DependencyUpdate, 0.95, "dependency lock file changed", []string{p}}, true

	case changes.IsManifest(p):
		if in.PathOnly {
			return Detection{DependencyUpdate, 0.7, "package manifest changed", []string{p}}, true
		}
		versions := matchingLines(concat(in.AddedLines, in.RemovedLines), versionLines...)
		if len(versions) > 0 {
			return Detection{DependencyUpdate, 0.9, "package manifest version lines changed", firstN(versions, evidence)}, true
		}
		return Detection{Configuration, 0.8, "package manifest changed without version edits", []string{p}}, true

	case changes.IsEnvFile(p):
		return Detection{Configuration, 0.9, "environment file changed", []string{p}}, true

	case changes.IsConfigPath(p) && !changes.IsDocPath(p):
		return Detection{Configuration, 0.85, "configuration file changed", []string{p}}, true
	}
	return Detection{}, false
}

// documentationDetector recognizes docs and comment-only source edits.
type documentationDetector struct{}

func (documentationDetector) Name() string { return DetectorDocumentation }

func (documentationDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if changes.IsDocPath(p) {
		return Detection{Documentation, 0.95, "documentation file changed", []string{p}}, true
	}
	if in.PathOnly || !changes.IsSourcePath(p) {
		return Detection{}, false
	}

	changed := 0
	for _, l := range concat(in.AddedLines, in.RemovedLines) {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !commentLine.MatchString(l) {
			return Detection{}, false
		}
		changed++
	}
	if changed == 0 {
		return Detection{}, false
	}
	return Detection{Documentation, 0.75, "only comments changed", []string{fmt.Sprintf("%d comment lines", changed)}}, true
}

// securityDetector looks for hardening cues in added lines.
type securityDetector struct{}

func (securityDetector) Name() string { return DetectorSecurity }

func (securityDetector) Detect(in Input) (Detection, bool) {
	if in.PathOnly {
		return Detection{}, false
	}
	p := in.Change.Path

	if cves := matchingLines(in.AddedLines, cveRef); len(cves) > 0 {
		return Detection{SecurityFix, 0.9, "references a CVE", firstN(cves, evidence)}, true
	}

	hits, ev := distinctCues(in.AddedLines, securityCues)
	fix := len(matchingLines(in.AddedLines, fixCue)) > 0
	sensitive := changes.IsSecuritySensitive(p) && !changes.IsTestPath(p)

	switch {
	case hits >= 1 && (fix || sensitive):
		return Detection{SecurityFix, 0.85, "hardening code in a security context", firstN(ev, evidence)}, true
	case hits >= 2:
		return Detection{SecurityFix, 0.7, "multiple hardening cues", firstN(ev, evidence)}, true
	case sensitive && fix:
		fixes := matchingLines(in.AddedLines, fixCue)
		return Detection{SecurityFix, 0.6, "fix in a security-sensitive module", firstN(fixes, evidence)}, true
	}
	return Detection{}, false
}

// performanceDetector looks for caching, pooling and batching cues.
type performanceDetector struct{}

func (performanceDetector) Name() string { return DetectorPerformance }

func (performanceDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if in.PathOnly || changes.IsTestPath(p) || !changes.IsSourcePath(p) {
		return Detection{}, false
	}

	hits, ev := distinctCues(in.AddedLines, perfCues)
	words := len(matchingLines(in.AddedLines, perfWords)) > 0

	switch {
	case hits >= 2 && words:
		return Detection{PerformanceImprovement, 0.85, "optimization cues with performance wording", firstN(ev, evidence)}, true
	case hits >= 2:
		return Detection{PerformanceImprovement, 0.7, "multiple optimization cues", firstN(ev, evidence)}, true
	case hits == 1 && words:
		return Detection{PerformanceImprovement, 0.65, "optimization cue with performance wording", firstN(ev, evidence)}, true
	}
	return Detection{}, false
}

// deploymentDetector recognizes CI, container and infrastructure files.
type deploymentDetector struct{}

func (deploymentDetector) Name() string { return DetectorDeployment }

func (deploymentDetector) Detect(in Input) (Detection, bool) {
	p := in.Change.Path
	if changes.IsDeploymentPath(p) {
		return Detection{Deployment, 0.9, "build, CI or deployment file changed", []string{p}}, true
	}
	return Detection{}, false
}

// genericDetector decides from change shape and symbol deltas. It always
// answers.
type genericDetector struct{}

func (genericDetector) Name() string { return DetectorGeneric }

func (genericDetector) Detect(in Input) (Detection, bool) {
	c := in.Change
	if in.PathOnly {
		return genericPathOnly(c), true
	}

	if removed := in.RemovedExports(); len(removed) > 0 {
		return Detection{
			Category:   BreakingChange,
			Confidence: 0.8,
			Reasoning:  fmt.Sprintf("removes exported symbols: %s", strings.Join(firstN(removed, evidence), ", ")),
			Evidence:   firstN(removed, evidence),
		}, true
	}

	switch c.ChangeType {
	case changes.Deleted:
		return Detection{Refactor, 0.6, "file deleted without exported API", []string{c.Path}}, true
	case changes.Renamed:
		return Detection{Refactor, 0.8, fmt.Sprintf("renamed from %s", c.OldPath), []string{c.OldPath + " -> " + c.Path}}, true
	case changes.Added:
		return Detection{FeatureAddition, 0.8, "new file", firstN(in.Added.DeclaredNames(), evidence)}, true
	}

	if fixes := matchingLines(in.AddedLines, fixCue); len(fixes) > 0 {
		return Detection{BugFix, 0.7, "fix wording in added lines", firstN(fixes, evidence)}, true
	}

	var introduced []string
	for _, name := range in.Added.DeclaredNames() {
		if !in.Removed.Has(name) {
			introduced = append(introduced, name)
		}
	}
	ins, del := c.Insertions, c.Deletions
	if len(introduced) > 0 && ins >= del {
		return Detection{FeatureAddition, 0.75, fmt.Sprintf("introduces %d new symbol(s)", len(introduced)), firstN(introduced, evidence)}, true
	}

	if sameSymbols(in) && balanced(ins, del) {
		return Detection{Refactor, 0.65, "balanced edits over the same symbols", firstN(in.Added.DeclaredNames(), evidence)}, true
	}
	switch {
	case del > ins:
		return Detection{Refactor, 0.6, "deletion-dominated edit without API loss", nil}, true
	case ins >= 2*del:
		return Detection{FeatureAddition, 0.6, "insertion-dominated edit", nil}, true
	case ins+del <= 6 && del > 0:
		return Detection{BugFix, 0.5, "small targeted edit", nil}, true
	}
	return Detection{Refactor, 0.45, "mixed edit", nil}, true
}

func genericPathOnly(c changes.GitChange) Detection {
	switch c.ChangeType {
	case changes.Added:
		return Detection{FeatureAddition, 0.6, "new file", []string{c.Path}}
	case changes.Deleted:
		return Detection{Refactor, 0.5, "file deleted", []string{c.Path}}
	case changes.Renamed:
		return Detection{Refactor, 0.6, fmt.Sprintf("renamed from %s", c.OldPath), []string{c.Path}}
	}
	switch {
	case c.Insertions >= 2*c.Deletions && c.Insertions > 0:
		return Detection{FeatureAddition, 0.5, "insertion-dominated edit", nil}
	case c.Deletions > c.Insertions:
		return Detection{Refactor, 0.5, "deletion-dominated edit", nil}
	}
	return Detection{Refactor, 0.4, "modified file", nil}
}

func sameSymbols(in Input) bool {
	added, removed := in.Added.DeclaredNames(), in.Removed.DeclaredNames()
	if len(added) == 0 || len(added) != len(removed) {
		return false
	}
	for i := range added {
		if added[i] != removed[i] {
			return false
		}
	}
	return true
}

// balanced reports whether insertions and deletions are within 30% of each other
func balanced(ins, del int) bool {
	hi, lo := ins, del
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return false
	}
	return float64(hi-lo) <= 0.3*float64(hi)
}
