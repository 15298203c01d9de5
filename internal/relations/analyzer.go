package relations

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"stagewise/internal/changes"
	"stagewise/internal/slogutil"
	"stagewise/internal/symbols"
)

// Analyzer computes relationships over a change-set
type Analyzer struct {
	opts      Options
	extractor *symbols.Extractor
	logger    *slog.Logger
}

// NewAnalyzer creates a relationship analyzer
func NewAnalyzer(opts Options, extractor *symbols.Extractor, logger *slog.Logger) *Analyzer {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = defaultSimilarityFloor
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	logger = slogutil.OrDiscard(logger)
	if extractor == nil {
		extractor = symbols.NewExtractor(logger)
	}
	return &Analyzer{opts: opts, extractor: extractor, logger: logger}
}

// Analyze evaluates every unordered pair of changes. Pairs are evaluated
// concurrently into disjoint slots and gathered in pair order, so output is
// deterministic for a given input order.
func (a *Analyzer) Analyze(ctx context.Context, cs []changes.GitChange) ([]FileRelationship, error) {
	n := len(cs)
	if n < 2 {
		return []FileRelationship{}, nil
	}

	profiles := make([]profile, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := range cs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			profiles[i] = buildProfile(gctx, a.extractor, cs[i], a.opts.Degraded)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// one slot per pair (i<j), indexed row-major
	slots := make([][]FileRelationship, n*(n-1)/2)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			base := pairOffset(i, n)
			for j := i + 1; j < n; j++ {
				slots[base+j-i-1] = a.evaluatePair(profiles[i], profiles[j])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []FileRelationship
	for _, slot := range slots {
		out = append(out, slot...)
	}
	if out == nil {
		out = []FileRelationship{}
	}

	a.logger.Debug("relationships computed",
		"files", n,
		"pairs", len(slots),
		"relationships", len(out),
		"degraded", a.opts.Degraded,
	)
	return out, nil
}

// pairOffset is the slot index of pair (i, i+1)
func pairOffset(i, n int) int {
	return i*n - i*(i+1)/2
}

// evaluatePair runs every evaluator on one pair, in fixed type order
func (a *Analyzer) evaluatePair(x, y profile) []FileRelationship {
	var rels []FileRelationship
	add := func(t Type, strength float64, evidence string) {
		fa, fb := x.path, y.path
		if fb < fa {
			fa, fb = fb, fa
		}
		rels = append(rels, FileRelationship{
			FileA:    fa,
			FileB:    fb,
			Type:     t,
			Strength: round3(strength),
			Evidence: evidence,
		})
	}

	if !a.opts.Degraded {
		if s, ev, ok := evalImport(x, y); ok {
			add(Import, s, ev)
		}
		if s, ok := evalSimilar(x, y, a.opts.SimilarityThreshold); ok {
			add(SimilarChanges, s, fmt.Sprintf("cosine similarity %.2f of changed identifiers", s))
		}
		if s, ev, ok := evalShared(x, y); ok {
			add(SharedFunction, s, ev)
		}
	}
	if s, ev, ok := evalTestPair(x, y); ok {
		add(TestPair, s, ev)
	}
	if s, ev, ok := evalConfig(x, y); ok {
		add(ConfigRelated, s, ev)
	}
	return rels
}

func evalImport(x, y profile) (float64, string, bool) {
	if imp, ok := x.importsPath(y); ok {
		return importStrength, fmt.Sprintf("%s imports %q", x.path, imp), true
	}
	if imp, ok := y.importsPath(x); ok {
		return importStrength, fmt.Sprintf("%s imports %q", y.path, imp), true
	}

	best, by, names := 0.0, "", []string(nil)
	for _, dir := range [][2]profile{{x, y}, {y, x}} {
		m := dir[0].mentions(dir[1])
		if len(m) == 0 {
			continue
		}
		s := math.Min(mentionCap, mentionBase+mentionStep*float64(len(m)-1))
		if s > best {
			best, by, names = s, dir[1].path, m
		}
	}
	if best == 0 {
		return 0, "", false
	}
	return best, fmt.Sprintf("%s references %s", by, strings.Join(names, ", ")), true
}

func evalSimilar(x, y profile, threshold float64) (float64, bool) {
	s := cosine(x, y)
	if s < threshold || s == 0 {
		return 0, false
	}
	return math.Min(1, s), true
}

func evalShared(x, y profile) (float64, string, bool) {
	if len(x.declared) == 0 && len(y.declared) == 0 {
		return 0, "", false
	}
	shared := map[string]bool{}
	for name := range x.declared {
		if y.declared[name] || y.calls[name] {
			shared[name] = true
		}
	}
	for name := range y.declared {
		if x.calls[name] {
			shared[name] = true
		}
	}
	names := make([]string, 0, len(shared))
	for name := range shared {
		if !symbols.IsUbiquitous(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return 0, "", false
	}
	sort.Strings(names)
	s := math.Min(sharedCap, sharedBase+sharedStep*float64(len(names)))
	return s, "shares " + strings.Join(names, ", "), true
}

func evalTestPair(x, y profile) (float64, string, bool) {
	test, subject := x, y
	if !test.isTest || subject.isTest {
		test, subject = y, x
	}
	if !test.isTest || subject.isTest || test.testStem == "" {
		return 0, "", false
	}

	want, have := strings.ToLower(test.testStem), strings.ToLower(subject.stem)
	switch {
	case want == have && test.dir == subject.dir:
		return testPairSameDir, fmt.Sprintf("%s tests %s (same directory)", test.path, subject.path), true
	case want == have:
		return testPairExact, fmt.Sprintf("%s tests %s", test.path, subject.path), true
	case len(want) >= 3 && len(have) >= 3 && (strings.HasPrefix(have, want) || strings.HasPrefix(want, have)):
		return testPairPrefix, fmt.Sprintf("%s likely tests %s (name prefix)", test.path, subject.path), true
	}
	return 0, "", false
}

func evalConfig(x, y profile) (float64, string, bool) {
	switch {
	case changes.LocksManifest(x.path, y.path) || changes.LocksManifest(y.path, x.path):
		return configManifestLock, "manifest and lock file", true
	case x.isConfig && y.isConfig && x.dir == y.dir:
		return configSameDir, "config files in the same directory", true
	case x.isConfig && y.isConfig:
		fx, fy := changes.ConfigFamily(x.path), changes.ConfigFamily(y.path)
		if fx != "" && fx == fy {
			return configSameFamily, fmt.Sprintf("%s config family", fx), true
		}
	case x.isConfig != y.isConfig && x.dir == y.dir && (x.isSource || y.isSource):
		return configSourceSameDir, "config and source in the same directory", true
	}
	return 0, "", false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
