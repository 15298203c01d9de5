package relations

import (
	"context"
	"math"
	"path"
	"regexp"
	"strings"

	"stagewise/internal/changes"
	"stagewise/internal/symbols"
)

// profile is the immutable per-file view the pair evaluators read
type profile struct {
	path     string
	stem     string
	dir      string
	lang     symbols.Language
	isTest   bool
	testStem string
	isConfig bool
	isSource bool

	// content; empty in degraded mode
	imports  []string
	exported []string
	declared map[string]bool
	calls    map[string]bool
	idents   map[string]bool // raw identifiers in changed lines
	tf       map[string]int
	norm     float64
}

var rawIdent = regexp.MustCompile(`[A-Za-z_$][\w$]*`)

func buildProfile(ctx context.Context, ext *symbols.Extractor, c changes.GitChange, degraded bool) profile {
	p := profile{
		path:     c.Path,
		stem:     changes.Stem(c.Path),
		dir:      changes.Dir(c.Path),
		lang:     symbols.LanguageFromPath(c.Path),
		isConfig: changes.IsConfigPath(c.Path),
		isSource: changes.IsSourcePath(c.Path),
	}
	p.testStem, p.isTest = changes.TestSubjectStem(c.Path)
	if degraded || !c.HasContent() {
		return p
	}

	added, removed := c.AddedLines(), c.RemovedLines()
	addFrag := ext.Extract(ctx, c.Path, added)
	remFrag := ext.Extract(ctx, c.Path, removed)

	p.imports = append(append([]string{}, addFrag.Imports...), remFrag.Imports...)
	p.declared = make(map[string]bool)
	exported := make(map[string]bool)
	for _, f := range []symbols.Fragment{addFrag, remFrag} {
		for _, s := range f.Declared {
			p.declared[s.Name] = true
			if s.Exported && !exported[s.Name] {
				exported[s.Name] = true
				p.exported = append(p.exported, s.Name)
			}
		}
	}
	p.calls = make(map[string]bool)
	for _, name := range append(addFrag.Calls, remFrag.Calls...) {
		p.calls[name] = true
	}
	p.idents = make(map[string]bool)
	for _, l := range append(added, removed...) {
		for _, id := range rawIdent.FindAllString(l, -1) {
			p.idents[id] = true
		}
	}

	termLines := added
	if len(termLines) == 0 {
		termLines = removed
	}
	p.tf = symbols.Identifiers(termLines)
	for _, n := range p.tf {
		p.norm += float64(n * n)
	}
	p.norm = math.Sqrt(p.norm)
	return p
}

// importsPath reports whether an import statement in p names target.
func (p profile) importsPath(target profile) (string, bool) {
	if target.path == p.path {
		return "", false
	}
	for _, imp := range p.imports {
		if importNames(imp, p, target) {
			return imp, true
		}
	}
	return "", false
}

func importNames(imp string, from, target profile) bool {
	// Go imports name the package directory
	if target.lang == symbols.LangGo && from.lang == symbols.LangGo {
		return target.dir != "" && target.dir != from.dir &&
			(imp == target.dir || strings.HasSuffix(imp, "/"+target.dir))
	}

	stem := strings.ToLower(target.stem)
	if len(stem) < 2 {
		return false
	}
	for _, cand := range importCandidates(imp) {
		if cand == stem {
			return true
		}
		// "./components" importing components/index.ts
		if stem == "index" && cand == strings.ToLower(path.Base(target.dir)) {
			return true
		}
	}
	return false
}

// importCandidates returns the module names an import may refer to:
// the file stem for paths, the last element for dotted or :: modules.
func importCandidates(imp string) []string {
	imp = strings.ToLower(strings.Trim(imp, `"' `))
	var out []string
	if strings.Contains(imp, "/") || strings.HasPrefix(imp, ".") {
		base := path.Base(imp)
		if ext := path.Ext(base); ext != "" && ext != base {
			base = strings.TrimSuffix(base, ext)
		}
		out = append(out, base)
	}
	if i := strings.LastIndex(imp, "::"); i >= 0 {
		out = append(out, imp[i+2:])
	}
	if !strings.Contains(imp, "/") {
		if i := strings.LastIndex(imp, "."); i >= 0 {
			out = append(out, imp[i+1:])
		}
		out = append(out, imp)
	}
	return out
}

// mentions returns exported symbols declared in p that target's changed lines reference.
func (p profile) mentions(target profile) []string {
	var out []string
	for _, name := range p.exported {
		if symbols.IsUbiquitous(name) || len(name) < 3 {
			continue
		}
		if target.idents[name] {
			out = append(out, name)
		}
	}
	return out
}

// cosine returns the cosine similarity of two term-frequency vectors
func cosine(a, b profile) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a.tf, b.tf
	if len(small) > len(large) {
		small, large = large, small
	}
	dot := 0.0
	for term, n := range small {
		dot += float64(n * large[term])
	}
	return dot / (a.norm * b.norm)
}
