package symbols

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"stagewise/internal/slogutil"
)

// Kind is the declaration kind of a symbol.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindType      Kind = "type"
	KindInterface Kind = "interface"
	KindVariable  Kind = "variable"
)

// Symbol is a declaration found in a diff fragment.
type Symbol struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Line     int    `json:"line"` // 1-indexed within the fragment
	Exported bool   `json:"exported"`
	Source   string `json:"source"` // "treesitter" or "pattern"
}

// Fragment is what one side (added or removed lines) of a file diff declares
// and references.
type Fragment struct {
	Language Language
	Declared []Symbol
	Imports  []string
	Calls    []string
}

// DeclaredNames returns the declared names, sorted and deduplicated.
func (f Fragment) DeclaredNames() []string {
	return uniqueSorted(f.Declared, func(s Symbol) bool { return true })
}

// ExportedNames returns the exported declared names, sorted.
func (f Fragment) ExportedNames() []string {
	return uniqueSorted(f.Declared, func(s Symbol) bool { return s.Exported })
}

// Has reports whether name is declared in the fragment.
func (f Fragment) Has(name string) bool {
	for _, s := range f.Declared {
		if s.Name == name {
			return true
		}
	}
	return false
}

func uniqueSorted(syms []Symbol, keep func(Symbol) bool) []string {
	seen := make(map[string]bool, len(syms))
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		if keep(s) && !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out
}

// RemovedExported returns exported names declared on the removed side and
// not declared again on the added side: the API a change takes away.
func RemovedExported(removed, added Fragment) []string {
	var out []string
	for _, name := range removed.ExportedNames() {
		if !added.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Extractor extracts symbols from diff fragments. Safe for concurrent use.
type Extractor struct {
	logger     *slog.Logger
	treeSitter bool
}

// NewExtractor creates an extractor. Tree-sitter is used when the binary was
// built with cgo; pattern extraction always runs and the results are merged.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger:     slogutil.OrDiscard(logger),
		treeSitter: TreeSitterAvailable(),
	}
}

// PatternOnly returns a copy of the extractor that skips tree-sitter.
func (e *Extractor) PatternOnly() *Extractor {
	return &Extractor{logger: e.logger}
}

// Extract analyzes lines of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string, lines []string) Fragment {
	lang := LanguageFromPath(path)
	frag := Fragment{Language: lang}
	if len(lines) == 0 {
		return frag
	}

	frag.Declared = patternDecls(lang, lines)
	if e.treeSitter && treeSitterSupports(lang) {
		tsSyms, err := parseDecls(ctx, lang, lines)
		if err != nil {
			e.logger.Debug("tree-sitter parse failed, using patterns",
				"path", path,
				"error", err.Error(),
			)
		} else {
			frag.Declared = mergeSymbols(frag.Declared, tsSyms)
		}
	}
	frag.Imports = extractImports(lang, lines)
	frag.Calls = extractCalls(lines)
	return frag
}

// mergeSymbols adds tree-sitter symbols the patterns missed.
func mergeSymbols(base, extra []Symbol) []Symbol {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s.Name] = true
	}
	for _, s := range extra {
		if !seen[s.Name] {
			seen[s.Name] = true
			base = append(base, s)
		}
	}
	sort.SliceStable(base, func(i, j int) bool { return base[i].Line < base[j].Line })
	return base
}

type declPattern struct {
	re   *regexp.Regexp
	kind Kind
}

var (
	goDecls = []declPattern{
		{regexp.MustCompile(`^\s*func\s+\([^)]*\)\s*([A-Za-z_]\w*)`), KindMethod},
		{regexp.MustCompile(`^\s*func\s+([A-Za-z_]\w*)`), KindFunction},
		{regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+interface\b`), KindInterface},
		{regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)`), KindType},
		{regexp.MustCompile(`^(?:var|const)\s+([A-Za-z_]\w*)`), KindVariable},
	}
	jsDecls = []declPattern{
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), KindClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?interface\s+([A-Za-z_$][\w$]*)`), KindInterface},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?(?:type|enum)\s+([A-Za-z_$][\w$]*)`), KindType},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]*)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]*)?=>|[A-Za-z_$][\w$]*\s*=>)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)(?:const|let|var)\s+([A-Za-z_$][\w$]*)`), KindVariable},
	}
	pyDecls = []declPattern{
		{regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`), KindFunction},
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), KindClass},
	}
	jvmDecls = []declPattern{
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|open|sealed|data|partial)\s+)*interface\s+([A-Za-z_]\w*)`), KindInterface},
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|open|sealed|data|partial)\s+)*(?:class|enum|object|record|struct)\s+([A-Za-z_]\w*)`), KindClass},
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|open|override|suspend|inline)\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?([A-Za-z_]\w*)\s*\(`), KindFunction},
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|synchronized|virtual|override|async)\s+)+[\w<>\[\],.?]+\s+([A-Za-z_]\w*)\s*\(`), KindMethod},
	}
	rustDecls = []declPattern{
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?trait\s+([A-Za-z_]\w*)`), KindInterface},
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|type)\s+([A-Za-z_]\w*)`), KindType},
	}
	rubyDecls = []declPattern{
		{regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:class|module)\s+([A-Z]\w*)`), KindClass},
	}
)

func declPatternsFor(lang Language) []declPattern {
	switch {
	case lang == LangGo:
		return goDecls
	case lang.isJSFamily():
		return jsDecls
	case lang == LangPython:
		return pyDecls
	case lang == LangJava, lang == LangKotlin, lang == LangCSharp:
		return jvmDecls
	case lang == LangRust:
		return rustDecls
	case lang == LangRuby:
		return rubyDecls
	}
	return nil
}

// patternDecls finds declarations line by line. The first matching pattern
// per line wins.
func patternDecls(lang Language, lines []string) []Symbol {
	patterns := declPatternsFor(lang)
	var out []Symbol
	for i, line := range lines {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil || IsKeyword(m[1]) {
				continue
			}
			out = append(out, Symbol{
				Name:     m[1],
				Kind:     p.kind,
				Line:     i + 1,
				Exported: isExported(lang, m[1], line),
				Source:   "pattern",
			})
			break
		}
	}
	return out
}

// isExported applies the language's visibility rule to a declaration line.
func isExported(lang Language, name, line string) bool {
	if name == "" {
		return false
	}
	trimmed := strings.TrimSpace(line)
	switch {
	case lang == LangGo:
		return unicode.IsUpper([]rune(name)[0])
	case lang.isJSFamily():
		return strings.HasPrefix(trimmed, "export ") || strings.HasPrefix(trimmed, "module.exports") ||
			strings.HasPrefix(trimmed, "exports.")
	case lang == LangPython, lang == LangRuby:
		return !strings.HasPrefix(name, "_")
	case lang == LangJava, lang == LangCSharp:
		return strings.Contains(" "+trimmed, " public ")
	case lang == LangKotlin:
		return !strings.Contains(" "+trimmed, " private ") && !strings.Contains(" "+trimmed, " internal ") &&
			!strings.Contains(" "+trimmed, " protected ")
	case lang == LangRust:
		return strings.HasPrefix(trimmed, "pub ") || strings.HasPrefix(trimmed, "pub(")
	}
	return false
}

var (
	goImportLine   = regexp.MustCompile(`^\s*(?:import\s+)?(?:[\w.]+\s+)?"([^"\s]+)"\s*\)?\s*$`)
	jsFromImport   = regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`)
	jsBareImport   = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	jsRequire      = regexp.MustCompile(`\b(?:require|import)\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	pyFromImport   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
	pyImport       = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	jvmImport      = regexp.MustCompile(`^\s*(?:import|using)\s+(?:static\s+)?([\w.]+)`)
	rustUse        = regexp.MustCompile(`^\s*(?:pub\s+)?(?:use|mod)\s+([\w:]+)`)
	rubyRequire    = regexp.MustCompile(`^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`)
	callExpr       = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)
	identifierExpr = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// extractImports returns the import targets named in lines, in order.
func extractImports(lang Language, lines []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, line := range lines {
		switch {
		case lang == LangGo:
			if strings.HasPrefix(strings.TrimSpace(line), "return ") {
				continue
			}
			if m := goImportLine.FindStringSubmatch(line); m != nil {
				add(m[1])
			}
		case lang.isJSFamily(), lang == LangUnknown:
			for _, re := range []*regexp.Regexp{jsFromImport, jsBareImport, jsRequire} {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					add(m[1])
				}
			}
			if lang == LangUnknown {
				if m := pyFromImport.FindStringSubmatch(line); m != nil {
					add(m[1])
				}
			}
		case lang == LangPython:
			if m := pyFromImport.FindStringSubmatch(line); m != nil {
				add(m[1])
			} else if m := pyImport.FindStringSubmatch(line); m != nil {
				for _, mod := range strings.Split(m[1], ",") {
					add(mod)
				}
			}
		case lang == LangJava, lang == LangKotlin, lang == LangCSharp:
			if m := jvmImport.FindStringSubmatch(line); m != nil {
				add(m[1])
			}
		case lang == LangRust:
			if m := rustUse.FindStringSubmatch(line); m != nil {
				add(m[1])
			}
		case lang == LangRuby:
			if m := rubyRequire.FindStringSubmatch(line); m != nil {
				add(m[1])
			}
		}
	}
	return out
}

// extractCalls returns the distinct names followed by "(" in lines,
// excluding keywords.
func extractCalls(lines []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, line := range lines {
		for _, m := range callExpr.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if IsKeyword(name) || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Identifiers returns a term-frequency map of identifier words in lines.
// Identifiers are split on camel case and underscores, lower-cased, and
// words shorter than two letters or keywords are dropped.
func Identifiers(lines []string) map[string]int {
	tf := make(map[string]int)
	for _, line := range lines {
		for _, ident := range identifierExpr.FindAllString(line, -1) {
			for _, word := range splitIdentifier(ident) {
				if len(word) < 2 || keywords[word] {
					continue
				}
				tf[word]++
			}
		}
	}
	return tf
}

func splitIdentifier(ident string) []string {
	var out []string
	for _, part := range strings.Split(ident, "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		start := 0
		for i := 1; i < len(runes); i++ {
			if unicode.IsLower(runes[i-1]) && unicode.IsUpper(runes[i]) {
				out = append(out, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		out = append(out, strings.ToLower(string(runes[start:])))
	}
	return out
}
