// Package symbols extracts declared symbols, imports and call names from
// diff fragments. Fragments are partial source, so extraction is best
// effort: tree-sitter where it is compiled in, line patterns always.
package symbols

import (
	"path"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangUnknown    Language = ""
)

// LanguageFromPath maps a file extension to a language.
func LanguageFromPath(p string) Language {
	switch strings.ToLower(path.Ext(p)) {
	case ".go":
		return LangGo
	case ".js", ".mjs", ".cjs", ".jsx", ".vue", ".svelte":
		return LangJavaScript
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".py", ".pyw":
		return LangPython
	case ".rs":
		return LangRust
	case ".java":
		return LangJava
	case ".kt", ".kts":
		return LangKotlin
	case ".cs":
		return LangCSharp
	case ".rb":
		return LangRuby
	default:
		return LangUnknown
	}
}

// isJSFamily reports whether lang shares the JavaScript module syntax.
func (l Language) isJSFamily() bool {
	return l == LangJavaScript || l == LangTypeScript || l == LangTSX
}

// keywords are never identifiers worth comparing.
var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true, "switch": true, "case": true,
	"default": true, "break": true, "continue": true, "return": true, "func": true, "function": true,
	"def": true, "class": true, "struct": true, "interface": true, "type": true, "var": true,
	"let": true, "const": true, "import": true, "from": true, "export": true, "package": true,
	"public": true, "private": true, "protected": true, "static": true, "final": true, "new": true,
	"this": true, "self": true, "super": true, "nil": true, "null": true, "undefined": true,
	"true": true, "false": true, "try": true, "catch": true, "finally": true, "throw": true,
	"throws": true, "async": true, "await": true, "yield": true, "in": true, "of": true, "is": true,
	"not": true, "and": true, "or": true, "as": true, "with": true, "pass": true, "lambda": true,
	"fn": true, "pub": true, "mut": true, "impl": true, "use": true, "mod": true, "match": true,
	"go": true, "defer": true, "chan": true, "select": true, "range": true, "map": true,
	"string": true, "int": true, "bool": true, "void": true, "fun": true, "val": true, "when": true,
	"elif": true, "except": true, "raise": true, "none": true, "typeof": true, "instanceof": true,
	"extends": true, "implements": true, "enum": true, "abstract": true, "override": true,
	"sizeof": true, "err": true, "error": true,
}

// IsKeyword reports whether name is a reserved or ubiquitous language word.
func IsKeyword(name string) bool {
	return keywords[strings.ToLower(name)]
}

// ubiquitous names are defined or called almost everywhere and say nothing
// about two files belonging together.
var ubiquitous = map[string]bool{
	"main": true, "init": true, "__init__": true, "new": true, "constructor": true, "render": true,
	"get": true, "set": true, "setup": true, "teardown": true, "setUp": true, "tearDown": true,
	"String": true, "Error": true, "toString": true, "equals": true, "hashCode": true,
	"len": true, "append": true, "make": true, "print": true, "println": true, "Println": true,
	"Printf": true, "Sprintf": true, "Errorf": true, "log": true, "require": true, "describe": true,
	"it": true, "expect": true, "test": true, "Run": true, "run": true, "close": true, "Close": true,
	"handler": true, "default": true, "console": true, "assert": true,
}

// IsUbiquitous reports whether name is too common to link two files.
func IsUbiquitous(name string) bool {
	return ubiquitous[name] || keywords[name]
}
