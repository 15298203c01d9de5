package changes

import (
	"path"
	"strings"
	"unicode"
)

var sourceExts = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".java": true, ".kt": true, ".kts": true, ".rs": true, ".rb": true, ".php": true,
	".cs": true, ".c": true, ".h": true, ".cc": true, ".cpp": true, ".hpp": true, ".swift": true,
	".scala": true, ".vue": true, ".svelte": true, ".sql": true, ".sh": true,
}

var docExts = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".adoc": true, ".txt": true,
}

var configExts = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true,
	".conf": true, ".properties": true, ".env": true, ".xml": true,
}

// manifests maps a package manifest to its ecosystem
var manifests = map[string]string{
	"package.json":     "node",
	"go.mod":           "go",
	"cargo.toml":       "rust",
	"pyproject.toml":   "python",
	"requirements.txt": "python",
	"setup.py":         "python",
	"setup.cfg":        "python",
	"pipfile":          "python",
	"gemfile":          "ruby",
	"pom.xml":          "java",
	"build.gradle":     "java",
	"build.gradle.kts": "java",
	"composer.json":    "php",
}

// lockFiles maps a lock file to the manifest it pins
var lockFiles = map[string]string{
	"package-lock.json": "package.json",
	"yarn.lock":         "package.json",
	"pnpm-lock.yaml":    "package.json",
	"bun.lockb":         "package.json",
	"go.sum":            "go.mod",
	"cargo.lock":        "cargo.toml",
	"poetry.lock":       "pyproject.toml",
	"uv.lock":           "pyproject.toml",
	"pipfile.lock":      "pipfile",
	"gemfile.lock":      "gemfile",
	"composer.lock":     "composer.json",
}

var securityTokens = map[string]bool{
	"auth": true, "authn": true, "authz": true, "authentication": true, "authorization": true,
	"crypto": true, "cryptography": true, "session": true, "sessions": true, "credential": true,
	"credentials": true, "permission": true, "permissions": true, "security": true, "oauth": true,
	"jwt": true, "password": true, "passwords": true, "secret": true, "secrets": true,
	"acl": true, "rbac": true, "login": true,
}

// Ext returns the lower-cased extension of path, including the dot
func Ext(p string) string {
	return strings.ToLower(path.Ext(p))
}

// Stem returns the base name without its last extension
func Stem(p string) string {
	base := Base(p)
	if ext := path.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// IsSourcePath reports whether path looks like program source
func IsSourcePath(p string) bool {
	return sourceExts[Ext(p)]
}

// IsTestPath reports whether path is a test file, by naming convention or
// by living under a test directory.
func IsTestPath(p string) bool {
	if _, ok := testSubject(Base(p)); ok {
		return true
	}
	return inTestDir(p) && IsSourcePath(p)
}

// TestSubjectStem returns the stem of the file a test covers: "auth" for
// "auth.test.ts", "handler" for "handler_test.go", "user" for "test_user.py"
// and "User" for "UserTest.java". Source files under a test directory cover
// their own stem.
func TestSubjectStem(p string) (string, bool) {
	if stem, ok := testSubject(Base(p)); ok {
		return stem, true
	}
	if inTestDir(p) && IsSourcePath(p) {
		return Stem(p), true
	}
	return "", false
}

func testSubject(base string) (string, bool) {
	lower := strings.ToLower(base)
	for _, marker := range []string{".test.", ".spec."} {
		if i := strings.Index(lower, marker); i > 0 {
			return base[:i], true
		}
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	switch strings.ToLower(ext) {
	case ".go", ".py", ".rb", ".rs":
		if strings.HasSuffix(stem, "_test") && len(stem) > len("_test") {
			return strings.TrimSuffix(stem, "_test"), true
		}
		if strings.HasSuffix(stem, "_spec") && len(stem) > len("_spec") {
			return strings.TrimSuffix(stem, "_spec"), true
		}
		if strings.HasPrefix(stem, "test_") && len(stem) > len("test_") {
			return strings.TrimPrefix(stem, "test_"), true
		}
	case ".java", ".kt", ".cs", ".scala", ".swift":
		for _, suffix := range []string{"Tests", "Test", "Spec"} {
			if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
				return strings.TrimSuffix(stem, suffix), true
			}
		}
	}
	return "", false
}

func inTestDir(p string) bool {
	for _, part := range strings.Split(Dir(p), "/") {
		switch strings.ToLower(part) {
		case "test", "tests", "__tests__", "spec", "specs":
			return true
		}
	}
	return false
}

// IsDocPath reports whether path is documentation
func IsDocPath(p string) bool {
	base := strings.ToUpper(Stem(p))
	switch base {
	case "README", "CHANGELOG", "CONTRIBUTING", "LICENSE", "AUTHORS", "CODE_OF_CONDUCT", "HISTORY", "NOTICE":
		return true
	}
	ext := Ext(p)
	if ext == ".md" || ext == ".mdx" || ext == ".rst" || ext == ".adoc" {
		return true
	}
	if docExts[ext] || ext == "" {
		for _, part := range strings.Split(Dir(p), "/") {
			if part == "docs" || part == "doc" || part == "documentation" {
				return true
			}
		}
	}
	return false
}

// IsManifest reports whether path is a package manifest
func IsManifest(p string) bool {
	_, ok := manifests[strings.ToLower(Base(p))]
	return ok
}

// IsLockFile reports whether path is a dependency lock file
func IsLockFile(p string) bool {
	_, ok := lockFiles[strings.ToLower(Base(p))]
	return ok
}

// LocksManifest reports whether lock pins manifest: same directory and a
// matching ecosystem pair such as package-lock.json and package.json.
func LocksManifest(lock, manifest string) bool {
	want, ok := lockFiles[strings.ToLower(Base(lock))]
	if !ok {
		return false
	}
	return want == strings.ToLower(Base(manifest)) && Dir(lock) == Dir(manifest)
}

// IsEnvFile reports whether path holds environment variables
func IsEnvFile(p string) bool {
	base := strings.ToLower(Base(p))
	return base == ".env" || strings.HasPrefix(base, ".env.") || strings.HasSuffix(base, ".env")
}

// IsConfigPath reports whether path is configuration: manifests, lock files,
// env files, tool rc files and data-format files outside documentation.
func IsConfigPath(p string) bool {
	if IsManifest(p) || IsLockFile(p) || IsEnvFile(p) {
		return true
	}
	base := strings.ToLower(Base(p))
	switch {
	case base == "makefile", base == ".editorconfig", base == ".gitignore", base == ".gitattributes",
		base == ".npmrc", base == ".nvmrc", base == ".babelrc", base == ".dockerignore":
		return true
	case strings.HasPrefix(base, ".eslintrc"), strings.HasPrefix(base, ".prettierrc"),
		strings.HasPrefix(base, "tsconfig"), strings.HasPrefix(base, "jsconfig"):
		return true
	case strings.Contains(base, ".config."), strings.HasSuffix(Stem(base), "rc") && strings.HasPrefix(base, "."):
		return true
	}
	if configExts[Ext(p)] && !IsDocPath(p) {
		return true
	}
	return false
}

// ConfigFamily groups config files that usually change together: the
// manifest ecosystem for manifests, lock files and tool configs, otherwise
// the file format.
func ConfigFamily(p string) string {
	base := strings.ToLower(Base(p))
	if eco, ok := manifests[base]; ok {
		return eco
	}
	if m, ok := lockFiles[base]; ok {
		return manifests[m]
	}
	switch {
	case strings.HasPrefix(base, "tsconfig"), strings.HasPrefix(base, "jsconfig"),
		strings.HasPrefix(base, ".eslintrc"), strings.HasPrefix(base, ".prettierrc"),
		base == ".npmrc", base == ".nvmrc", base == ".babelrc":
		return "node"
	case IsEnvFile(p):
		return "env"
	case IsDeploymentPath(p):
		return "deploy"
	}
	switch ext := Ext(p); ext {
	case ".yaml", ".yml":
		return "yaml"
	case "":
		return ""
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

// IsDeploymentPath reports whether path belongs to build, CI or deployment
// infrastructure.
func IsDeploymentPath(p string) bool {
	lower := strings.ToLower(p)
	base := Base(lower)
	switch {
	case strings.HasPrefix(base, "dockerfile"), strings.HasSuffix(base, ".dockerfile"):
		return true
	case strings.HasPrefix(base, "docker-compose"), strings.HasPrefix(base, "compose.y"):
		return true
	case base == "jenkinsfile", base == "procfile", base == ".gitlab-ci.yml", base == ".travis.yml",
		base == "azure-pipelines.yml", base == "skaffold.yaml", base == "fly.toml",
		base == "netlify.toml", base == "vercel.json", base == "app.yaml":
		return true
	case strings.HasSuffix(base, ".tf"), strings.HasSuffix(base, ".tfvars"):
		return true
	case strings.HasPrefix(lower, ".github/workflows/"), strings.HasPrefix(lower, ".circleci/"),
		strings.HasPrefix(lower, ".buildkite/"):
		return true
	}
	for _, part := range strings.Split(Dir(lower), "/") {
		switch part {
		case "k8s", "kubernetes", "helm", "charts", "deploy", "deployment", "deployments", "terraform", "infra":
			return true
		}
	}
	return false
}

// IsMigrationPath reports whether path is a database migration
func IsMigrationPath(p string) bool {
	for _, part := range strings.Split(strings.ToLower(Dir(p)), "/") {
		if part == "migrations" || part == "migration" || part == "migrate" {
			return true
		}
	}
	return false
}

// IsSecuritySensitive reports whether any path token names a security area
// such as auth, crypto or sessions.
func IsSecuritySensitive(p string) bool {
	for _, tok := range PathTokens(p) {
		if securityTokens[tok] {
			return true
		}
	}
	return false
}

// PathTokens splits a path into lower-case words on separators and camel
// case boundaries, dropping the extension: "src/ui/AuthButton.tsx" gives
// [src ui auth button].
func PathTokens(p string) []string {
	trimmed := strings.TrimSuffix(p, path.Ext(p))
	var out []string
	for _, field := range strings.FieldsFunc(trimmed, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out = append(out, splitCamel(field)...)
	}
	return out
}

// splitCamel splits "AuthButton" into [auth button] and "HTTPServer" into
// [http server].
func splitCamel(s string) []string {
	runes := []rune(s)
	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
		if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			out = append(out, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	out = append(out, strings.ToLower(string(runes[start:])))
	return out
}
