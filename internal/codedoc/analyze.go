// Package codedoc does lightweight, best-effort static extraction of
// functions, classes, imports and a complexity estimate from source text.
// It never parses a real AST — a regex scan is enough for the evidence
// MemoryManager needs, and it stays calibrated for new languages by adding
// a pattern set rather than a parser.
package codedoc

import (
	"regexp"
	"strings"

	"agentcore.dev/core/internal/model"
)

var controlKeywords = regexp.MustCompile(`\b(if|else|for|while|try|catch|switch|case|return|throw)\b`)

type patternSet struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
}

var patternsByLanguage = map[string]patternSet{
	"python": {
		function: regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`),
		class:    regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`),
		imports:  regexp.MustCompile(`(?m)^\s*(?:import\s+([A-Za-z0-9_.]+)|from\s+([A-Za-z0-9_.]+)\s+import)`),
	},
	"javascript": {
		function: regexp.MustCompile(`(?m)\bfunction\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(|\bconst\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\(`),
		class:    regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
		imports:  regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]|require\(['"]([^'"]+)['"]\)`),
	},
	"typescript": {
		function: regexp.MustCompile(`(?m)\bfunction\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(|\bconst\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\(`),
		class:    regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
		imports:  regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
	},
	"java": {
		function: regexp.MustCompile(`(?m)\b(?:public|private|protected|static)[\w\s<>\[\]]*?\s([A-Za-z_][A-Za-z0-9_]*)\s*\([^)]*\)\s*\{`),
		class:    regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_][A-Za-z0-9_]*)`),
		imports:  regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)\s*;`),
	},
}

var extensionLanguage = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
}

// InferLanguage guesses a language from a file extension and, failing
// that, from content heuristics. Returns "" when nothing matches.
func InferLanguage(path, content string) string {
	for ext, lang := range extensionLanguage {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	switch {
	case strings.Contains(content, "def ") && strings.Contains(content, ":"):
		return "python"
	case strings.Contains(content, "function ") || strings.Contains(content, "const ") && strings.Contains(content, "=>"):
		return "javascript"
	case strings.Contains(content, "public class ") || strings.Contains(content, "private class "):
		return "java"
	default:
		return ""
	}
}

// Analyze extracts CodeMetadata from content for the given language. Missing
// or unrecognized language falls back to generic control-keyword complexity
// with no function/class/import detail.
func Analyze(fileID, content, language string) model.CodeMetadata {
	meta := model.CodeMetadata{
		Language:   language,
		Complexity: 1 + len(controlKeywords.FindAllString(content, -1)),
	}

	set, ok := patternsByLanguage[language]
	if !ok {
		return meta
	}

	meta.Functions = matchNames(set.function, content)
	meta.Classes = matchNames(set.class, content)
	meta.Imports = matchNames(set.imports, content)
	return meta
}

// matchNames collects the first non-empty capture group from each match,
// since alternation patterns (e.g. "def X" vs "const X = (") populate
// different groups per match.
func matchNames(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	var names []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			if _, ok := seen[group]; ok {
				continue
			}
			seen[group] = struct{}{}
			names = append(names, group)
			break
		}
	}
	return names
}

// HasCodeConstruct reports whether content contains at least one
// function or class declaration recognizable by Analyze, used by
// completionrules to distinguish a real implementation from an empty
// placeholder file.
func HasCodeConstruct(content, language string) bool {
	meta := Analyze("", content, language)
	return len(meta.Functions) > 0 || len(meta.Classes) > 0
}
