package codedoc

import "testing"

func TestAnalyze_Python(t *testing.T) {
	content := `import os
from collections import defaultdict

class Greeter:
    def greet(self, name):
        if name:
            return f"hello {name}"
        else:
            return "hello"
`
	got := Analyze("f1", content, "python")

	if len(got.Functions) != 1 || got.Functions[0] != "greet" {
		t.Errorf("expected [greet], got %v", got.Functions)
	}
	if len(got.Classes) != 1 || got.Classes[0] != "Greeter" {
		t.Errorf("expected [Greeter], got %v", got.Classes)
	}
	if len(got.Imports) != 2 {
		t.Errorf("expected 2 imports, got %v", got.Imports)
	}
	if got.Complexity <= 1 {
		t.Errorf("expected complexity > 1 for if/else/return, got %d", got.Complexity)
	}
}

func TestAnalyze_UnknownLanguageFallsBackToComplexityOnly(t *testing.T) {
	got := Analyze("f1", "if (x) { return 1; } else { return 2; }", "cobol")

	if len(got.Functions) != 0 || len(got.Classes) != 0 || len(got.Imports) != 0 {
		t.Errorf("expected no detail for unknown language, got %+v", got)
	}
	if got.Complexity <= 1 {
		t.Errorf("expected complexity still computed, got %d", got.Complexity)
	}
}

func TestInferLanguage_ByExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.py", "python"},
		{"index.ts", "typescript"},
		{"App.tsx", "typescript"},
		{"Main.java", "java"},
		{"script.js", "javascript"},
		{"notes.md", ""},
	}
	for _, tt := range tests {
		if got := InferLanguage(tt.path, ""); got != tt.want {
			t.Errorf("InferLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHasCodeConstruct(t *testing.T) {
	if HasCodeConstruct("x = 1\ny = 2\n", "python") {
		t.Error("expected no code construct in plain assignments")
	}
	if !HasCodeConstruct("def add(a, b):\n    return a + b\n", "python") {
		t.Error("expected a code construct for a function definition")
	}
}
