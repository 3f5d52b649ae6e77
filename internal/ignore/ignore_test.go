package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirName(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# this is a comment", ""},
		{"negation skipped", "!important.txt", ""},
		{"glob skipped", "*.pyc", ""},
		{"file pattern skipped", "secrets.env", ""},
		{"nested path skipped", "vendor/cache", ""},
		{"simple directory", "node_modules", "node_modules"},
		{"directory with slash", "node_modules/", "node_modules"},
		{"absolute directory", "/dist", "dist"},
		{"hidden directory", ".venv", ".venv"},
		{"dotted dir with slash", "site.build/", "site.build"},
		{"trailing whitespace", "build/  ", "build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dirName(tt.line)
			if result != tt.expected {
				t.Errorf("dirName(%q) = %q, want %q", tt.line, result, tt.expected)
			}
		})
	}
}

func TestDirNames(t *testing.T) {
	tmpDir := t.TempDir()

	gitignore := `# Build outputs
dist/
build/

# Dependencies
node_modules/

# Python
*.pyc
__pycache__/
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		t.Fatal(err)
	}

	extra := `node_modules/
.tox
*.log
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".repochatignore"), []byte(extra), 0644); err != nil {
		t.Fatal(err)
	}

	parser := NewParser(nil)

	names, err := parser.DirNames(tmpDir)
	if err != nil {
		t.Fatalf("DirNames failed: %v", err)
	}

	expected := []string{"dist", "build", "node_modules", "__pycache__", ".tox"}
	if len(names) != len(expected) {
		t.Fatalf("got %v, want %v", names, expected)
	}
	for i, n := range names {
		if n != expected[i] {
			t.Errorf("names[%d] = %q, want %q", i, n, expected[i])
		}
	}
}

func TestDirNames_NoIgnoreFiles(t *testing.T) {
	parser := NewParser([]string{".gitignore"})

	names, err := parser.DirNames(t.TempDir())
	if err != nil {
		t.Fatalf("DirNames failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}

func TestDeduplicate(t *testing.T) {
	input := []string{"a", "b", "a", "c", "b", "d"}
	expected := []string{"a", "b", "c", "d"}

	result := deduplicate(input)

	if len(result) != len(expected) {
		t.Fatalf("got %d items, want %d", len(result), len(expected))
	}

	for i, v := range result {
		if v != expected[i] {
			t.Errorf("result[%d] = %q, want %q", i, v, expected[i])
		}
	}
}
