// Package ignore parses gitignore-style files into directory names that
// the scanner can prune before descent.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFiles are the ignore files consulted at a repository root.
var DefaultFiles = []string{".gitignore", ".repochatignore"}

// Parser extracts prunable directory names from ignore files.
type Parser struct {
	// Files is the list of ignore file names to look for at the root.
	Files []string
}

// NewParser creates a parser. A nil or empty files list uses DefaultFiles.
func NewParser(files []string) *Parser {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Parser{Files: files}
}

// DirNames reads every configured ignore file under root and returns the
// plain directory names it declares, deduplicated in order of appearance.
// Missing files are skipped. Glob patterns, file patterns, and negations
// are dropped: the scanner prunes by exact directory name only, so any
// pattern it cannot honor is better left to the extension allow-list.
func (p *Parser) DirNames(root string) ([]string, error) {
	var names []string

	for _, file := range p.Files {
		fileNames, err := p.parseFile(filepath.Join(root, file))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		names = append(names, fileNames...)
	}

	return deduplicate(names), nil
}

func (p *Parser) parseFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		if name := dirName(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

// dirName reduces one ignore-file line to a prunable directory name, or
// returns empty when the line is a comment, negation, glob, or file pattern.
func dirName(line string) string {
	line = strings.TrimRight(line, " \t")

	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ""
	}

	// "/build/" and "build/" both mean a directory at or below the root.
	line = strings.TrimPrefix(line, "/")
	trimmed := strings.TrimSuffix(line, "/")
	isDir := trimmed != line

	// Nested paths and glob patterns cannot be pruned by name.
	if strings.ContainsAny(trimmed, "/*?[") {
		return ""
	}

	// A bare name with an extension-like dot is a file pattern unless the
	// trailing slash said otherwise.
	if !isDir && strings.Contains(trimmed, ".") && !strings.HasPrefix(trimmed, ".") {
		return ""
	}

	return trimmed
}

func deduplicate(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))

	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			result = append(result, n)
		}
	}

	return result
}
