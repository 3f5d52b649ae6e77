// Package chunker splits source files into bounded-size pieces for embedding.
//
// Splitting is two-phase: a structural pre-split along function and class
// declarations keeps logical units together, then any piece that still
// exceeds the token budget falls back to line-based splitting with a
// configurable overlap of trailing lines carried into the next piece.
package chunker

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/repochat/internal/tokenizer"
)

// Chunk is one bounded piece of a source file, traceable back to its origin.
type Chunk struct {
	Content    string `json:"content"`
	SourcePath string `json:"source_path"`
	// Index is 1-based within the file.
	Index int `json:"chunk_index"`
	Total int `json:"total_chunks"`
}

// Options controls splitting behavior.
type Options struct {
	// MaxTokens is the per-chunk token budget.
	MaxTokens int
	// OverlapLines is how many trailing lines of a closed chunk are carried
	// into the next one as context. Clamped to the closed chunk's length.
	OverlapLines int
	// Model selects the tokenizer encoding used to measure chunks.
	Model string
	// Language hints at which structural patterns to use ("python",
	// "javascript", ...). Empty uses the generic pattern set.
	Language string
}

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:public\s+|private\s+|protected\s+|static\s+|async\s+)*\s*(?:function|def|class|interface|void|int|string|bool|var|let|const)\s+\w+\s*\([^)]*\)\s*(?:\{|:)`),
	regexp.MustCompile(`(?:export\s+)?(?:default\s+)?(?:class|interface)\s+\w+(?:\s+extends\s+\w+)?(?:\s+implements\s+\w+)?\s*\{`),
	regexp.MustCompile(`(?:const|let|var)\s+\w+\s*=\s*(?:function|\([^)]*\)\s*=>)`),
}

var pythonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`def\s+\w+\s*\([^)]*\)\s*:`),
	regexp.MustCompile(`class\s+\w+(?:\([^)]*\))?\s*:`),
	regexp.MustCompile(`@\w+(?:\([^)]*\))?\s*\ndef\s+\w+\s*\([^)]*\)\s*:`),
}

var javascriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:export\s+)?(?:async\s+)?function\s*\w*\s*\([^)]*\)\s*\{`),
	regexp.MustCompile(`(?:export\s+)?(?:class|interface)\s+\w+(?:\s+extends\s+\w+)?(?:\s+implements\s+\w+)?\s*\{`),
	regexp.MustCompile(`(?:export\s+)?(?:const|let|var)\s+\w+\s*=\s*(?:function|\([^)]*\)\s*=>)`),
	regexp.MustCompile(`(?:export\s+)?(?:const|let|var)\s+\w+\s*=\s*\{`),
}

// extLanguages maps file extensions to a structural pattern family.
var extLanguages = map[string]string{
	".py":    "python",
	".ipynb": "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "javascript",
	".tsx":   "javascript",
	".vue":   "javascript",
}

// LanguageForExt returns the pattern-family hint for a file extension,
// or empty for the generic set.
func LanguageForExt(ext string) string {
	return extLanguages[strings.ToLower(ext)]
}

func patternsFor(language string) []*regexp.Regexp {
	switch language {
	case "python":
		return pythonPatterns
	case "javascript", "typescript":
		return javascriptPatterns
	default:
		return genericPatterns
	}
}

// File splits content into chunks carrying source metadata. The path is
// recorded verbatim on every chunk; indices are 1-based.
func File(path, content string, opts Options) []Chunk {
	pieces := Split(content, opts)
	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			Content:    piece,
			SourcePath: path,
			Index:      i + 1,
			Total:      len(pieces),
		}
	}
	return chunks
}

// Split divides text into ordered pieces, each within the token budget
// except when a single whitespace-delimited token alone exceeds it.
// Empty input yields a single empty piece, never zero.
func Split(text string, opts Options) []string {
	candidates := structuralSplit(text, opts.Language)

	var out []string
	for _, candidate := range candidates {
		if tokenizer.Count(candidate, opts.Model) <= opts.MaxTokens {
			out = append(out, candidate)
			continue
		}
		out = append(out, splitByLines(candidate, opts)...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// structuralSplit cuts text at function/class declaration starts. Content
// before the first declaration becomes its own leading piece. Fewer than
// two matches means no structural split is possible and the whole text is
// one candidate.
func structuralSplit(text, language string) []string {
	starts := matchStarts(text, patternsFor(language))
	if len(starts) < 2 {
		return []string{text}
	}

	var pieces []string
	if starts[0] > 0 {
		pieces = append(pieces, text[:starts[0]])
	}
	for i, start := range starts {
		end := len(text)
		if i < len(starts)-1 {
			end = starts[i+1]
		}
		pieces = append(pieces, text[start:end])
	}
	return pieces
}

// matchStarts collects the start offsets of all pattern matches, merged
// across patterns in text order with duplicates removed.
func matchStarts(text string, patterns []*regexp.Regexp) []int {
	seen := make(map[int]bool)
	var starts []int
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if !seen[loc[0]] {
				seen[loc[0]] = true
				starts = append(starts, loc[0])
			}
		}
	}
	sortInts(starts)
	return starts
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

// splitByLines accumulates lines until the next line would blow the token
// budget, then closes the chunk and carries the last OverlapLines lines
// forward as context. A single line over the budget is split on whitespace
// instead, bypassing line granularity for that line only.
func splitByLines(text string, opts Options) []string {
	lines := strings.Split(text, "\n")

	var chunks []string
	var current []string
	currentTokens := 0

	for _, line := range lines {
		lineTokens := tokenizer.Count(line+"\n", opts.Model)

		switch {
		case lineTokens > opts.MaxTokens:
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, "\n"))
			}
			chunks = append(chunks, splitLongLine(line, opts)...)
			current = nil
			currentTokens = 0

		case currentTokens+lineTokens <= opts.MaxTokens:
			current = append(current, line)
			currentTokens += lineTokens

		default:
			chunks = append(chunks, strings.Join(current, "\n"))
			current = carryOverlap(current, line, opts)
			current = append(current, line)
			currentTokens = tokenizer.Count(strings.Join(current, "\n"), opts.Model)
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// carryOverlap returns the trailing overlap lines of a closed chunk,
// trimmed from the front until they plus the incoming line fit the budget.
// The overlap never exceeds the closed chunk's own line count.
func carryOverlap(closed []string, next string, opts Options) []string {
	overlap := opts.OverlapLines
	if overlap > len(closed) {
		overlap = len(closed)
	}
	if overlap <= 0 {
		return nil
	}

	carried := closed[len(closed)-overlap:]
	for len(carried) > 0 {
		joined := strings.Join(append(append([]string{}, carried...), next), "\n")
		if tokenizer.Count(joined, opts.Model) <= opts.MaxTokens {
			break
		}
		carried = carried[1:]
	}
	if len(carried) == 0 {
		return nil
	}
	return append([]string{}, carried...)
}

// splitLongLine splits one oversized line at whitespace so every piece
// fits the budget. A single token larger than the budget is emitted
// as-is; it cannot be split further without corrupting the content.
func splitLongLine(line string, opts Options) []string {
	words := strings.Split(line, " ")

	var chunks []string
	var current []string
	currentTokens := 0

	for _, word := range words {
		wordTokens := tokenizer.Count(word+" ", opts.Model)
		if len(current) > 0 && currentTokens+wordTokens > opts.MaxTokens {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
		current = append(current, word)
		currentTokens += wordTokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
