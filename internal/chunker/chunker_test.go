package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repochat/internal/tokenizer"
)

func TestSplitEmptyInputYieldsOneEmptyChunk(t *testing.T) {
	chunks := Split("", Options{MaxTokens: 100})
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0])
}

func TestSplitSmallFileIsOneChunk(t *testing.T) {
	src := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"
	chunks := Split(src, Options{MaxTokens: 4000})
	require.Len(t, chunks, 1)
	assert.Equal(t, src, chunks[0])
}

func TestSplitStructuralPython(t *testing.T) {
	src := `import os

def first(a, b):
    return a + b

def second(x):
    return x * 2

class Widget:
    pass
`
	chunks := Split(src, Options{MaxTokens: 4000, Language: "python"})

	// Leading imports, two functions, one class.
	require.Len(t, chunks, 4)
	assert.True(t, strings.HasPrefix(chunks[0], "import os"))
	assert.True(t, strings.HasPrefix(chunks[1], "def first"))
	assert.True(t, strings.HasPrefix(chunks[2], "def second"))
	assert.True(t, strings.HasPrefix(chunks[3], "class Widget"))

	// Structural chunks concatenate back to the original exactly.
	assert.Equal(t, src, strings.Join(chunks, ""))
}

func TestSplitSingleDeclarationStaysWhole(t *testing.T) {
	src := "def only_one():\n    return 1\n"
	chunks := Split(src, Options{MaxTokens: 4000, Language: "python"})
	require.Len(t, chunks, 1)
	assert.Equal(t, src, chunks[0])
}

func TestSplitLineFallbackRespectsBudget(t *testing.T) {
	var b strings.Builder
	b.WriteString("def huge():\n")
	for i := 0; i < 1500; i++ {
		fmt.Fprintf(&b, "    value_%d = compute(%d)\n", i, i)
	}
	src := b.String()
	require.Greater(t, len(src), 50000)

	opts := Options{MaxTokens: 100, OverlapLines: 5, Language: "python"}
	chunks := Split(src, opts)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, tokenizer.Count(c, ""), opts.MaxTokens, "chunk %d over budget", i)
	}

	// Every source line must survive into some chunk.
	joined := strings.Join(chunks, "\n")
	assert.Contains(t, joined, "value_0 = compute(0)")
	assert.Contains(t, joined, "value_1499 = compute(1499)")
}

func TestSplitOverlapCarriesTrailingLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "line number %d\n", i)
	}

	opts := Options{MaxTokens: 80, OverlapLines: 3}
	chunks := Split(b.String(), opts)
	require.Greater(t, len(chunks), 1)

	// The first chunk's last line reappears at the top of the second chunk.
	firstLines := strings.Split(chunks[0], "\n")
	last := firstLines[len(firstLines)-1]
	secondLines := strings.Split(chunks[1], "\n")
	overlapRegion := strings.Join(secondLines[:min(len(secondLines), opts.OverlapLines)], "\n")
	assert.Contains(t, overlapRegion, last)
}

func TestSplitOverlapClampedToShortChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "row %d\n", i)
	}

	// Overlap far larger than any chunk's line count must not panic or
	// stall; chunks still respect the budget.
	chunks := Split(b.String(), Options{MaxTokens: 40, OverlapLines: 200})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, tokenizer.Count(c, ""), 40)
	}
}

func TestSplitOversizedSingleLine(t *testing.T) {
	// A minified-style single line far over budget gets split on spaces.
	words := make([]string, 400)
	for i := range words {
		words[i] = fmt.Sprintf("tok%04d", i)
	}
	line := strings.Join(words, " ")

	chunks := Split(line, Options{MaxTokens: 50})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, tokenizer.Count(c, ""), 50)
		assert.NotContains(t, c, "\n")
	}

	var got []string
	for _, c := range chunks {
		got = append(got, strings.Fields(c)...)
	}
	assert.Equal(t, words, got)
}

func TestFileAssignsIndexAndTotal(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}

	chunks := File("src/app.py", b.String(), Options{MaxTokens: 60, OverlapLines: 2})
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, "src/app.py", c.SourcePath)
		assert.Equal(t, i+1, c.Index)
		assert.Equal(t, len(chunks), c.Total)
	}
}

func TestLanguageForExt(t *testing.T) {
	assert.Equal(t, "python", LanguageForExt(".py"))
	assert.Equal(t, "javascript", LanguageForExt(".TSX"))
	assert.Equal(t, "", LanguageForExt(".go"))
	assert.Equal(t, "", LanguageForExt(""))
}
