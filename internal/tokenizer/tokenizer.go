// Package tokenizer counts tokens for chunk sizing.
//
// Two modes are offered: Count uses a model-aware subword tokenizer and is
// what the chunker feeds its budget checks; Estimate is a fast fixed-ratio
// approximation used where precision is not worth the cost. Token counts
// here only decide where chunks are cut, so Count degrades to Estimate on
// any tokenizer error instead of propagating it.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models without a registered tiktoken
// mapping (llama, claude, ...). cl100k_base is a reasonable approximation.
const fallbackEncoding = "cl100k_base"

var (
	mu       sync.Mutex
	encoders = map[string]*tiktoken.Tiktoken{}
)

// encoderFor resolves the subword encoder for a model name.
func encoderFor(model string) (*tiktoken.Tiktoken, error) {
	name := fallbackEncoding
	switch {
	case strings.Contains(model, "gpt-4"):
		name = "model:gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		name = "model:gpt-3.5-turbo"
	case strings.Contains(model, "text-embedding"):
		name = "model:" + model
	}

	mu.Lock()
	defer mu.Unlock()
	if enc, ok := encoders[name]; ok {
		return enc, nil
	}

	var enc *tiktoken.Tiktoken
	var err error
	if modelName, ok := strings.CutPrefix(name, "model:"); ok {
		enc, err = tiktoken.EncodingForModel(modelName)
	} else {
		enc, err = tiktoken.GetEncoding(name)
	}
	if err != nil {
		return nil, err
	}
	encoders[name] = enc
	return enc, nil
}

// Count returns the number of tokens in text for the given model.
//
// On any tokenizer failure it silently falls back to Estimate; a slightly
// wrong count produces slightly uneven chunks, not incorrect output.
func Count(text, model string) int {
	enc, err := encoderFor(model)
	if err != nil {
		return Estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Estimate approximates the token count as len(text)/4, a fast
// language-agnostic heuristic.
func Estimate(text string) int {
	return len(text) / 4
}
