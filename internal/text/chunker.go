package text

import (
	"strings"
)

// DefaultMaxWords is used when WindowOptions.MaxWords is not positive.
const DefaultMaxWords = 1000

type WindowOptions struct {
	MaxWords    int
	MinWords    int
	RepeatTitle bool
}

// Words splits on any run of whitespace.
func Words(s string) []string {
	return strings.Fields(s)
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}

// WithTitle prefixes a chunk with its document title.
func WithTitle(title, chunk string) string {
	return title + "\n\n" + chunk
}

// KeepChunk reports whether a chunk reaches the minimum word count.
func KeepChunk(chunk string, minWords int) bool {
	return WordCount(chunk) >= minWords
}

// SplitWords cuts text into windows of at most MaxWords contiguous words.
// Each window is optionally prefixed with the title, and windows below
// MinWords (counted after prefixing) are dropped.
func SplitWords(text, title string, opts WindowOptions) []string {
	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	words := Words(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for i := 0; i < len(words); i += maxWords {
		end := min(i+maxWords, len(words))
		chunk := strings.Join(words[i:end], " ")
		if opts.RepeatTitle {
			chunk = WithTitle(title, chunk)
		}
		if !KeepChunk(chunk, opts.MinWords) {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
