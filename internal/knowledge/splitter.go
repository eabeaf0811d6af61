package knowledge

import (
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// SplitText breaks text into chunks of at most chunkSize runes, preferring
// paragraph, then line, then word boundaries. Separators stay attached to the
// piece that follows them, and consecutive chunks share up to overlap runes.
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(defaultSeparators),
		textsplitter.WithKeepSeparator(true),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	return splitter.SplitText(text)
}
