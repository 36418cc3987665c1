package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceBoundary matches terminal punctuation, the whitespace run after it
// and the uppercase letter opening the next sentence. Only the whitespace run
// (submatch 1) separates sentences. Whitespace is the Unicode set: RE2's \s is
// ASCII only, and extracted HTML carries U+00A0 for &nbsp;.
var sentenceBoundary = regexp.MustCompile(`[.!?]([\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+)[A-Z]`)

type sentence struct {
	text  string // trimmed
	start int    // rune offset of the untrimmed part
	end   int
}

func (s sentence) length() int {
	return utf8.RuneCountInString(s.text)
}

// splitSentences cuts text at sentence boundaries and locates each part by
// searching forward from the end of the previous one.
func splitSentences(text string) []sentence {
	var parts []string
	prev := 0
	for _, m := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		parts = append(parts, text[prev:m[2]])
		prev = m[3]
	}
	parts = append(parts, text[prev:])

	offsets := runeOffsets{text: text}
	var sentences []sentence
	cursor := 0
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}

		idx := strings.Index(text[cursor:], part)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(part)

		sentences = append(sentences, sentence{
			text:  trimmed,
			start: offsets.at(start),
			end:   offsets.at(end),
		})
		cursor = end
	}

	return sentences
}

// runeOffsets converts ascending byte offsets into rune offsets without
// rescanning the prefix each time.
type runeOffsets struct {
	text     string
	lastByte int
	lastRune int
}

func (r *runeOffsets) at(byteOffset int) int {
	if byteOffset < r.lastByte {
		r.lastByte, r.lastRune = 0, 0
	}
	r.lastRune += utf8.RuneCountInString(r.text[r.lastByte:byteOffset])
	r.lastByte = byteOffset
	return r.lastRune
}
