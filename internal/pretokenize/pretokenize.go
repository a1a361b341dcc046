// Package pretokenize chunks raw text into pieces before byte-level merging.
// Merges never cross a piece boundary, so the split pattern is part of a
// profile's exact behavior and must match the reference tokenizer.
package pretokenize

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// CL100KPattern is the cl100k_base split pattern.
const CL100KPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

// O200KPattern is the o200k_base split pattern.
const O200KPattern = `[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]*[\p{Ll}\p{Lm}\p{Lo}\p{M}]+(?i:'s|'t|'re|'ve|'m|'ll|'d)?` +
	`|[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]+[\p{Ll}\p{Lm}\p{Lo}\p{M}]*(?i:'s|'t|'re|'ve|'m|'ll|'d)?` +
	`|\p{N}{1,3}` +
	`| ?[^\s\p{L}\p{N}]+[\r\n/]*` +
	`|\s*[\r\n]+` +
	`|\s+(?!\S)` +
	`|\s+`

// GPT2Pattern is the split applied by a HuggingFace ByteLevel pre-tokenizer
// with use_regex enabled.
const GPT2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// Splitter cuts text into pieces with a compiled pattern. It is safe for
// concurrent use.
type Splitter struct {
	pattern string
	re      *regexp2.Regexp
}

// Compile builds a Splitter. Lookahead is required by the reference
// patterns, which is why regexp2 is used instead of regexp.
func Compile(pattern string) (*Splitter, error) {
	if pattern == "" {
		return nil, errors.New("empty split pattern")
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, errors.Wrapf(err, "compile split pattern %q", pattern)
	}
	return &Splitter{pattern: pattern, re: re}, nil
}

// MustCompile is Compile for the built-in patterns.
func MustCompile(pattern string) *Splitter {
	s, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return s
}

// Pattern returns the source pattern.
func (s *Splitter) Pattern() string {
	return s.pattern
}

// Each calls fn for every piece of text in order. Pieces are substrings of
// text and together cover it exactly: runs the pattern does not match are
// passed through as their own pieces. text must be valid UTF-8.
func (s *Splitter) Each(text string, fn func(piece string)) error {
	if text == "" {
		return nil
	}

	m, err := s.re.FindStringMatch(text)
	if err != nil {
		return errors.Wrap(err, "split")
	}

	// regexp2 reports rune offsets; walk them forward to byte offsets.
	pos, runePos := 0, 0
	for m != nil {
		start := pos
		for runePos < m.Index {
			_, size := utf8.DecodeRuneInString(text[start:])
			start += size
			runePos++
		}
		end := start
		for runePos < m.Index+m.Length {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
			runePos++
		}

		if start > pos {
			fn(text[pos:start])
		}
		if end > start {
			fn(text[start:end])
		}
		pos = end

		m, err = s.re.FindNextMatch(m)
		if err != nil {
			return errors.Wrap(err, "split")
		}
	}

	if pos < len(text) {
		fn(text[pos:])
	}
	return nil
}

// Split returns the pieces of text as a slice.
func (s *Splitter) Split(text string) ([]string, error) {
	var pieces []string
	err := s.Each(text, func(piece string) {
		pieces = append(pieces, piece)
	})
	if err != nil {
		return nil, err
	}
	return pieces, nil
}
