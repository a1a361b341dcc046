package vocab

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// HuggingFace ByteLevel vocabularies cannot store arbitrary bytes in JSON, so
// each byte 0..255 is written as a stand-in rune: printable Latin-1 bytes map
// to themselves, and every other byte gets the next free rune from 256 up.
var (
	byteLevelRunes   [256]rune
	byteLevelDecoder map[rune]byte
)

func init() {
	var printable [256]bool
	for b := 33; b <= 126; b++ {
		printable[b] = true
	}
	for b := 161; b <= 172; b++ {
		printable[b] = true
	}
	for b := 174; b <= 255; b++ {
		printable[b] = true
	}

	byteLevelDecoder = make(map[rune]byte, 256)
	next := rune(256)
	for b := 0; b < 256; b++ {
		r := rune(b)
		if !printable[b] {
			r = next
			next++
		}
		byteLevelRunes[b] = r
		byteLevelDecoder[r] = byte(b)
	}
}

// ByteLevelRune returns the stand-in rune a ByteLevel vocabulary uses for b.
func ByteLevelRune(b byte) rune {
	return byteLevelRunes[b]
}

// ByteLevelString encodes raw bytes the way a ByteLevel vocabulary spells
// them.
func ByteLevelString(raw []byte) string {
	out := make([]rune, len(raw))
	for i, b := range raw {
		out[i] = byteLevelRunes[b]
	}
	return string(out)
}

// decodeByteLevel turns a vocabulary key back into the bytes it stands for.
// Runes outside the stand-in alphabet are taken literally as UTF-8.
func decodeByteLevel(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			return nil, errors.Errorf("invalid utf8 in token string at %q", s)
		}

		if b, ok := byteLevelDecoder[r]; ok {
			out = append(out, b)
		} else {
			out = utf8.AppendRune(out, r)
		}

		s = s[size:]
	}

	return out, nil
}
