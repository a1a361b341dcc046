package engine

import (
	"unicode/utf8"

	"github.com/bpetok/bpe-openai/internal/vocab"
)

// Decode reconstructs text from tokens. It reports false when a token is not
// in the store or the bytes do not form valid UTF-8; no replacement
// characters are substituted.
func Decode(store *vocab.Store, tokens []vocab.Token) (string, bool) {
	raw, ok := DecodeBytes(store, tokens)
	if !ok || !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// DecodeBytes concatenates the byte sequences of tokens. It reports false
// only for identifiers the store does not assign.
func DecodeBytes(store *vocab.Store, tokens []vocab.Token) ([]byte, bool) {
	total := 0
	for _, id := range tokens {
		b, ok := store.Bytes(id)
		if !ok {
			return nil, false
		}
		total += len(b)
	}

	out := make([]byte, 0, total)
	for _, id := range tokens {
		b, _ := store.Bytes(id)
		out = append(out, b...)
	}

	return out, true
}
