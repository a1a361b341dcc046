package engine

import (
	"unicode/utf8"

	"github.com/bpetok/bpe-openai/internal/vocab"
)

// Count returns len(Encode(store, text)) without building the token slice.
func Count(store *vocab.Store, text string) (int, error) {
	if !utf8.ValidString(text) {
		return 0, ErrInvalidInput
	}
	if text == "" {
		return 0, nil
	}

	sc := acquireScratch()
	defer releaseScratch(sc)

	total := 0
	err := store.Splitter().Each(text, func(piece string) {
		if _, ok := wholePiece(store, piece); ok {
			total++
			return
		}
		total += len(piece) - sc.merge(store, piece)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
