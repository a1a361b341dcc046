// Package engine implements byte-pair encoding over a vocab.Store: encode,
// decode and count. It holds no state of its own beyond pooled scratch
// buffers, so every function is safe for concurrent use.
package engine

import (
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/bpetok/bpe-openai/internal/vocab"
)

// ErrInvalidInput is returned by Encode and Count for text that is not valid
// UTF-8.
var ErrInvalidInput = errors.New("input is not valid UTF-8")

// Encode converts text to tokens. The result is never nil.
func Encode(store *vocab.Store, text string) ([]vocab.Token, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidInput
	}

	out := make([]vocab.Token, 0, len(text)/4+1)
	if text == "" {
		return out, nil
	}

	sc := acquireScratch()
	defer releaseScratch(sc)

	err := store.Splitter().Each(text, func(piece string) {
		if tok, ok := wholePiece(store, piece); ok {
			out = append(out, tok)
			return
		}
		out = sc.appendMerged(out, store, piece)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EncodePiece runs the merge loop over the raw bytes of piece, without
// pre-tokenization or the whole-piece shortcut. piece may hold any bytes.
func EncodePiece(store *vocab.Store, piece string) []vocab.Token {
	out := make([]vocab.Token, 0, len(piece))
	if piece == "" {
		return out
	}

	sc := acquireScratch()
	defer releaseScratch(sc)

	return sc.appendMerged(out, store, piece)
}

func wholePiece(store *vocab.Store, piece string) (vocab.Token, bool) {
	if len(piece) == 1 {
		return store.ByteToken(piece[0]), true
	}
	if !store.WholePiece() {
		return 0, false
	}
	return store.Lookup(piece)
}

func (sc *encodeScratch) appendMerged(out []vocab.Token, store *vocab.Store, piece string) []vocab.Token {
	sc.merge(store, piece)
	for i := 0; i != -1; i = sc.next[i] {
		out = append(out, sc.tokens[i])
	}
	return out
}
