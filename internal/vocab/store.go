// Package vocab holds the immutable vocabulary and merge tables of one
// tokenizer profile.
package vocab

import (
	"github.com/pkg/errors"

	"github.com/bpetok/bpe-openai/internal/pretokenize"
)

// Token identifies a byte sequence within one Store.
type Token = uint32

var (
	// ErrAssetUnavailable is returned when a profile's vocabulary data cannot
	// be located.
	ErrAssetUnavailable = errors.New("vocabulary asset unavailable")
	// ErrCorruptAsset is returned when vocabulary data violates a Store
	// invariant.
	ErrCorruptAsset = errors.New("corrupt vocabulary asset")
)

// Store is safe for concurrent use; nothing in it changes after a builder
// returns it.
//
// Invariants:
//   - tokens[id] is the exact byte sequence of id, nil for identifiers the
//     asset leaves unassigned.
//   - lookup is the inverse of tokens over assigned identifiers.
//   - byteToken[b] is assigned for every byte b.
//   - when pairs is nil, merging two adjacent fragments is allowed iff their
//     concatenation is in lookup, with that entry's rank as priority.
type Store struct {
	name        string
	tokens      [][]byte
	lookup      map[string]Token
	ranks       []uint32
	byteToken   [256]Token
	pairs       *PairLookup
	wholePiece  bool
	splitter    *pretokenize.Splitter
	entries     int
	maxTokenLen int
}

// Name returns the profile name the store was built for.
func (s *Store) Name() string { return s.name }

// Size returns one past the largest token identifier.
func (s *Store) Size() int { return len(s.tokens) }

// Entries returns the number of assigned identifiers.
func (s *Store) Entries() int { return s.entries }

// MaxTokenLen returns the length in bytes of the longest entry.
func (s *Store) MaxTokenLen() int { return s.maxTokenLen }

// Splitter returns the pre-tokenizer of the profile.
func (s *Store) Splitter() *pretokenize.Splitter { return s.splitter }

// WholePiece reports whether a piece that is itself an entry is emitted
// without running merges.
func (s *Store) WholePiece() bool { return s.wholePiece }

// Bytes returns the byte sequence of t. The slice is shared and must not be
// modified.
func (s *Store) Bytes(t Token) ([]byte, bool) {
	if int64(t) >= int64(len(s.tokens)) {
		return nil, false
	}
	b := s.tokens[t]
	if b == nil {
		return nil, false
	}
	return b, true
}

// Lookup returns the token whose byte sequence is exactly b.
func (s *Store) Lookup(b string) (Token, bool) {
	t, ok := s.lookup[b]
	return t, ok
}

// ByteToken returns the single-byte fallback token for b.
func (s *Store) ByteToken(b byte) Token {
	return s.byteToken[b]
}

// Merge reports whether two adjacent fragments may merge, with the rank of
// the merge and the resulting token. joined must be the concatenation of the
// two fragments' bytes.
func (s *Store) Merge(left, right Token, joined string) (rank uint32, merged Token, ok bool) {
	if s.pairs != nil {
		info, found := s.pairs.Lookup(left, right)
		if !found {
			return 0, 0, false
		}
		return uint32(info >> 32), Token(info), true
	}

	t, found := s.lookup[joined]
	if !found {
		return 0, 0, false
	}
	return s.ranks[t], t, true
}

// finish validates the invariants shared by every builder.
func (s *Store) finish() error {
	seen := make(map[string]Token, len(s.tokens))
	for id, b := range s.tokens {
		if b == nil {
			continue
		}
		if prev, dup := seen[string(b)]; dup {
			return errors.Wrapf(ErrCorruptAsset, "duplicate byte sequence for ids %d and %d", prev, id)
		}
		seen[string(b)] = Token(id)
		s.entries++
		if len(b) > s.maxTokenLen {
			s.maxTokenLen = len(b)
		}
	}
	s.lookup = seen

	for b := 0; b < 256; b++ {
		t, ok := s.lookup[string([]byte{byte(b)})]
		if !ok {
			return errors.Wrapf(ErrCorruptAsset, "no token for byte 0x%02x", b)
		}
		s.byteToken[b] = t
	}
	return nil
}
