package vocab

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/bpetok/bpe-openai/internal/pretokenize"
)

// maxRank bounds identifiers accepted from rank files so a corrupt rank
// cannot force a huge allocation.
const maxRank = 1 << 24

// FromRanks builds a rank-implied store from a tiktoken rank table, where
// each key is the raw byte sequence of a token and its value is both the
// token identifier and its merge rank.
func FromRanks(name string, ranks map[string]int, splitter *pretokenize.Splitter) (*Store, error) {
	if len(ranks) == 0 {
		return nil, errors.Wrapf(ErrCorruptAsset, "%s: empty rank table", name)
	}
	if splitter == nil {
		return nil, errors.Errorf("%s: no pre-tokenizer", name)
	}

	size := 0
	for b, r := range ranks {
		if r < 0 || r >= maxRank {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: rank %d of %q out of range", name, r, b)
		}
		if b == "" {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: empty byte sequence at rank %d", name, r)
		}
		if r+1 > size {
			size = r + 1
		}
	}

	s := &Store{
		name:       name,
		tokens:     make([][]byte, size),
		ranks:      make([]uint32, size),
		wholePiece: true,
		splitter:   splitter,
	}
	for b, r := range ranks {
		if s.tokens[r] != nil {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: rank %d assigned twice", name, r)
		}
		s.tokens[r] = []byte(b)
		s.ranks[r] = uint32(r)
	}

	if err := s.finish(); err != nil {
		return nil, errors.WithMessage(err, name)
	}
	return s, nil
}

// ParseTiktoken reads a .tiktoken rank file: one "<base64 bytes> <rank>"
// pair per line.
func ParseTiktoken(r io.Reader) (map[string]int, error) {
	ranks := make(map[string]int)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		sp := bytes.IndexByte(raw, ' ')
		if sp <= 0 {
			return nil, errors.Wrapf(ErrCorruptAsset, "line %d: want \"<base64> <rank>\"", line)
		}

		tok, err := base64.StdEncoding.DecodeString(string(raw[:sp]))
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptAsset, "line %d: %v", line, err)
		}
		rank, err := strconv.Atoi(string(bytes.TrimSpace(raw[sp+1:])))
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptAsset, "line %d: %v", line, err)
		}
		ranks[string(tok)] = rank
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read rank file")
	}

	return ranks, nil
}
