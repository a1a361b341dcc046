// Package testutil builds small synthetic vocabularies for tests, so engine
// and registry behavior can be checked without the large embedded assets.
//
// Typical usage:
//
//	store := testutil.RankStore(t, "aa", "ab")
//	ids, err := engine.Encode(store, "aab")
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/bpetok/bpe-openai/internal/pretokenize"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

// ByteRanks returns a rank table holding every single byte at the rank equal
// to its value, followed by extra entries ranked 256, 257, ... in order.
func ByteRanks(extra ...string) map[string]int {
	ranks := make(map[string]int, 256+len(extra))
	for b := 0; b < 256; b++ {
		ranks[string([]byte{byte(b)})] = b
	}
	for i, e := range extra {
		ranks[e] = 256 + i
	}
	return ranks
}

// RankStore builds a rank-implied store from ByteRanks(extra...) that splits
// text with the cl100k pattern.
func RankStore(tb testing.TB, extra ...string) *vocab.Store {
	tb.Helper()

	s, err := vocab.FromRanks("test", ByteRanks(extra...), pretokenize.MustCompile(pretokenize.CL100KPattern))
	if err != nil {
		tb.Fatalf("build rank store: %v", err)
	}
	return s
}

// TokenizerJSON renders a minimal ByteLevel BPE tokenizer.json. Single bytes
// take ids 0..255 and each merge result takes the next free id. A non-empty
// split adds an isolated Split pre-tokenizer in front of a regex-free
// ByteLevel step.
func TokenizerJSON(tb testing.TB, merges [][2]string, split string, ignoreMerges bool) []byte {
	tb.Helper()

	vocabulary := make(map[string]int, 256+len(merges))
	for b := 0; b < 256; b++ {
		vocabulary[vocab.ByteLevelString([]byte{byte(b)})] = b
	}

	encoded := make([][2]string, len(merges))
	for i, m := range merges {
		encoded[i] = [2]string{vocab.ByteLevelString([]byte(m[0])), vocab.ByteLevelString([]byte(m[1]))}
		joined := vocab.ByteLevelString([]byte(m[0] + m[1]))
		if _, ok := vocabulary[joined]; !ok {
			vocabulary[joined] = len(vocabulary)
		}
	}

	pre := map[string]any{"type": "ByteLevel", "add_prefix_space": false, "use_regex": true}
	if split != "" {
		pre = map[string]any{
			"type": "Sequence",
			"pretokenizers": []any{
				map[string]any{
					"type":     "Split",
					"pattern":  map[string]string{"Regex": split},
					"behavior": "Isolated",
					"invert":   false,
				},
				map[string]any{"type": "ByteLevel", "add_prefix_space": false, "use_regex": false},
			},
		}
	}

	doc := map[string]any{
		"version": "1.0",
		"added_tokens": []any{
			map[string]any{"id": len(vocabulary), "content": "<|endoftext|>", "special": true},
		},
		"pre_tokenizer": pre,
		"decoder":       map[string]any{"type": "ByteLevel"},
		"model": map[string]any{
			"type":          "BPE",
			"ignore_merges": ignoreMerges,
			"vocab":         vocabulary,
			"merges":        encoded,
		},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		tb.Fatalf("marshal tokenizer.json: %v", err)
	}
	return out
}

// WriteTokenizerJSON writes TokenizerJSON output into dir and returns its
// path.
func WriteTokenizerJSON(tb testing.TB, dir string, merges [][2]string, split string) string {
	tb.Helper()

	path := filepath.Join(dir, "tokenizer.json")
	if err := os.WriteFile(path, TokenizerJSON(tb, merges, split, true), 0o600); err != nil {
		tb.Fatalf("write tokenizer.json: %v", err)
	}
	return path
}

// SkipIfUnavailable skips the test when err says an embedded asset is
// missing from the build, and fails it on any other error.
func SkipIfUnavailable(tb testing.TB, err error) {
	tb.Helper()

	if err == nil {
		return
	}
	if errors.Is(err, vocab.ErrAssetUnavailable) {
		tb.Skipf("vocabulary asset not available: %v", err)
	}
	tb.Fatalf("unexpected error: %v", err)
}
