package engine_test

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpetok/bpe-openai/internal/engine"
	"github.com/bpetok/bpe-openai/internal/pretokenize"
	"github.com/bpetok/bpe-openai/internal/testutil"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

func hfStore(t *testing.T, merges [][2]string, ignoreMerges bool) *vocab.Store {
	t.Helper()

	model, err := vocab.ParseHF(testutil.TokenizerJSON(t, merges, pretokenize.CL100KPattern, ignoreMerges))
	require.NoError(t, err)
	splitter, err := pretokenize.Compile(model.Pattern)
	require.NoError(t, err)
	store, err := vocab.FromMerges("hf", model.Vocab, model.Merges, model.IgnoreMerges, splitter)
	require.NoError(t, err)
	return store
}

func TestEncode_MergeOrder(t *testing.T) {
	tests := []struct {
		name  string
		extra []string
		text  string
		want  []vocab.Token
	}{
		{"no merges", nil, "abc", []vocab.Token{'a', 'b', 'c'}},
		{"leftmost wins a tie", []string{"aa"}, "aaa", []vocab.Token{256, 'a'}},
		{"lower rank first", []string{"bc", "ab"}, "abc", []vocab.Token{'a', 256}},
		{"whole piece shortcut", []string{"ab", "abc"}, "abc", []vocab.Token{257}},
		{"pieces never merge across", []string{"a ", " b"}, "a b", []vocab.Token{'a', 257}},
		{"repeated merges", []string{"aa", "aaaa"}, "aaaaaaaaaa", []vocab.Token{257, 257, 256}},
		{"single byte piece", nil, "!", []vocab.Token{'!'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.RankStore(t, tt.extra...)

			got, err := engine.Encode(store, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			n, err := engine.Count(store, tt.text)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)

			text, ok := engine.Decode(store, got)
			assert.True(t, ok)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestEncodePiece_MergesWithoutShortcut(t *testing.T) {
	store := testutil.RankStore(t, "ab", "abc")
	assert.Equal(t, []vocab.Token{257}, engine.EncodePiece(store, "abc"))

	// no adjacent pair of abcd is an entry, so neither bcd nor abcd is reachable.
	store = testutil.RankStore(t, "bcd", "abcd")
	assert.Equal(t, []vocab.Token{'a', 'b', 'c', 'd'}, engine.EncodePiece(store, "abcd"))

	assert.Empty(t, engine.EncodePiece(store, ""))
}

func TestEncodePiece_EveryByte(t *testing.T) {
	store := testutil.RankStore(t)

	for b := 0; b < 256; b++ {
		ids := engine.EncodePiece(store, string([]byte{byte(b)}))
		require.Len(t, ids, 1, "byte 0x%02x", b)
		assert.Equal(t, store.ByteToken(byte(b)), ids[0])

		raw, ok := engine.DecodeBytes(store, ids)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(b)}, raw)
	}
}

func TestEncodePiece_RandomBytesRoundTrip(t *testing.T) {
	store := testutil.RankStore(t, "\x00\x01", "ab", "\xff\xfe", "abab", "\xe4\xb8")
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		buf := make([]byte, 1+rng.Intn(64))
		for j := range buf {
			// a small alphabet makes merges likely.
			buf[j] = []byte{0x00, 0x01, 'a', 'b', 0xff, 0xfe, 0xe4, 0xb8}[rng.Intn(8)]
		}

		ids := engine.EncodePiece(store, string(buf))
		raw, ok := engine.DecodeBytes(store, ids)
		require.True(t, ok)
		assert.Equal(t, buf, raw)
	}
}

func TestEncode_EmptyInput(t *testing.T) {
	store := testutil.RankStore(t)

	ids, err := engine.Encode(store, "")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	n, err := engine.Count(store, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	text, ok := engine.Decode(store, nil)
	assert.True(t, ok)
	assert.Equal(t, "", text)
}

func TestEncode_RejectsInvalidUTF8(t *testing.T) {
	store := testutil.RankStore(t)

	for _, text := range []string{"\xff", "ok\xc3", "\xed\xa0\x80"} {
		_, err := engine.Encode(store, text)
		assert.ErrorIs(t, err, engine.ErrInvalidInput, "%q", text)

		_, err = engine.Count(store, text)
		assert.ErrorIs(t, err, engine.ErrInvalidInput, "%q", text)
	}
}

func TestDecode_Partiality(t *testing.T) {
	ranks := testutil.ByteRanks("ab")
	ranks["xyz"] = 300
	store, err := vocab.FromRanks("gappy", ranks, pretokenize.MustCompile(pretokenize.CL100KPattern))
	require.NoError(t, err)

	tests := []struct {
		name   string
		tokens []vocab.Token
	}{
		{"lone continuation byte", []vocab.Token{0x80}},
		{"truncated sequence", []vocab.Token{0xe4, 0xb8}},
		{"unassigned id", []vocab.Token{'a', 257}},
		{"out of range", []vocab.Token{301}},
		{"far out of range", []vocab.Token{1 << 31}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := engine.Decode(store, tt.tokens)
			assert.False(t, ok)
			assert.Equal(t, "", text)
		})
	}

	raw, ok := engine.DecodeBytes(store, []vocab.Token{0x80})
	assert.True(t, ok)
	assert.Equal(t, []byte{0x80}, raw)

	_, ok = engine.DecodeBytes(store, []vocab.Token{257})
	assert.False(t, ok)

	text, ok := engine.Decode(store, []vocab.Token{300, 256})
	assert.True(t, ok)
	assert.Equal(t, "xyzab", text)
}

func TestEncode_ExplicitMergeRules(t *testing.T) {
	merges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "bc"}}

	// ab (256) outranks bc (257), and no rule joins ab with c.
	store := hfStore(t, merges, false)
	ids, err := engine.Encode(store, "abc")
	require.NoError(t, err)
	assert.Equal(t, []vocab.Token{256, 'c'}, ids)

	// with ignore_merges a piece that is itself an entry wins outright.
	store = hfStore(t, merges, true)
	ids, err = engine.Encode(store, "abc")
	require.NoError(t, err)
	assert.Equal(t, []vocab.Token{258}, ids)

	// " abc" is not an entry and merges to " ", ab, c.
	n, err := engine.Count(store, "abc abc")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEncode_LongRun(t *testing.T) {
	store := testutil.RankStore(t, "aa", "aaaa")
	text := strings.Repeat("a", 50000)

	ids, err := engine.Encode(store, text)
	require.NoError(t, err)
	require.Len(t, ids, 12500)
	for _, id := range ids {
		require.EqualValues(t, 257, id)
	}

	n, err := engine.Count(store, text)
	require.NoError(t, err)
	assert.Equal(t, 12500, n)
}

func TestCount_MatchesEncode(t *testing.T) {
	store := testutil.RankStore(t, "th", "he", "the", " t", " the", "in", "ing", "  ", "\n\n")
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("the ingTHE\n\t 12345,.!?'é中🙂")

	for i := 0; i < 300; i++ {
		var sb strings.Builder
		for j := rng.Intn(80); j > 0; j-- {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()
		require.True(t, utf8.ValidString(text))

		ids, err := engine.Encode(store, text)
		require.NoError(t, err)
		n, err := engine.Count(store, text)
		require.NoError(t, err)
		assert.Equal(t, len(ids), n, "%q", text)

		again, err := engine.Encode(store, text)
		require.NoError(t, err)
		assert.Equal(t, ids, again)

		decoded, ok := engine.Decode(store, ids)
		assert.True(t, ok)
		assert.Equal(t, text, decoded)
	}
}
