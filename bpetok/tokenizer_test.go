package bpetok_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpetok/bpe-openai/bpetok"
	"github.com/bpetok/bpe-openai/internal/pretokenize"
	"github.com/bpetok/bpe-openai/internal/profile"
	"github.com/bpetok/bpe-openai/internal/testutil"
)

func newTokenizer(t *testing.T, name string) *bpetok.Tokenizer {
	t.Helper()

	tok, err := bpetok.New(name)
	testutil.SkipIfUnavailable(t, err)
	return tok
}

func TestNew_UnknownProfile(t *testing.T) {
	tok, err := bpetok.New("unsupported_model_xyz")
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bpetok.ErrUnknownProfile))

	var unknown *bpetok.UnknownProfileError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "unsupported_model_xyz", unknown.Name)
}

func TestProfiles(t *testing.T) {
	assert.Equal(t, []string{bpetok.CL100KBase, bpetok.O200KBase, bpetok.Voyage3Base}, bpetok.Profiles())
}

func TestCL100K_Scenarios(t *testing.T) {
	tok := newTokenizer(t, bpetok.CL100KBase)
	assert.Equal(t, bpetok.CL100KBase, tok.Name())
	assert.Greater(t, tok.VocabSize(), 100000)

	ids, err := tok.Encode("")
	require.NoError(t, err)
	assert.Equal(t, []uint32{}, ids)
	n, err := tok.Count("")
	require.NoError(t, err)
	assert.Zero(t, n)

	ids, err = tok.Encode("Hello, world!")
	require.NoError(t, err)
	assert.Equal(t, []uint32{9906, 11, 1917, 0}, ids)
	text, ok := tok.Decode(ids)
	assert.True(t, ok)
	assert.Equal(t, "Hello, world!", text)

	ids, err = tok.Encode("🙂")
	require.NoError(t, err)
	text, ok = tok.Decode(ids)
	assert.True(t, ok)
	assert.Equal(t, "🙂", text)

	long := strings.Repeat("a", 50000)
	n, err = tok.Count(long)
	require.NoError(t, err)
	ids, err = tok.Encode(long)
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestDecode_Absent(t *testing.T) {
	tok := newTokenizer(t, bpetok.CL100KBase)

	// a character split over several tokens cannot decode from a prefix.
	split := 0
	for _, char := range []string{"🙂", "🦊", "𝔘", "ꙮ"} {
		ids, err := tok.Encode(char)
		require.NoError(t, err)
		if len(ids) < 2 {
			continue
		}
		split++
		_, ok := tok.Decode(ids[:1])
		assert.False(t, ok, "%q", char)
	}
	assert.Positive(t, split)

	_, ok := tok.Decode([]uint32{uint32(tok.VocabSize()) + 10})
	assert.False(t, ok)
}

func TestEncode_InvalidInput(t *testing.T) {
	tok := newTokenizer(t, bpetok.CL100KBase)

	_, err := tok.Encode("bad \xff byte")
	assert.ErrorIs(t, err, bpetok.ErrInvalidInput)
	_, err = tok.Count("bad \xff byte")
	assert.ErrorIs(t, err, bpetok.ErrInvalidInput)
}

func TestNewWithRegistry(t *testing.T) {
	path := testutil.WriteTokenizerJSON(t, t.TempDir(), [][2]string{{"h", "i"}, {" ", "hi"}}, pretokenize.CL100KPattern)
	reg := profile.NewRegistry(profile.Definition{Name: bpetok.Voyage3Base, Source: profile.HFFileSource{Path: path}})

	tok, err := bpetok.NewWithRegistry(reg, bpetok.Voyage3Base)
	require.NoError(t, err)

	ids, err := tok.Encode("hi hi")
	require.NoError(t, err)
	assert.Equal(t, []uint32{256, 257}, ids)

	text, ok := tok.Decode(ids)
	assert.True(t, ok)
	assert.Equal(t, "hi hi", text)

	_, err = bpetok.NewWithRegistry(reg, bpetok.CL100KBase)
	assert.ErrorIs(t, err, bpetok.ErrUnknownProfile)
}

func TestVoyage3_UnconfiguredIsUnavailable(t *testing.T) {
	reg := profile.NewRegistry(profile.Definition{Name: bpetok.Voyage3Base, Source: profile.HFFileSource{}})

	_, err := bpetok.NewWithRegistry(reg, bpetok.Voyage3Base)
	assert.ErrorIs(t, err, bpetok.ErrAssetUnavailable)
}

func TestTokenizer_SharedAcrossGoroutines(t *testing.T) {
	a := newTokenizer(t, bpetok.CL100KBase)
	b := newTokenizer(t, bpetok.CL100KBase)
	text := "The quick brown fox jumps over the lazy dog. 素早い茶色の狐 🦊"

	want, err := a.Encode(text)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		tok := a
		if i%2 == 1 {
			tok = b
		}
		go func() {
			defer wg.Done()
			got, err := tok.Encode(text)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
			n, err := tok.Count(text)
			assert.NoError(t, err)
			assert.Len(t, want, n)
		}()
	}
	wg.Wait()
}

func TestInit_IdempotentAndTransparent(t *testing.T) {
	tok := newTokenizer(t, bpetok.CL100KBase)
	before, err := tok.Encode("Hello, world!")
	require.NoError(t, err)

	bpetok.Init()
	bpetok.Init()

	after, err := tok.Encode("Hello, world!")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInit_PanicsPropagate(t *testing.T) {
	bpetok.Init()

	var unbound bpetok.Tokenizer
	assert.Panics(t, func() { _, _ = unbound.Encode("x") })
	assert.Panics(t, func() { _, _ = unbound.Count("x") })
}
