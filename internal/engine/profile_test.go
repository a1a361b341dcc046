package engine_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpetok/bpe-openai/internal/config"
	"github.com/bpetok/bpe-openai/internal/engine"
	"github.com/bpetok/bpe-openai/internal/profile"
	"github.com/bpetok/bpe-openai/internal/testutil"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

var (
	registryOnce sync.Once
	registry     *profile.Registry
)

func resolve(tb testing.TB, name string) *vocab.Store {
	tb.Helper()

	registryOnce.Do(func() {
		registry = profile.NewRegistry(profile.Builtin(config.DefaultConfig())...)
	})
	store, err := registry.Resolve(name)
	testutil.SkipIfUnavailable(tb, err)
	return store
}

var corpus = []string{
	"",
	"Hello, world!",
	"hello world",
	"🙂",
	"👍🏽 family: 👨‍👩‍👧‍👦",
	"你好，世界。東京は晴れです",
	"한국어 텍스트와 English mixed",
	"Привет, мир! Ünïcödé façade",
	"   leading and trailing   ",
	"\t\ttabs\tand\nnewlines\r\n\r\n\n",
	"\n\n\n",
	"    ",
	"I'm sure they'll say it's fine, we've DONE it, you'd KNOW",
	"1234567890 3.14159 1e-9 0x1F",
	"func main() {\n\tfmt.Println(\"hi\")\n}\n",
	"<html><body class=\"x\">&amp;</body></html>",
	"a/b/c//d?e=f&g=h#i",
	"UPPER lower MiXeD CamelCaseWords snake_case_words",
	strings.Repeat("ab", 300),
	strings.Repeat(" ", 100) + "x",
	strings.Repeat("a", 5000),
}

func TestCL100K_KnownTokens(t *testing.T) {
	store := resolve(t, profile.CL100KBase)

	ids, err := engine.Encode(store, "Hello, world!")
	require.NoError(t, err)
	assert.Equal(t, []vocab.Token{9906, 11, 1917, 0}, ids)

	n, err := engine.Count(store, "Hello, world!")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	text, ok := engine.Decode(store, ids)
	assert.True(t, ok)
	assert.Equal(t, "Hello, world!", text)
}

func TestProfiles_RoundTrip(t *testing.T) {
	for _, name := range []string{profile.CL100KBase, profile.O200KBase} {
		t.Run(name, func(t *testing.T) {
			store := resolve(t, name)

			for _, text := range corpus {
				ids, err := engine.Encode(store, text)
				require.NoError(t, err)

				n, err := engine.Count(store, text)
				require.NoError(t, err)
				assert.Equal(t, len(ids), n, "%q", text)

				got, ok := engine.Decode(store, ids)
				assert.True(t, ok, "%q", text)
				assert.Equal(t, text, got)
			}
		})
	}
}

func TestProfiles_MatchTiktoken(t *testing.T) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())

	for _, name := range []string{profile.CL100KBase, profile.O200KBase} {
		t.Run(name, func(t *testing.T) {
			store := resolve(t, name)
			ref, err := tiktoken.GetEncoding(name)
			if err != nil {
				t.Skipf("reference encoding %s not available: %v", name, err)
			}

			for _, text := range corpus {
				want := ref.Encode(text, nil, nil)
				got, err := engine.Encode(store, text)
				require.NoError(t, err)

				require.Len(t, got, len(want), "%q", text)
				for i := range want {
					assert.EqualValues(t, want[i], got[i], "%q token %d", text, i)
				}
			}
		})
	}
}

func TestCL100K_LongRunIsFast(t *testing.T) {
	store := resolve(t, profile.CL100KBase)
	text := strings.Repeat("a", 50000)

	start := time.Now()
	n, err := engine.Count(store, text)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Less(t, time.Since(start), 5*time.Second)

	ids, err := engine.Encode(store, text)
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestCL100K_ConcurrentUse(t *testing.T) {
	store := resolve(t, profile.CL100KBase)

	want := make([][]vocab.Token, len(corpus))
	for i, text := range corpus {
		ids, err := engine.Encode(store, text)
		require.NoError(t, err)
		want[i] = ids
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, text := range corpus {
				ids, err := engine.Encode(store, text)
				assert.NoError(t, err)
				assert.Equal(t, want[i], ids)
			}
		}()
	}
	wg.Wait()
}
