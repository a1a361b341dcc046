package profile

import (
	"os"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/mylxsw/asteria/log"
	"github.com/pkg/errors"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/bpetok/bpe-openai/internal/pretokenize"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

// Source builds the vocabulary store of one profile.
type Source interface {
	Load(name string) (*vocab.Store, error)
}

// BpeLoader returns the rank table of a tiktoken encoding file. It matches
// the loader interface of tiktoken-go, so the offline loader that embeds the
// encoding files can be used directly.
type BpeLoader interface {
	LoadTiktokenBpe(tiktokenBpeFile string) (map[string]int, error)
}

// TiktokenSource loads ranks through a BpeLoader. URL names the encoding
// file; with the offline loader it is only a key into the embedded assets.
type TiktokenSource struct {
	URL     string
	Pattern string
	Loader  BpeLoader
}

func (s TiktokenSource) Load(name string) (*vocab.Store, error) {
	splitter, err := pretokenize.Compile(s.Pattern)
	if err != nil {
		return nil, err
	}

	loader := s.Loader
	if loader == nil {
		loader = tiktoken_loader.NewOfflineLoader()
	}
	ranks, err := loader.LoadTiktokenBpe(s.URL)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: load %s: %v", name, s.URL, err)
	}
	debugf("profile %s: loaded %d ranks from %s", name, len(ranks), s.URL)

	return vocab.FromRanks(name, ranks, splitter)
}

// TiktokenFileSource reads a .tiktoken rank file from disk.
type TiktokenFileSource struct {
	Path    string
	Pattern string
}

func (s TiktokenFileSource) Load(name string) (*vocab.Store, error) {
	if s.Path == "" {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: no rank file configured", name)
	}
	splitter, err := pretokenize.Compile(s.Pattern)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: %v", name, err)
	}
	defer f.Close()

	ranks, err := vocab.ParseTiktoken(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: parse %s", name, s.Path)
	}
	return vocab.FromRanks(name, ranks, splitter)
}

// HFFileSource reads a HuggingFace tokenizer.json from disk.
type HFFileSource struct {
	Path string
}

func (s HFFileSource) Load(name string) (*vocab.Store, error) {
	if s.Path == "" {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: no tokenizer.json configured", name)
	}
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: %v", name, err)
	}
	return loadHF(name, s.Path, content)
}

// HFBytesSource loads a tokenizer.json already held in memory, for hosts
// without a file system.
type HFBytesSource struct {
	Content []byte
}

func (s HFBytesSource) Load(name string) (*vocab.Store, error) {
	if len(s.Content) == 0 {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: empty tokenizer.json", name)
	}
	return loadHF(name, "tokenizer.json", s.Content)
}

func loadHF(name, path string, content []byte) (*vocab.Store, error) {
	model, err := vocab.ParseHF(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: parse %s", name, path)
	}

	pattern := model.Pattern
	if pattern == "" {
		log.Warningf("profile %s: %s defines no split pattern, falling back to cl100k", name, path)
		pattern = pretokenize.CL100KPattern
	}
	splitter, err := pretokenize.Compile(pattern)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: split pattern of %s", name, path)
	}

	debugf("profile %s: %d entries and %d merges from %s", name, len(model.Vocab), len(model.Merges), path)
	return vocab.FromMerges(name, model.Vocab, model.Merges, model.IgnoreMerges, splitter)
}

// VocabMergesSource reads a GPT-2 style vocab.json and merges.txt pair.
type VocabMergesSource struct {
	VocabPath  string
	MergesPath string
}

func (s VocabMergesSource) Load(name string) (*vocab.Store, error) {
	if s.VocabPath == "" || s.MergesPath == "" {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: vocab.json and merges.txt are both required", name)
	}
	vocabJSON, err := os.ReadFile(s.VocabPath)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: %v", name, err)
	}
	merges, err := os.Open(s.MergesPath)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: %v", name, err)
	}
	defer merges.Close()

	model, err := vocab.ParseVocabMerges(vocabJSON, merges)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: parse %s", name, s.MergesPath)
	}
	splitter, err := pretokenize.Compile(model.Pattern)
	if err != nil {
		return nil, err
	}

	debugf("profile %s: %d entries and %d merges from %s", name, len(model.Vocab), len(model.Merges), s.VocabPath)
	return vocab.FromMerges(name, model.Vocab, model.Merges, model.IgnoreMerges, splitter)
}

// HubSource downloads tokenizer.json from a HuggingFace Hub repository, or
// reuses the cached copy, then loads it like HFFileSource.
type HubSource struct {
	Repo     string
	Token    string
	CacheDir string
}

func (s HubSource) Load(name string) (*vocab.Store, error) {
	path, err := FetchTokenizer(s.Repo, s.Token, s.CacheDir)
	if err != nil {
		return nil, errors.Wrapf(vocab.ErrAssetUnavailable, "%s: %v", name, err)
	}
	return HFFileSource{Path: path}.Load(name)
}

// FetchTokenizer downloads tokenizer.json of repo into the Hub cache and
// returns its local path. Empty token and cacheDir keep the hub defaults.
func FetchTokenizer(repo, token, cacheDir string) (string, error) {
	if repo == "" {
		return "", errors.New("no hub repository configured")
	}

	r := hub.New(repo)
	if token != "" {
		r = r.WithAuth(token)
	}
	if cacheDir != "" {
		r = r.WithCacheDir(cacheDir)
	}

	path, err := r.DownloadFile("tokenizer.json")
	if err != nil {
		return "", errors.Wrapf(err, "download tokenizer.json from %s", repo)
	}
	debugf("hub %s: tokenizer.json at %s", repo, path)
	return path, nil
}
