package vocab

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/bpetok/bpe-openai/internal/pretokenize"
)

// HFModel is the subset of a HuggingFace tokenizer.json that a Store is
// built from, with vocabulary keys already decoded to raw bytes.
type HFModel struct {
	Vocab        map[string]Token
	Merges       [][2]string
	IgnoreMerges bool
	// Pattern is the pre-tokenizer split regex, empty when the file does
	// not define one.
	Pattern string
}

// ParseHF extracts a byte-level BPE model from tokenizer.json content.
// Added tokens are ignored: they are never produced by merging and are not
// part of the ordinary vocabulary.
func ParseHF(content []byte) (*HFModel, error) {
	if !gjson.ValidBytes(content) {
		return nil, errors.Wrap(ErrCorruptAsset, "tokenizer.json is not valid JSON")
	}
	root := gjson.ParseBytes(content)

	model := root.Get("model")
	if typ := model.Get("type").String(); typ != "" && typ != "BPE" {
		return nil, errors.Errorf("unsupported tokenizer model type %q", typ)
	}
	if !isByteLevel(root) {
		return nil, errors.New("tokenizer.json is not a ByteLevel BPE tokenizer")
	}

	pattern, err := splitPattern(root.Get("pre_tokenizer"))
	if err != nil {
		return nil, err
	}

	m := &HFModel{
		IgnoreMerges: model.Get("ignore_merges").Bool(),
		Pattern:      pattern,
	}

	if m.Vocab, err = decodeVocab(model.Get("vocab")); err != nil {
		return nil, err
	}

	model.Get("merges").ForEach(func(_, value gjson.Result) bool {
		var left, right string
		if value.IsArray() {
			parts := value.Array()
			if len(parts) != 2 {
				err = errors.Wrapf(ErrCorruptAsset, "merge %s is not a pair", value.Raw)
				return false
			}
			left, right = parts[0].String(), parts[1].String()
		} else {
			var found bool
			left, right, found = strings.Cut(value.String(), " ")
			if !found {
				err = errors.Wrapf(ErrCorruptAsset, "merge %q is not a pair", value.String())
				return false
			}
		}
		m.Merges, err = appendMerge(m.Merges, left, right)
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ParseVocabMerges reads a GPT-2 style vocabulary: vocab.json mapping
// ByteLevel token strings to ids, and merges.txt listing one "left right"
// rule per line in rank order. Such vocabularies split text with the GPT-2
// pattern.
func ParseVocabMerges(vocabJSON []byte, merges io.Reader) (*HFModel, error) {
	if !gjson.ValidBytes(vocabJSON) {
		return nil, errors.Wrap(ErrCorruptAsset, "vocab.json is not valid JSON")
	}
	v, err := decodeVocab(gjson.ParseBytes(vocabJSON))
	if err != nil {
		return nil, err
	}
	m := &HFModel{Vocab: v, Pattern: pretokenize.GPT2Pattern}

	sc := bufio.NewScanner(merges)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || (line == 1 && strings.HasPrefix(text, "#version")) {
			continue
		}
		left, right, found := strings.Cut(text, " ")
		if !found {
			return nil, errors.Wrapf(ErrCorruptAsset, "merges line %d: want \"<left> <right>\"", line)
		}
		if m.Merges, err = appendMerge(m.Merges, left, right); err != nil {
			return nil, errors.WithMessagef(err, "merges line %d", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read merges")
	}
	return m, nil
}

func decodeVocab(vocab gjson.Result) (map[string]Token, error) {
	if !vocab.IsObject() {
		return nil, errors.Wrap(ErrCorruptAsset, "vocabulary is not an object")
	}

	out := make(map[string]Token)
	var err error
	vocab.ForEach(func(key, value gjson.Result) bool {
		var raw []byte
		raw, err = decodeByteLevel(key.String())
		if err != nil {
			err = errors.Wrap(ErrCorruptAsset, err.Error())
			return false
		}
		id := value.Int()
		if id < 0 || id >= maxRank {
			err = errors.Wrapf(ErrCorruptAsset, "token id %d of %q out of range", id, key.String())
			return false
		}
		out[string(raw)] = Token(id)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func appendMerge(merges [][2]string, left, right string) ([][2]string, error) {
	a, err := decodeByteLevel(left)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptAsset, err.Error())
	}
	b, err := decodeByteLevel(right)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptAsset, err.Error())
	}
	return append(merges, [2]string{string(a), string(b)}), nil
}

func isByteLevel(root gjson.Result) bool {
	for _, path := range []string{
		`pre_tokenizer.type`,
		`pre_tokenizer.pretokenizers.#(type=="ByteLevel").type`,
		`decoder.type`,
		`decoder.decoders.#(type=="ByteLevel").type`,
	} {
		if root.Get(path).String() == "ByteLevel" {
			return true
		}
	}
	return false
}

// splitPattern resolves the regex a pre_tokenizer splits on. Only the shapes
// byte-level BPE tokenizers ship are supported: one isolated Split followed
// by a regex-free ByteLevel, or a ByteLevel with its built-in GPT-2 regex.
func splitPattern(pre gjson.Result) (string, error) {
	if !pre.Exists() || pre.Type == gjson.Null {
		return "", nil
	}

	steps := []gjson.Result{pre}
	if pre.Get("type").String() == "Sequence" {
		steps = pre.Get("pretokenizers").Array()
	}

	var split string
	byteLevelRegex := false
	for _, step := range steps {
		switch typ := step.Get("type").String(); typ {
		case "Split":
			if split != "" {
				return "", errors.New("multiple Split pre-tokenizers are not supported")
			}
			if behavior := step.Get("behavior").String(); behavior != "" && behavior != "Isolated" {
				return "", errors.Errorf("Split behavior %q is not supported", behavior)
			}
			if step.Get("invert").Bool() {
				return "", errors.New("inverted Split is not supported")
			}
			split = step.Get("pattern.Regex").String()
			if split == "" {
				return "", errors.New("Split pre-tokenizer without a Regex pattern")
			}
		case "ByteLevel":
			if step.Get("add_prefix_space").Bool() {
				return "", errors.New("ByteLevel add_prefix_space breaks round trips and is not supported")
			}
			useRegex := step.Get("use_regex")
			byteLevelRegex = !useRegex.Exists() || useRegex.Bool()
		default:
			return "", errors.Errorf("pre-tokenizer %q is not supported", typ)
		}
	}

	switch {
	case split != "" && byteLevelRegex:
		return "", errors.New("Split combined with a regex ByteLevel is not supported")
	case split != "":
		return split, nil
	case byteLevelRegex:
		return pretokenize.GPT2Pattern, nil
	}
	return "", nil
}

// FromMerges builds a store with explicit merge rules. merges are given in
// rank order as pairs of raw byte sequences; every pair and its
// concatenation must be vocabulary entries.
func FromMerges(name string, vocab map[string]Token, merges [][2]string, wholePiece bool, splitter *pretokenize.Splitter) (*Store, error) {
	if len(vocab) == 0 {
		return nil, errors.Wrapf(ErrCorruptAsset, "%s: empty vocabulary", name)
	}
	if splitter == nil {
		return nil, errors.Errorf("%s: no pre-tokenizer", name)
	}

	size := 0
	for b, id := range vocab {
		if id >= maxRank {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: token id %d out of range", name, id)
		}
		if b == "" {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: empty byte sequence for id %d", name, id)
		}
		if int(id)+1 > size {
			size = int(id) + 1
		}
	}

	s := &Store{
		name:       name,
		tokens:     make([][]byte, size),
		wholePiece: wholePiece,
		splitter:   splitter,
	}
	for b, id := range vocab {
		if s.tokens[id] != nil {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: token id %d assigned twice", name, id)
		}
		s.tokens[id] = []byte(b)
	}
	if err := s.finish(); err != nil {
		return nil, errors.WithMessage(err, name)
	}

	s.pairs = newPairLookup(len(merges))
	for rank, pair := range merges {
		a, okA := s.lookup[pair[0]]
		b, okB := s.lookup[pair[1]]
		merged, okC := s.lookup[pair[0]+pair[1]]
		if !okA || !okB || !okC {
			return nil, errors.Wrapf(ErrCorruptAsset, "%s: merge %d (%q, %q) references unknown tokens", name, rank, pair[0], pair[1])
		}
		s.pairs.add(a, b, uint32(rank), merged)
	}

	return s, nil
}
