// Package bpetok encodes text to tokens and back for the supported
// byte-pair-encoding profiles.
//
//	tok, err := bpetok.New(bpetok.CL100KBase)
//	if err != nil {
//		return err
//	}
//	ids, err := tok.Encode("Hello, world!")
//
// A Tokenizer is a cheap handle onto a vocabulary shared by every handle of
// the same profile; the vocabulary is built on first use and kept for the
// life of the process. Handles are safe for concurrent use.
package bpetok

import (
	"github.com/bpetok/bpe-openai/internal/engine"
	"github.com/bpetok/bpe-openai/internal/profile"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

const (
	CL100KBase  = profile.CL100KBase
	O200KBase   = profile.O200KBase
	Voyage3Base = profile.Voyage3Base
)

var (
	// ErrUnknownProfile is matched by errors.Is when New is given a name
	// outside the supported set.
	ErrUnknownProfile = profile.ErrUnknownProfile
	// ErrInvalidInput is returned for text that is not valid UTF-8.
	ErrInvalidInput = engine.ErrInvalidInput
	// ErrAssetUnavailable is returned when a profile's vocabulary cannot be
	// located, for example voyage3_base without a configured tokenizer.json.
	ErrAssetUnavailable = vocab.ErrAssetUnavailable
)

// UnknownProfileError carries the rejected profile name.
type UnknownProfileError = profile.UnknownProfileError

// Tokenizer is bound to one profile.
type Tokenizer struct {
	name  string
	store *vocab.Store
}

// New returns a tokenizer for profileName from the built-in profiles.
func New(profileName string) (*Tokenizer, error) {
	return NewWithRegistry(profile.Default(), profileName)
}

// NewWithRegistry resolves profileName against reg instead of the built-in
// registry.
func NewWithRegistry(reg *profile.Registry, profileName string) (*Tokenizer, error) {
	store, err := reg.Resolve(profileName)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{name: profileName, store: store}, nil
}

// Profiles lists the built-in profile names.
func Profiles() []string {
	return profile.Default().Names()
}

// Name returns the profile the tokenizer is bound to.
func (t *Tokenizer) Name() string { return t.name }

// VocabSize returns one past the largest token identifier of the profile.
func (t *Tokenizer) VocabSize() int { return t.store.Size() }

// Encode converts text to token identifiers. Empty text yields an empty,
// non-nil slice.
func (t *Tokenizer) Encode(text string) ([]uint32, error) {
	defer reportPanic("encode")
	return engine.Encode(t.store, text)
}

// Decode converts tokens back to text. It reports false when an identifier
// is unknown to the profile or the tokens do not form valid UTF-8, such as a
// sequence cut in the middle of a multi-byte character.
func (t *Tokenizer) Decode(tokens []uint32) (string, bool) {
	defer reportPanic("decode")
	return engine.Decode(t.store, tokens)
}

// Count returns the number of tokens Encode would produce for text.
func (t *Tokenizer) Count(text string) (int, error) {
	defer reportPanic("count")
	return engine.Count(t.store, text)
}
