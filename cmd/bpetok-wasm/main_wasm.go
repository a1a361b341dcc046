//go:build js && wasm

package main

import (
	"sync"
	"syscall/js"

	"github.com/bpetok/bpe-openai/bpetok"
	"github.com/bpetok/bpe-openai/internal/profile"
)

var (
	voyageMu sync.RWMutex
	voyage   *profile.Registry
)

func main() {
	api := map[string]any{
		"init":         js.FuncOf(initDiagnostics),
		"profiles":     js.FuncOf(listProfiles),
		"loadVoyage3":  js.FuncOf(loadVoyage3),
		"newTokenizer": js.FuncOf(newTokenizer),
	}

	js.Global().Set("bpetok", js.ValueOf(api))
	println("bpetok wasm module loaded")
	select {}
}

func initDiagnostics(_ js.Value, _ []js.Value) any {
	bpetok.Init()
	return js.Undefined()
}

func listProfiles(_ js.Value, _ []js.Value) any {
	names := bpetok.Profiles()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}

// loadVoyage3 takes the bytes of a voyage3_base tokenizer.json, since the
// browser has no file system to read it from.
func loadVoyage3(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing tokenizer.json bytes")
	}
	content := bytesFromJS(args[0])
	if len(content) == 0 {
		return errResult("tokenizer.json bytes must be a non-empty Uint8Array")
	}

	reg := profile.NewRegistry(profile.Definition{
		Name:   bpetok.Voyage3Base,
		Source: profile.HFBytesSource{Content: content},
	})
	if _, err := reg.Resolve(bpetok.Voyage3Base); err != nil {
		return errResult(err.Error())
	}

	voyageMu.Lock()
	voyage = reg
	voyageMu.Unlock()

	return okResult(map[string]any{})
}

func newTokenizer(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing profile name")
	}
	name := args[0].String()

	var (
		tok *bpetok.Tokenizer
		err error
	)
	voyageMu.RLock()
	reg := voyage
	voyageMu.RUnlock()
	if name == bpetok.Voyage3Base && reg != nil {
		tok, err = bpetok.NewWithRegistry(reg, name)
	} else {
		tok, err = bpetok.New(name)
	}
	if err != nil {
		return errResult(err.Error())
	}

	return okResult(map[string]any{
		"name":      tok.Name(),
		"vocabSize": tok.VocabSize(),
		"encode":    js.FuncOf(func(_ js.Value, args []js.Value) any { return encode(tok, args) }),
		"decode":    js.FuncOf(func(_ js.Value, args []js.Value) any { return decode(tok, args) }),
		"count":     js.FuncOf(func(_ js.Value, args []js.Value) any { return count(tok, args) }),
	})
}

func encode(tok *bpetok.Tokenizer, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing text argument")
	}
	ids, err := tok.Encode(args[0].String())
	if err != nil {
		return errResult(err.Error())
	}

	arr := js.Global().Get("Uint32Array").New(len(ids))
	for i, id := range ids {
		arr.SetIndex(i, id)
	}
	return okResult(map[string]any{"tokens": arr})
}

// decode returns the text, or undefined when the tokens do not form valid
// UTF-8 text.
func decode(tok *bpetok.Tokenizer, args []js.Value) any {
	if len(args) < 1 {
		return js.Undefined()
	}
	src := args[0]
	n := src.Length()
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		v := src.Index(i).Float()
		if v < 0 || v > float64(^uint32(0)) || v != float64(uint32(v)) {
			return js.Undefined()
		}
		ids[i] = uint32(v)
	}

	text, ok := tok.Decode(ids)
	if !ok {
		return js.Undefined()
	}
	return text
}

func count(tok *bpetok.Tokenizer, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing text argument")
	}
	n, err := tok.Count(args[0].String())
	if err != nil {
		return errResult(err.Error())
	}
	return okResult(map[string]any{"count": n})
}

func bytesFromJS(v js.Value) []byte {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	uint8Array := js.Global().Get("Uint8Array")
	if !v.InstanceOf(uint8Array) {
		v = uint8Array.New(v)
	}
	out := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(out, v)
	return out
}

func okResult(payload map[string]any) map[string]any {
	payload["ok"] = true
	return payload
}

func errResult(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}
