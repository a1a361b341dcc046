package bpetok

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/mylxsw/asteria/log"
)

var (
	initOnce     sync.Once
	reportPanics atomic.Bool
)

// Init turns on diagnostics for embedding hosts: file and line in log output,
// and a logged stack trace for any panic inside Encode, Decode or Count
// before it propagates. Calling it more than once has no further effect.
// Tokenizer results are the same with or without it.
func Init() {
	initOnce.Do(func() {
		log.DefaultWithFileLine(true)
		reportPanics.Store(true)
		log.Debug("bpetok: panic reporting enabled")
	})
}

func reportPanic(op string) {
	r := recover()
	if r == nil {
		return
	}
	if reportPanics.Load() {
		log.Errorf("bpetok: panic in %s: %v\n%s", op, r, debug.Stack())
	}
	panic(r)
}
