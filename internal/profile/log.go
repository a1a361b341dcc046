package profile

import (
	"sync/atomic"

	"github.com/mylxsw/asteria/log"
)

var debugLogging atomic.Bool

// EnableDebugLogging switches the debug messages of profile builds and asset
// downloads on or off. They are off by default since the package is used as
// a library.
func EnableDebugLogging(on bool) {
	debugLogging.Store(on)
}

func debugf(format string, v ...interface{}) {
	if debugLogging.Load() {
		log.Debugf(format, v...)
	}
}
