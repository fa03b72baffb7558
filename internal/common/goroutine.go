// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrappers
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine with panic recovery.
// Panics are logged but don't crash the service.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer RecoverAndLog(logger, name)
		fn()
	}()
}

// RecoverAndLog is deferred by goroutines that must survive a panic.
func RecoverAndLog(logger arbor.ILogger, name string) {
	if r := recover(); r != nil {
		stackTrace := GetStackTrace()
		if logger != nil {
			logger.Error().
				Str("goroutine", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", stackTrace).
				Msg("Recovered from panic in goroutine - continuing service operation")
			return
		}
		fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stackTrace)
	}
}

// GetStackTrace returns the current goroutine's stack trace.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
