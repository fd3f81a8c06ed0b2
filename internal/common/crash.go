package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// GetStackTrace returns the stack of the calling goroutine.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// RecoverAsError converts a recovered panic value into an error and logs it with its stack.
// Use from a deferred func: defer func() { if r := recover(); r != nil { err = RecoverAsError(logger, name, r) } }()
func RecoverAsError(logger arbor.ILogger, name string, panicVal interface{}) error {
	logger.Error().
		Str("operation", name).
		Str("panic", fmt.Sprintf("%v", panicVal)).
		Str("stack", GetStackTrace()).
		Msg("Recovered from panic")
	return fmt.Errorf("%s panicked: %v", name, panicVal)
}
