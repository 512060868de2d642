// Package goroutine provides utilities for safely launching goroutines with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

// SafeGo launches a goroutine with panic recovery. If the goroutine panics,
// the panic is caught and logged with stack trace instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		_ = SafeRun(log, name, func() error {
			fn()
			return nil
		})
	}()
}

// SafeRun calls fn on the current goroutine and converts a panic into an error.
// Scheduled passes use it so one bad run does not take the daemon down.
func SafeRun(log logger.Interface, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("goroutine panicked",
				"goroutine", name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}
