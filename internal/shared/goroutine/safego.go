// Package goroutine provides panic-safe helpers for background work.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// SafeGo launches fn in a goroutine. A panic is logged with its stack instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverAndLog(log, name)
		fn()
	}()
}

// RunSafe calls fn synchronously and converts a panic into an error, so one bad unit of work in a
// batch does not take the batch down.
func RunSafe(log logger.Interface, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("recovered panic",
				"task", name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}

func recoverAndLog(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
