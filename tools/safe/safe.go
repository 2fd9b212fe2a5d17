package safe

import (
	"MediChat/logger"
	"MediChat/tools/errs"
)

// SafeGo starts a new goroutine that recovers from panic, so a handler
// panic doesn't crash the entire program.
func SafeGo(f func()) {
	go func() {
		defer RecoverLog()
		f()
	}()
}

// RecoverLog recovers a panic in the current goroutine and logs it.
// Use as: defer safe.RecoverLog()
func RecoverLog() {
	if r := recover(); r != nil {
		logger.Errorf("panic recovered: %v", errs.ErrPanic(r))
	}
}
