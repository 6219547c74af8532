package slogx

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Guard runs fn and recovers a panic, logging it with op and the file:line of
// the code that called Guard. Use it for goroutines that nobody waits on.
func Guard(logger *slog.Logger, op string, fn func()) {
	caller := callerOf(2)
	defer recoverPanic(logger, op, caller)
	fn()
}

// Go starts fn on a new goroutine under Guard.
func Go(logger *slog.Logger, op string, fn func()) {
	caller := callerOf(2)
	go func() {
		defer recoverPanic(logger, op, caller)
		fn()
	}()
}

func callerOf(skip int) string {
	if _, file, line, ok := runtime.Caller(skip); ok {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return "unknown"
}

func recoverPanic(logger *slog.Logger, op, caller string) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered panic",
		"op", op,
		"caller", caller,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()),
	)
}
