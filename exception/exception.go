package exception

import (
	"os"
	"runtime/debug"

	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
)

// SafeGo runs fn on its own goroutine and contains any panic: the panic is
// counted, logged with a stack, and the rest of the node keeps running. Use it
// for the long-lived loops (scheduler, sweeper, clock).
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", name, r, string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGoWithPanic is SafeGo for goroutines the node cannot live without: the
// panic is still counted and logged, then the process exits.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", name, r, string(debug.Stack()))
				os.Exit(1)
			}
		}()
		fn()
	}()
}
