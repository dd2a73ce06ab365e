package safego

import (
	"log"
	"runtime/debug"
)

// Go runs fn in a new goroutine. A panic in fn is written to the logger
// before re-panicking, because the curses UI swallows anything the runtime
// prints to stderr.
func Go(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
