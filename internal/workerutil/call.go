package workerutil

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// PanicError carries a value recovered from a panicking callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Call runs fn and converts a panic into a *PanicError.
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Go runs fn on a goroutine tracked by wg. A panic is logged with its stack
// and swallowed; the goroutine does not restart.
func Go(wg *sync.WaitGroup, name string, fn func()) {
	wg.Go(func() {
		err := Call(func() error {
			fn()
			return nil
		})
		if err != nil {
			logPanic(name, err)
		}
	})
}

func logPanic(name string, err error) {
	var pe *PanicError
	if !errors.As(err, &pe) {
		return
	}
	slog.Error("[DEBUG-PANIC] background goroutine recovered from panic",
		"worker", name,
		"panic", pe.Value,
		"stack", string(pe.Stack),
	)
}
