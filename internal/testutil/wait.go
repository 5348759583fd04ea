package testutil

import (
	"testing"
	"time"
)

const waitPollInterval = 5 * time.Millisecond

// WaitFor polls cond until it returns true or timeout elapses, then fails the
// test with msg.
func WaitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v: %s", timeout, msg)
		}
		time.Sleep(waitPollInterval)
	}
}
