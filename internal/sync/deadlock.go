//go:build deadlock

// Package sync provides the mutex types used across arena-shell. Building
// with -tags deadlock swaps in go-deadlock to report lock-order problems.
package sync

import (
	"os"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex is go-deadlock's Mutex.
type Mutex = deadlock.Mutex

// RWMutex is go-deadlock's RWMutex.
type RWMutex = deadlock.RWMutex

// Enabled reports whether deadlock detection is compiled in.
const Enabled = true

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	deadlock.Opts.PrintAllCurrentGoroutines = true

	if os.Getenv("ARENA_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
	}
}
