//go:build !deadlock

// Package sync provides the mutex types used across arena-shell. Building
// with -tags deadlock swaps in go-deadlock to report lock-order problems.
package sync

import "sync"

type Mutex = sync.Mutex

type RWMutex = sync.RWMutex

// Enabled reports whether deadlock detection is compiled in.
const Enabled = false
