// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background - run a set of long lived goroutines that share
// one shutdown signal
//
// each process runs until its shutdown channel is closed; Stop
// returns once all of them have exited
package background

import (
	"sync"
)

// Process - a background process must implement this
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// T - handle for a running set of processes
type T struct {
	sync.Mutex
	shutdown chan struct{}
	finished sync.WaitGroup
	stopped  bool
}

// Start - start up a set of background processes
func Start(processes Processes, args interface{}) *T {
	register := &T{
		shutdown: make(chan struct{}),
	}

	for _, p := range processes {
		register.finished.Add(1)
		go func(p Process) {
			defer register.finished.Done()
			p.Run(args, register.shutdown)
		}(p)
	}
	return register
}

// Stop - signal all processes and wait for them to finish
func (t *T) Stop() {
	t.signal()
	t.finished.Wait()
}

// StopAndWait - alias of Stop for callers that want to make the wait explicit
func (t *T) StopAndWait() {
	t.Stop()
}

// signal shutdown at most once
func (t *T) signal() {
	t.Lock()
	defer t.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.shutdown)
}
