// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "errors"

// Error taxonomy (spec §7). All of these are local: the scheduler never
// unwinds on them. Only the "empty Aperiodic" invariant violation
// escalates, and it does so via panic, not one of these values.
var (
	// ErrQueueFull is returned by enqueue when a container is already
	// at MaxQueue capacity. The operation is dropped; for Arrival this
	// means the thread is rejected outright.
	ErrQueueFull = errors.New("scheduler: queue full")

	// ErrQueueEmpty is returned by dequeue on an empty container.
	ErrQueueEmpty = errors.New("scheduler: queue empty")

	// ErrThreadNotFound is returned by remove when the thread is not a
	// member of the container searched.
	ErrThreadNotFound = errors.New("scheduler: thread not found")

	// ErrAdmissionDenied names the outcome where accepting the thread
	// would push utilization past its configured ceiling. Admit itself
	// reports that outcome by returning false, not by returning this
	// value. The arrival descriptor is left for the caller to free.
	ErrAdmissionDenied = errors.New("scheduler: admission denied")
)
