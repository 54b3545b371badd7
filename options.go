// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"fmt"
	"os"
)

// LogFunc receives the local, non-fatal error events the core reports
// (spec §7): QueueFull, QueueEmpty, ThreadNotFound and DeadlineMiss. The
// default prints to stderr, mirroring the teacher's default PanicHandler.
type LogFunc func(format string, args ...interface{})

func defaultLog(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[scheduler] "+format+"\n", args...)
}

// RecoverHandler is invoked when the housekeeping task's per-tick body
// panics; it never kills the housekeeping goroutine (spec §4.4 "never
// blocks").
type RecoverHandler func(r interface{})

func defaultRecoverHandler(r interface{}) {
	fmt.Fprintf(os.Stderr, "[scheduler] housekeeping panic: %+v\n", r)
}

// An Option configures a Scheduler at construction (mirrors teacher's
// options.go Option/optionFunc pattern).
type Option interface {
	apply(*Scheduler)
}

type optionFunc func(*Scheduler)

func (f optionFunc) apply(s *Scheduler) { f(s) }

// WithClock configures the monotonic cycle-counter source (spec §6
// "now() -> u64"). Defaults to an always-zero clock, which is only
// useful for tests that pass now explicitly to NeedResched/Admit.
func WithClock(clock Clock) Option {
	return optionFunc(func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	})
}

// WithTimer configures the one-shot hardware timer callback (spec §6
// "program_oneshot_timer(cpu, ticks)").
func WithTimer(timer Timer) Option {
	return optionFunc(func(s *Scheduler) {
		if timer != nil {
			s.timer = timer
		}
	})
}

// WithLogger overrides the default stderr logger.
func WithLogger(log LogFunc) Option {
	return optionFunc(func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	})
}

// WithRecoverHandler overrides the housekeeping panic handler.
func WithRecoverHandler(h RecoverHandler) Option {
	return optionFunc(func(s *Scheduler) {
		if h != nil {
			s.recoverHandler = h
		}
	})
}

// WithUtilizationLimits overrides the default PERIODIC/SPORADIC
// utilization ceilings (spec §3 invariant 5 and §6 configuration
// constants). Zero values are ignored (keep the default).
func WithUtilizationLimits(periodic, sporadic int64) Option {
	return optionFunc(func(s *Scheduler) {
		if periodic > 0 {
			s.periodicUtilLimit = periodic
		}
		if sporadic > 0 {
			s.sporadicUtilLimit = sporadic
		}
	})
}

// WithQuantum overrides the default timer quantum used when no earlier
// event constrains the next one-shot interval.
func WithQuantum(ticks uint64) Option {
	return optionFunc(func(s *Scheduler) {
		if ticks > 0 {
			s.quantum = ticks
		}
	})
}

// WithSlack adds a fixed slack duration to every programmed one-shot
// timer interval (spec §4.2 step 3 "+ slack"). Defaults to zero.
func WithSlack(ticks uint64) Option {
	return optionFunc(func(s *Scheduler) {
		s.slack = ticks
	})
}
