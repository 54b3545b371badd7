// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

// Configuration constants recognised by the core (spec §6).
const (
	// PeriodicUtilizationLimit caps scaled Sigma(slice*1e5/period) over
	// Runnable union Pending, e.g. 65000 == 65%.
	PeriodicUtilizationLimit = 65000
	// SporadicUtilizationLimit caps scaled Sigma(work*1e5/(deadline-now))
	// over Runnable.
	SporadicUtilizationLimit = 18000
	// AperiodicUtilizationReserved is declared but intentionally unused
	// by Admit (spec §9 Open Questions: "APERIODIC_UTIL is declared but
	// unused; keep as reserved").
	AperiodicUtilizationReserved = 9000
	// Quantum is the default one-shot timer interval, in ticks, used
	// when nothing else constrains it.
	Quantum uint64 = 10_000_000
	// MaxQueue is the fixed capacity of every heap and ring container.
	MaxQueue = 256

	// utilizationScale is the 1e5 fixed-point scale factor spec.md uses
	// throughout its utilization arithmetic.
	utilizationScale = 100000
)

// Clock is the monotonically increasing cycle counter the core consumes
// (spec §6 "now() -> u64"). It is supplied externally; the core never
// reads wall-clock time.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() uint64

// Now returns the current cycle count.
func (f ClockFunc) Now() uint64 { return f() }

// Timer is the one-shot hardware timer the core programs on every
// selection decision (spec §6 "program_oneshot_timer(cpu, ticks)"). The
// core treats it as a pure side-effecting callback; arming and firing
// semantics belong to the external APIC/IRQ glue.
type Timer interface {
	ProgramOneShot(cpu int, ticks uint64)
}

// TimerFunc adapts a plain function to the Timer interface.
type TimerFunc func(cpu int, ticks uint64)

// ProgramOneShot arms the one-shot timer for ticks cycles from now.
func (f TimerFunc) ProgramOneShot(cpu int, ticks uint64) { f(cpu, ticks) }

// TimingRecord is populated on every NeedResched call (spec §4.5).
type TimingRecord struct {
	StartTime uint64
	EndTime   uint64
	SetTime   uint64
}
