// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

// Admit tests only utilization, never deadlines (spec §4.3). It is the
// default, unconditional admission policy; SimulateAdmission below is
// the stronger, simulator-backed alternative spec.md's Open Questions
// describe as unused in the original and left to the implementer (see
// DESIGN.md Open Question 4) — Admit does not call it.
func (s *Scheduler) Admit(t *Thread, now uint64) bool {
	switch c := t.Constraints.(type) {
	case PeriodicConstraints:
		total := s.periodicUtilization() + periodicContribution(c)
		return total <= s.periodicUtilLimit
	case SporadicConstraints:
		total := s.sporadicUtilization(now) + sporadicContribution(c, t, now)
		return total <= s.sporadicUtilLimit
	case AperiodicConstraints:
		return true
	default:
		return false
	}
}

func periodicContribution(c PeriodicConstraints) int64 {
	if c.Period == 0 {
		return 0
	}
	return int64(c.Slice) * utilizationScale / int64(c.Period)
}

func sporadicContribution(c SporadicConstraints, t *Thread, now uint64) int64 {
	denom := int64(t.Deadline) - int64(now)
	if denom <= 0 {
		return 0
	}
	return int64(c.Work) * utilizationScale / denom
}

// periodicUtilization sums slice*1e5/period over Runnable union Pending
// (spec §3 invariant 5, §4.3).
func (s *Scheduler) periodicUtilization() int64 {
	var total int64
	for _, h := range [2]*Heap{s.runnable, s.pending} {
		for _, th := range h.s.items {
			if pc, ok := th.Periodic(); ok {
				total += periodicContribution(pc)
			}
		}
	}
	return total
}

// sporadicUtilization sums work*1e5/(deadline-now) over Runnable alone
// (spec §3 invariant 5, §4.3).
func (s *Scheduler) sporadicUtilization(now uint64) int64 {
	var total int64
	for _, th := range s.runnable.s.items {
		if spc, ok := th.SporadicC(); ok {
			denom := int64(th.Deadline) - int64(now)
			if denom <= 0 {
				continue
			}
			total += int64(spc.Work) * utilizationScale / denom
		}
	}
	return total
}

// SimState is an isolated clone of Runnable, Pending and Aperiodic
// (spec §4.3 "Simulator duplication"): own Thread values, sharing no
// mutable state with the live scheduler. It is freed (left for the
// garbage collector) once a simulation trial completes — there is no
// explicit teardown call, matching spec.md's "rt_thread_free is empty"
// Open Question resolution in DESIGN.md.
type SimState struct {
	Runnable, Pending, Aperiodic *Heap
	Current                      *Thread
}

// Snapshot produces a SimState from the scheduler's live containers.
func (s *Scheduler) Snapshot() *SimState {
	return &SimState{
		Runnable:  s.runnable.snapshot(),
		Pending:   s.pending.snapshot(),
		Aperiodic: s.aperiodic.snapshot(),
	}
}

// Step replays one NeedResched decision (spec §4.2 steps 1-3, minus the
// timer-programming and logging side effects) purely against sim's own
// containers. It never touches live scheduler state; this is the "pure,
// side-effect-free variant of step 1-3" spec §4.3 calls for.
func (sim *SimState) Step(now, endTime uint64) (*Thread, error) {
	for {
		m := sim.Pending.Peek()
		if m == nil || !(m.Deadline < endTime) {
			break
		}
		t, err := sim.Pending.Dequeue()
		if err != nil {
			break
		}
		pc, _ := t.Periodic()
		t.RunTime = 0
		t.Deadline = endTime + pc.Period
		if err := sim.Runnable.Enqueue(t); err != nil {
			return nil, err
		}
	}

	c := sim.Current
	if c == nil {
		next, err := popFromHeaps(sim.Runnable, sim.Aperiodic)
		if err != nil {
			return nil, err
		}
		sim.Current = next
		return next, nil
	}

	var next *Thread
	var err error
	switch c.Type {
	case Aperiodic:
		c.Constraints = AperiodicConstraints{Priority: int64(c.RunTime)}
		if e := sim.Aperiodic.Enqueue(c); e != nil {
			return nil, e
		}
		next, err = popFromHeaps(sim.Runnable, sim.Aperiodic)
	case Sporadic:
		spc, _ := c.SporadicC()
		if c.RunTime >= spc.Work {
			next, err = popFromHeaps(sim.Runnable, sim.Aperiodic)
		} else if m := sim.Runnable.Peek(); m != nil && m.Deadline < c.Deadline {
			var popped *Thread
			popped, err = sim.Runnable.Dequeue()
			if err == nil {
				if e := sim.Runnable.Enqueue(c); e != nil {
					return nil, e
				}
				next = popped
			}
		} else {
			next = c
		}
	case Periodic:
		pc, _ := c.Periodic()
		if c.RunTime >= pc.Slice {
			if c.ExitTime > c.Deadline {
				c.Deadline = c.ExitTime + pc.Period
				c.RunTime = 0
				if e := sim.Runnable.Enqueue(c); e != nil {
					return nil, e
				}
			} else if e := sim.Pending.Enqueue(c); e != nil {
				return nil, e
			}
			next, err = popFromHeaps(sim.Runnable, sim.Aperiodic)
		} else if m := sim.Runnable.Peek(); m != nil && m.Deadline < c.Deadline {
			var popped *Thread
			popped, err = sim.Runnable.Dequeue()
			if err == nil {
				if e := sim.Runnable.Enqueue(c); e != nil {
					return nil, e
				}
				next = popped
			}
		} else {
			next = c
		}
	}
	if err != nil {
		return nil, err
	}
	sim.Current = next
	return next, nil
}

// popFromHeaps is shared between the live scheduler and the pure
// simulator: pop Runnable's min if non-empty, else fall through to
// Aperiodic's min.
func popFromHeaps(runnable, aperiodic *Heap) (*Thread, error) {
	if t, err := runnable.Dequeue(); err == nil {
		return t, nil
	}
	return aperiodic.Dequeue()
}

// SimulateAdmission plays forward up to steps NeedResched decisions on a
// cloned snapshot with candidate hypothetically admitted already, using
// a fixed tick size per step, and reports infeasible as soon as the
// thread dispatched at some step has a recorded exit time past its
// deadline. Only dispatched threads are checked: a thread that waits in
// a container for the whole run is not examined, and a PERIODIC thread
// re-released at slice exhaustion gets its new deadline before any
// check. It is exposed for tests and as an
// optional stronger admission check; the default Admit policy above
// does not call it (see DESIGN.md Open Question 4 and spec.md §4.3:
// "without stronger guarantees from the simulator the admission
// degrades to the utilization test only; both paths must be present").
func (s *Scheduler) SimulateAdmission(candidate *Thread, now uint64, steps int, tick uint64) (feasible bool, err error) {
	sim := s.Snapshot()

	clone := candidate.clone()
	switch clone.Constraints.(type) {
	case AperiodicConstraints:
		if err := sim.Aperiodic.Enqueue(clone); err != nil {
			return false, err
		}
	default:
		if err := sim.Runnable.Enqueue(clone); err != nil {
			return false, err
		}
	}

	t := now
	for i := 0; i < steps; i++ {
		end := t + tick
		next, err := sim.Step(t, end)
		if err != nil {
			return false, err
		}
		if next.Deadline != 0 && next.ExitTime != 0 && next.ExitTime > next.Deadline {
			return false, nil
		}
		next.RunTime += tick
		next.ExitTime = end
		t = end
	}
	return true, nil
}
