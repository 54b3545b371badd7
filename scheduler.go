// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "fmt"

// infinityTicks stands in for the spec's "infinity" sentinel (no Pending
// release constrains the next timer interval).
const infinityTicks = ^uint64(0)

// Scheduler is a single per-CPU real-time scheduler instance (spec §2,
// §5 "Concurrency & Resource Model": one instance per CPU, no locking
// between operations on a single instance — callers are responsible for
// serialising calls the way an ISR would serialise interrupts).
type Scheduler struct {
	cpu int

	runnable  *Heap
	pending   *Heap
	aperiodic *Heap
	arrival   *Ring
	waiting   *Ring
	sleeping  *Ring
	exited    *Ring

	current *Thread
	timing  TimingRecord

	clock          Clock
	timer          Timer
	log            LogFunc
	recoverHandler RecoverHandler

	periodicUtilLimit int64
	sporadicUtilLimit int64
	quantum           uint64
	slack             uint64
}

// InitScheduler creates a Scheduler with empty containers and places
// mainThread, marked Admitted, onto the Aperiodic heap (spec §6
// "init_scheduler"). mainThread is what keeps the "empty Aperiodic is
// unreachable" invariant (spec §7) true from the very first
// NeedResched call.
func InitScheduler(cpu int, mainThread *Thread, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cpu:               cpu,
		log:               defaultLog,
		recoverHandler:    defaultRecoverHandler,
		clock:             ClockFunc(func() uint64 { return 0 }),
		periodicUtilLimit: PeriodicUtilizationLimit,
		sporadicUtilLimit: SporadicUtilizationLimit,
		quantum:           Quantum,
	}
	for _, o := range opts {
		o.apply(s)
	}

	s.runnable = newHeap(Runnable, MaxQueue, deadlineKey, s.log)
	s.pending = newHeap(Pending, MaxQueue, deadlineKey, s.log)
	s.aperiodic = newHeap(AperiodicQueue, MaxQueue, priorityKey, s.log)

	arrived, waitingSt, sleepingSt := Arrived, Waiting, Sleeping
	s.arrival = newRing(ArrivalQueue, MaxQueue, &arrived, false, s.log)
	s.waiting = newRing(WaitingQueue, MaxQueue, &waitingSt, false, s.log)
	s.sleeping = newRing(SleepingQueue, MaxQueue, &sleepingSt, false, s.log)
	s.exited = newRing(ExitedQueue, MaxQueue, nil, true, s.log)

	if mainThread != nil {
		mainThread.Status = Admitted
		if err := s.aperiodic.Enqueue(mainThread); err != nil {
			return nil, fmt.Errorf("scheduler: init_scheduler: %w", err)
		}
	}

	return s, nil
}

// CPU returns the id of the CPU this scheduler instance owns.
func (s *Scheduler) CPU() int { return s.cpu }

// Current returns the thread currently RUNNING on this CPU, or nil
// before the first NeedResched call.
func (s *Scheduler) Current() *Thread { return s.current }

// Timing returns the most recently recorded timing record (spec §4.5).
func (s *Scheduler) Timing() TimingRecord { return s.timing }

// Stats is an introspection accessor reporting per-container lengths,
// in the spirit of the teacher's Scheduler.Count().
type Stats struct {
	Runnable, Pending, Aperiodic       int
	Arrival, Waiting, Sleeping, Exited int
}

// Stats snapshots container occupancy.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runnable:  s.runnable.Len(),
		Pending:   s.pending.Len(),
		Aperiodic: s.aperiodic.Len(),
		Arrival:   s.arrival.Len(),
		Waiting:   s.waiting.Len(),
		Sleeping:  s.sleeping.Len(),
		Exited:    s.exited.Len(),
	}
}

// containerByTag resolves a ContainerTag to its concrete container. The
// returned interface values share the narrow Enqueue/Dequeue/Remove
// surface both Heap and Ring expose.
type container interface {
	Enqueue(*Thread) error
	Dequeue() (*Thread, error)
	Remove(*Thread) (*Thread, error)
	Len() int
}

func (s *Scheduler) containerByTag(tag ContainerTag) container {
	switch tag {
	case Runnable:
		return s.runnable
	case Pending:
		return s.pending
	case AperiodicQueue:
		return s.aperiodic
	case ArrivalQueue:
		return s.arrival
	case WaitingQueue:
		return s.waiting
	case SleepingQueue:
		return s.sleeping
	case ExitedQueue:
		return s.exited
	default:
		return nil
	}
}

// Enqueue places t onto the named container (spec §6 "enqueue").
func (s *Scheduler) Enqueue(tag ContainerTag, t *Thread) error {
	c := s.containerByTag(tag)
	if c == nil {
		panic(fmt.Sprintf("scheduler: unknown container tag %v", tag))
	}
	return c.Enqueue(t)
}

// Dequeue pops from the named container (spec §6 "dequeue").
func (s *Scheduler) Dequeue(tag ContainerTag) (*Thread, error) {
	c := s.containerByTag(tag)
	if c == nil {
		panic(fmt.Sprintf("scheduler: unknown container tag %v", tag))
	}
	return c.Dequeue()
}

// Remove extracts t from whichever container its own ContainerTag names
// (spec §6 "remove").
func (s *Scheduler) Remove(t *Thread) (*Thread, error) {
	c := s.containerByTag(t.ContainerTag)
	if c == nil {
		return nil, ErrThreadNotFound
	}
	return c.Remove(t)
}

// ThreadExit tombstones t and defers its removal to housekeeping (spec
// §6 "thread_exit", §4.4 step 2). It remembers t's current container so
// housekeeping can purge it from the right place once it drains Exited.
func (s *Scheduler) ThreadExit(t *Thread) error {
	t.Status = ToBeRemoved
	t.lastContainer = t.ContainerTag
	return s.exited.Enqueue(t)
}

// NeedResched is the selection engine's ISR entry point (spec §4.2). now
// is the current cycle count; endTime estimates when the thread chosen
// here will actually begin running (accounting for context-switch
// overhead upstream of this call).
func (s *Scheduler) NeedResched(now, endTime uint64) (*Thread, error) {
	s.releasePendingPeriodics(endTime)

	c := s.current
	var next *Thread
	var err error

	if c == nil {
		next, err = s.popRunnableOrAperiodic()
	} else {
		c.ExitTime = now
		switch c.Type {
		case Aperiodic:
			next, err = s.dispatchAperiodic(c)
		case Sporadic:
			next, err = s.dispatchSporadic(c)
		case Periodic:
			next, err = s.dispatchPeriodic(c)
		default:
			next, err = s.popRunnableOrAperiodic()
		}
	}
	if err != nil {
		return nil, err
	}

	s.programTimer(next, now, endTime)
	next.Status = Running
	next.StartTime = now
	s.current = next
	return next, nil
}

// releasePendingPeriodics implements step 1: while Pending's earliest
// next release is before endTime, release it into Runnable with an
// updated deadline (spec §4.2 step 1, scenario S6). The new deadline is
// computed from endTime, not from the stale pending deadline — endTime
// is the instant this release actually becomes current.
func (s *Scheduler) releasePendingPeriodics(endTime uint64) {
	for {
		m := s.pending.Peek()
		if m == nil || !(m.Deadline < endTime) {
			return
		}
		t, err := s.pending.Dequeue()
		if err != nil {
			return
		}
		pc, _ := t.Periodic()
		t.RunTime = 0
		t.Deadline = endTime + pc.Period
		if err := s.runnable.Enqueue(t); err != nil {
			s.log("failed to release pending thread %d into runnable: %v", t.ID, err)
		}
	}
}

// dispatchAperiodic implements step 2's APERIODIC branch: age C's
// priority to its accumulated run time, push it back, and pick whatever
// is now most urgent.
func (s *Scheduler) dispatchAperiodic(c *Thread) (*Thread, error) {
	c.Constraints = AperiodicConstraints{Priority: int64(c.RunTime)}
	if err := s.aperiodic.Enqueue(c); err != nil {
		s.log("failed to re-enqueue aperiodic thread %d: %v", c.ID, err)
	}
	return s.popRunnableOrAperiodic()
}

// dispatchSporadic implements step 2's SPORADIC branches.
func (s *Scheduler) dispatchSporadic(c *Thread) (*Thread, error) {
	spc, _ := c.SporadicC()
	if c.RunTime >= spc.Work {
		s.checkDeadlineMiss(c)
		return s.popRunnableOrAperiodic()
	}

	if m := s.runnable.Peek(); m != nil && m.Deadline < c.Deadline {
		popped, err := s.runnable.Dequeue()
		if err != nil {
			return nil, err
		}
		if err := s.runnable.Enqueue(c); err != nil {
			s.log("failed to re-enqueue sporadic thread %d: %v", c.ID, err)
		}
		return popped, nil
	}
	return c, nil
}

// dispatchPeriodic implements step 2's PERIODIC branches.
func (s *Scheduler) dispatchPeriodic(c *Thread) (*Thread, error) {
	pc, _ := c.Periodic()
	if c.RunTime >= pc.Slice {
		if c.ExitTime > c.Deadline {
			s.checkDeadlineMiss(c)
			c.Deadline = c.ExitTime + pc.Period
			c.RunTime = 0
			if err := s.runnable.Enqueue(c); err != nil {
				s.log("failed to re-release periodic thread %d: %v", c.ID, err)
			}
		} else {
			if err := s.pending.Enqueue(c); err != nil {
				s.log("failed to pend periodic thread %d: %v", c.ID, err)
			}
		}
		return s.popRunnableOrAperiodic()
	}

	if m := s.runnable.Peek(); m != nil && m.Deadline < c.Deadline {
		popped, err := s.runnable.Dequeue()
		if err != nil {
			return nil, err
		}
		if err := s.runnable.Enqueue(c); err != nil {
			s.log("failed to re-enqueue periodic thread %d: %v", c.ID, err)
		}
		return popped, nil
	}
	return c, nil
}

// checkDeadlineMiss reports a non-fatal DeadlineMiss (spec §7): the
// measured overrun is exit_time - deadline. It never aborts the thread.
func (s *Scheduler) checkDeadlineMiss(c *Thread) {
	if c.ExitTime > c.Deadline {
		s.log("deadline miss: thread=%d type=%s deadline=%d exit=%d overrun=%d",
			c.ID, c.Type, c.Deadline, c.ExitTime, c.ExitTime-c.Deadline)
	}
}

// popRunnableOrAperiodic pops Runnable's min if non-empty, else falls
// through to Aperiodic's min. An empty Aperiodic at this point means the
// scheduler invariant that something always resides there (the main/
// housekeeping thread) has been violated; per spec §7 that is fatal.
func (s *Scheduler) popRunnableOrAperiodic() (*Thread, error) {
	t, err := popFromHeaps(s.runnable, s.aperiodic)
	if err != nil {
		panic("scheduler: need_resched found no runnable and no aperiodic thread to dispatch")
	}
	return t, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// programTimer implements step 3: compute tau for the chosen next
// thread and arm the one-shot timer (spec §4.2 step 3, §4.5).
func (s *Scheduler) programTimer(next *Thread, now, endTime uint64) {
	d := infinityTicks
	if m := s.pending.Peek(); m != nil {
		if m.Deadline > endTime {
			d = m.Deadline - endTime
		} else {
			d = 0
		}
	}

	var tau uint64
	switch next.Type {
	case Periodic:
		pc, _ := next.Periodic()
		remaining := uint64(0)
		if pc.Slice > next.RunTime {
			remaining = pc.Slice - next.RunTime
		}
		tau = min64(d, remaining) + s.slack
	case Sporadic:
		spc, _ := next.SporadicC()
		remaining := uint64(0)
		if spc.Work > next.RunTime {
			remaining = spc.Work - next.RunTime
		}
		tau = min64(d, remaining) + s.slack
	default: // Aperiodic next, or idle
		tau = min64(d, s.quantum)
	}

	s.timing = TimingRecord{StartTime: now, EndTime: endTime, SetTime: tau}
	if s.timer != nil {
		s.timer.ProgramOneShot(s.cpu, tau)
	}
}
