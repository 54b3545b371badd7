// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit_PeriodicAtExactLimitSucceeds(t *testing.T) {
	s := newTestScheduler(t)
	existing := &Thread{Type: Periodic, Constraints: PeriodicConstraints{Period: 1000, Slice: 600}, index: -1}
	require.NoError(t, s.runnable.Enqueue(existing))

	candidate := NewThread(0, Periodic, PeriodicConstraints{Period: 1000, Slice: 50}, 0, nil)
	assert.True(t, s.Admit(candidate, 0), "600+50=650 contribution == 65000 scaled, exactly at the limit")
}

func TestAdmit_PeriodicOverLimitFails(t *testing.T) {
	s := newTestScheduler(t)
	existing := &Thread{Type: Periodic, Constraints: PeriodicConstraints{Period: 1000, Slice: 600}, index: -1}
	require.NoError(t, s.runnable.Enqueue(existing))

	candidate := NewThread(0, Periodic, PeriodicConstraints{Period: 1000, Slice: 51}, 0, nil)
	assert.False(t, s.Admit(candidate, 0))
}

func TestAdmit_SporadicUsesRunnableOnly(t *testing.T) {
	s := newTestScheduler(t)
	// A SPORADIC thread sitting in Pending must not count toward
	// sporadic utilization (spec §4.3: Runnable alone).
	parked := &Thread{Type: Sporadic, Constraints: SporadicConstraints{Work: 900}, Deadline: 1000, index: -1}
	require.NoError(t, s.pending.Enqueue(parked))

	candidate := NewThread(0, Sporadic, SporadicConstraints{Work: 180}, 1000, nil)
	assert.True(t, s.Admit(candidate, 0))
}

func TestAdmit_SporadicOverLimitFails(t *testing.T) {
	s := newTestScheduler(t)
	existing := &Thread{Type: Sporadic, Constraints: SporadicConstraints{Work: 100}, Deadline: 1000, index: -1}
	require.NoError(t, s.runnable.Enqueue(existing))

	candidate := NewThread(0, Sporadic, SporadicConstraints{Work: 100}, 1000, nil)
	assert.False(t, s.Admit(candidate, 0), "10000+10000=20000 exceeds the 18000 sporadic limit")
}

func TestAdmit_AperiodicAlwaysAdmitted(t *testing.T) {
	s := newTestScheduler(t)
	candidate := NewThread(0, Aperiodic, AperiodicConstraints{Priority: 99}, 0, nil)
	assert.True(t, s.Admit(candidate, 0))
}

func TestSimulateAdmission_FeasibleSchedule(t *testing.T) {
	s := newTestScheduler(t)
	candidate := NewThread(0, Periodic, PeriodicConstraints{Period: 1000, Slice: 100}, 0, nil)

	feasible, err := s.SimulateAdmission(candidate, 0, 5, 50)
	require.NoError(t, err)
	assert.True(t, feasible)
}

func TestSimulateAdmission_DetectsMiss(t *testing.T) {
	s := newTestScheduler(t)
	blocker := &Thread{ID: 1, Type: Periodic, Constraints: PeriodicConstraints{Period: 100, Slice: 90}, Deadline: 10, index: -1}
	require.NoError(t, s.runnable.Enqueue(blocker))

	candidate := NewThread(0, Sporadic, SporadicConstraints{Work: 50}, 5, nil)

	feasible, err := s.SimulateAdmission(candidate, 0, 3, 20)
	require.NoError(t, err)
	assert.False(t, feasible, "candidate's 5-tick relative deadline cannot survive a 20-tick simulation step")
}

func TestSnapshot_IsIndependentOfLiveContainers(t *testing.T) {
	s := newTestScheduler(t)
	live := &Thread{ID: 1, Type: Periodic, Constraints: PeriodicConstraints{Period: 1000, Slice: 100}, Deadline: 500, index: -1}
	require.NoError(t, s.runnable.Enqueue(live))

	sim := s.Snapshot()
	popped, err := sim.Runnable.Dequeue()
	require.NoError(t, err)
	assert.EqualValues(t, 1, popped.ID)

	// The live container must be untouched by the snapshot's mutation.
	assert.Equal(t, 1, s.runnable.Len())
}
