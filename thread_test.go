// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThread_PeriodicDeadline(t *testing.T) {
	th := NewThread(1000, Periodic, PeriodicConstraints{Period: 500, Slice: 50}, 0, nil)
	assert.Equal(t, Arrived, th.Status)
	assert.EqualValues(t, 1500, th.Deadline)
}

func TestNewThread_SporadicDeadline(t *testing.T) {
	th := NewThread(1000, Sporadic, SporadicConstraints{Work: 20}, 300, nil)
	assert.EqualValues(t, 1300, th.Deadline)
}

func TestNewThread_AperiodicDeadlineUnused(t *testing.T) {
	th := NewThread(1000, Aperiodic, AperiodicConstraints{Priority: 5}, 0, nil)
	assert.EqualValues(t, 0, th.Deadline)
}

func TestNewThread_UniqueIDs(t *testing.T) {
	a := NewThread(0, Aperiodic, AperiodicConstraints{Priority: 1}, 0, nil)
	b := NewThread(0, Aperiodic, AperiodicConstraints{Priority: 1}, 0, nil)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestThread_CloneIsIndependent(t *testing.T) {
	original := NewThread(0, Periodic, PeriodicConstraints{Period: 100, Slice: 10}, 0, nil)
	original.RunTime = 5

	clone := original.clone()
	clone.RunTime = 99
	clone.Constraints = PeriodicConstraints{Period: 1, Slice: 1}

	assert.EqualValues(t, 5, original.RunTime)
	pc, ok := original.Periodic()
	assert.True(t, ok)
	assert.EqualValues(t, 100, pc.Period)
}
