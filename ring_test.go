// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArrivalRing(capacity int) *Ring {
	arrived := Arrived
	return newRing(ArrivalQueue, capacity, &arrived, false, defaultLog)
}

func TestRing_EnqueueSetsContainerTagAndStatus(t *testing.T) {
	r := newArrivalRing(4)
	th := &Thread{}
	require.NoError(t, r.Enqueue(th))
	assert.Equal(t, ArrivalQueue, th.ContainerTag)
	assert.Equal(t, Arrived, th.Status)
}

func TestRing_FIFOOrder(t *testing.T) {
	r := newArrivalRing(4)
	a, b, c := &Thread{ID: 1}, &Thread{ID: 2}, &Thread{ID: 3}
	require.NoError(t, r.Enqueue(a))
	require.NoError(t, r.Enqueue(b))
	require.NoError(t, r.Enqueue(c))

	got, err := r.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)
}

func TestRing_SizeMatchesModCapacity(t *testing.T) {
	r := newArrivalRing(3)
	require.NoError(t, r.Enqueue(&Thread{ID: 1}))
	require.NoError(t, r.Enqueue(&Thread{ID: 2}))
	assert.Equal(t, 2, r.Len())

	_, err := r.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRing_EnqueueOverflow(t *testing.T) {
	r := newArrivalRing(1)
	require.NoError(t, r.Enqueue(&Thread{ID: 1}))
	err := r.Enqueue(&Thread{ID: 2})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRing_DequeueEmpty(t *testing.T) {
	r := newArrivalRing(1)
	_, err := r.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRing_TombstoneSkippedOnDequeue(t *testing.T) {
	r := newArrivalRing(4)
	dead := &Thread{ID: 1}
	require.NoError(t, r.Enqueue(dead))
	dead.Status = ToBeRemoved
	alive := &Thread{ID: 2}
	require.NoError(t, r.Enqueue(alive))

	got, err := r.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID)
	assert.Equal(t, Removed, dead.Status)
}

func TestRing_RemoveShiftsSubsequentElements(t *testing.T) {
	r := newArrivalRing(4)
	a, b, c := &Thread{ID: 1}, &Thread{ID: 2}, &Thread{ID: 3}
	require.NoError(t, r.Enqueue(a))
	require.NoError(t, r.Enqueue(b))
	require.NoError(t, r.Enqueue(c))

	got, err := r.Remove(b)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, 2, r.Len())

	first, err := r.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.ID)
	second, err := r.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), second.ID)
}

func TestRing_RemoveNotFound(t *testing.T) {
	r := newArrivalRing(4)
	require.NoError(t, r.Enqueue(&Thread{ID: 1}))
	_, err := r.Remove(&Thread{ID: 99})
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestRing_ExitedIsTombstoneExempt(t *testing.T) {
	exited := newRing(ExitedQueue, 4, nil, true, defaultLog)
	th := &Thread{ID: 1, Status: ToBeRemoved}
	require.NoError(t, exited.Enqueue(th))

	got, err := exited.Dequeue()
	require.NoError(t, err)
	assert.Same(t, th, got)
	assert.Equal(t, ToBeRemoved, got.Status, "Exited must hand back the tombstoned thread itself, not silently finalise it")
}
