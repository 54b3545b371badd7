// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

// Ring is a fixed-capacity FIFO container used for the Arrival,
// Waiting, Sleeping and Exited containers (spec §3 "Containers", §4.1
// "Ring operations"). head/tail/size model a circular buffer; capacity
// is fixed at construction.
type Ring struct {
	tag           ContainerTag
	setsOnEnqueue *Status // nil for containers whose tag has no matching Status (Exited)
	// tombstoneExempt disables the lazy tombstone-skip on pop. Only the
	// Exited ring sets this: every member it holds was just tombstoned
	// on purpose by ThreadExit, so skipping it on sight would make
	// housekeeping's drain loop (spec §4.4 step 2) unable to ever
	// observe and finalise the entries it exists to process.
	tombstoneExempt bool
	log             LogFunc

	items      []*Thread
	head, tail int
	size       int
	capacity   int
}

func newRing(tag ContainerTag, capacity int, setsOnEnqueue *Status, tombstoneExempt bool, log LogFunc) *Ring {
	return &Ring{
		tag:             tag,
		setsOnEnqueue:   setsOnEnqueue,
		tombstoneExempt: tombstoneExempt,
		log:             log,
		items:           make([]*Thread, capacity),
		capacity:        capacity,
	}
}

// Len reports the ring's size, which equals (tail-head) mod capacity
// whenever the ring is not full (testable property 5 in spec §8); a full
// ring has tail == head and reports capacity.
func (r *Ring) Len() int { return r.size }

// Enqueue appends t at the tail, wrapping modulo capacity. It sets t's
// ContainerTag to this container's tag and, for Arrival/Waiting/
// Sleeping, its Status to match (spec §4.1).
func (r *Ring) Enqueue(t *Thread) error {
	if r.size >= r.capacity {
		r.log("queue full: tag=%s thread=%d", r.tag, t.ID)
		return ErrQueueFull
	}
	t.ContainerTag = r.tag
	if r.setsOnEnqueue != nil {
		t.Status = *r.setsOnEnqueue
	}
	r.items[r.tail] = t
	r.tail = (r.tail + 1) % r.capacity
	r.size++
	return nil
}

// Dequeue pops from the head, skipping and finalising tombstoned
// entries transparently (spec §4.1).
func (r *Ring) Dequeue() (*Thread, error) {
	for r.size > 0 {
		t := r.items[r.head]
		r.items[r.head] = nil
		r.head = (r.head + 1) % r.capacity
		r.size--
		if !r.tombstoneExempt && t.Status == ToBeRemoved {
			t.Status = Removed
			continue
		}
		return t, nil
	}
	r.log("queue empty: tag=%s", r.tag)
	return nil, ErrQueueEmpty
}

// Remove scans linearly from head to tail for t, shifting subsequent
// elements back by one to close the gap (spec §4.1). Tombstoned entries
// encountered along the way are finalised and removed too.
func (r *Ring) Remove(t *Thread) (*Thread, error) {
	found := false
	var out *Thread
	kept := make([]*Thread, 0, r.size)

	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.capacity
		cand := r.items[idx]
		switch {
		case !r.tombstoneExempt && cand.Status == ToBeRemoved:
			cand.Status = Removed
		case cand == t:
			found = true
			out = cand
		default:
			kept = append(kept, cand)
		}
	}

	r.rebuild(kept)

	if !found {
		r.log("thread not found: tag=%s thread=%d", r.tag, t.ID)
		return nil, ErrThreadNotFound
	}
	return out, nil
}

func (r *Ring) rebuild(kept []*Thread) {
	for i := range r.items {
		r.items[i] = nil
	}
	r.head = 0
	r.size = len(kept)
	copy(r.items, kept)
	r.tail = r.size % r.capacity
}
