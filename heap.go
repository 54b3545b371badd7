// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "container/heap"

// keyFunc extracts the ordering key a threadHeap is sorted on. Runnable
// and Pending key on Deadline; Aperiodic keys on Constraints.Priority
// (spec §3 "Containers").
type keyFunc func(*Thread) int64

func deadlineKey(t *Thread) int64 { return int64(t.Deadline) }

func priorityKey(t *Thread) int64 {
	c, _ := t.AperiodicC()
	return c.Priority
}

// threadSlice is the container/heap.Interface implementation backing a
// threadHeap. It is generalized over a single key selector instead of
// the three copy-pasted priority queues the design notes (spec §9
// "Container type-dispatch") call out as the re-architecture target.
type threadSlice struct {
	items []*Thread
	key   keyFunc
}

func (s *threadSlice) Len() int { return len(s.items) }

func (s *threadSlice) Less(i, j int) bool {
	return s.key(s.items[i]) < s.key(s.items[j])
}

func (s *threadSlice) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.items[i].index = i
	s.items[j].index = j
}

func (s *threadSlice) Push(x interface{}) {
	t := x.(*Thread)
	t.index = len(s.items)
	s.items = append(s.items, t)
}

func (s *threadSlice) Pop() interface{} {
	old := s.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	s.items = old[0 : n-1]
	return t
}

// Heap is a fixed-capacity binary min-heap container (spec §4.1). It is
// used for the Runnable, Pending and Aperiodic containers; the tag
// identifies which one for invariant-checking and logging purposes.
type Heap struct {
	tag      ContainerTag
	capacity int
	log      LogFunc
	s        threadSlice
}

func newHeap(tag ContainerTag, capacity int, key keyFunc, log LogFunc) *Heap {
	return &Heap{
		tag:      tag,
		capacity: capacity,
		log:      log,
		s:        threadSlice{items: make([]*Thread, 0, capacity), key: key},
	}
}

// Len reports the number of threads currently stored, tombstoned ones
// included; tombstoned entries are only purged lazily, at pop time, so Len
// may over-count live threads until the next Dequeue/Remove observes them.
func (h *Heap) Len() int { return h.s.Len() }

// Peek returns the current root without removing it, or nil if empty.
func (h *Heap) Peek() *Thread {
	if h.s.Len() == 0 {
		return nil
	}
	return h.s.items[0]
}

// Enqueue inserts t, sifting up by the heap's key. It sets t's
// ContainerTag to match this container (spec §4.1: "Every enqueue sets
// the thread's container_tag ... to match the destination").
func (h *Heap) Enqueue(t *Thread) error {
	if h.s.Len() >= h.capacity {
		h.log("queue full: tag=%s thread=%d", h.tag, t.ID)
		return ErrQueueFull
	}
	t.ContainerTag = h.tag
	heap.Push(&h.s, t)
	return nil
}

// Dequeue pops the minimum-key element, transparently skipping and
// finalising any tombstoned (ToBeRemoved) thread encountered along the
// way (spec §4.1 "tombstone handling").
func (h *Heap) Dequeue() (*Thread, error) {
	for h.s.Len() > 0 {
		t := heap.Pop(&h.s).(*Thread)
		if t.Status == ToBeRemoved {
			t.Status = Removed
			continue
		}
		return t, nil
	}
	h.log("queue empty: tag=%s", h.tag)
	return nil, ErrQueueEmpty
}

// Remove extracts a specific not-yet-dequeued thread by identity via a
// linear scan, then sifts down from its position (spec §4.1). Like
// Dequeue, it finalises any tombstone it encounters on the way, so a
// single Remove call may purge more than just its target.
func (h *Heap) Remove(t *Thread) (*Thread, error) {
	for i := 0; i < h.s.Len(); i++ {
		cand := h.s.items[i]
		if cand.Status == ToBeRemoved {
			cand.Status = Removed
			heap.Remove(&h.s, i)
			// heap.Remove may sift the former last element up to an
			// index already scanned, so restart the scan from the root.
			i = -1
			continue
		}
		if cand == t {
			heap.Remove(&h.s, i)
			return t, nil
		}
	}
	h.log("thread not found: tag=%s thread=%d", h.tag, t.ID)
	return nil, ErrThreadNotFound
}

// UpdateKey re-seats t after a mutation to the field the heap's key
// selector reads (e.g. Deadline changing on re-release), restoring the
// min-heap property without a full pop/push.
func (h *Heap) UpdateKey(t *Thread) {
	if t.index >= 0 && t.index < h.s.Len() {
		heap.Fix(&h.s, t.index)
	}
}

// snapshot clones every live member for use by the admission simulator
// (spec §4.3 "Simulator duplication"): independent Thread values, same
// key selector, sharing no mutable state with the live heap.
func (h *Heap) snapshot() *Heap {
	clone := newHeap(h.tag, h.capacity, h.s.key, h.log)
	for _, t := range h.s.items {
		if t.Status == ToBeRemoved {
			continue
		}
		heap.Push(&clone.s, t.clone())
	}
	return clone
}
