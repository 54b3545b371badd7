// Copyright (c) 2019,CAO HONGJU. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"fmt"
	"sync"
)

// Registry owns one Scheduler slot per CPU id (spec §5 "one scheduler
// instance PER CPU"; §9 design note "Per-CPU state: Model as an array
// indexed by CPU id; ownership is exclusive per index. No global
// mutable state beyond this array."). It generalizes the teacher's
// global.go single-default-instance idiom from "one package-level
// instance" to "one instance per CPU index"; unlike global.go it does
// not install an OS signal handler (see DESIGN.md) since a per-CPU
// scheduler core has no process boundary of its own.
//
// Registration itself is not part of the per-CPU hot path (it happens
// once at boot per CPU), so guarding it with a mutex does not violate
// the "no locks between scheduler operations on a single CPU" rule in
// spec §5 — NeedResched/Admit/Enqueue/Dequeue/Remove never touch this
// mutex.
type Registry struct {
	mu    sync.RWMutex
	byCPU map[int]*Scheduler
}

// NewRegistry creates an empty per-CPU registry.
func NewRegistry() *Registry {
	return &Registry{byCPU: make(map[int]*Scheduler)}
}

// Register assigns s as the owning scheduler for cpu. It fails if cpu
// already has an owner — per-CPU state is exclusive (spec §5).
func (r *Registry) Register(cpu int, s *Scheduler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCPU[cpu]; exists {
		return fmt.Errorf("scheduler: cpu %d already has a registered scheduler", cpu)
	}
	r.byCPU[cpu] = s
	return nil
}

// CPUScheduler looks up the Scheduler instance owning cpu (spec §6
// "cpu_scheduler(cpu)").
func (r *Registry) CPUScheduler(cpu int) (*Scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCPU[cpu]
	return s, ok
}

// CPUs returns the ids of every currently registered CPU.
func (r *Registry) CPUs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.byCPU))
	for id := range r.byCPU {
		ids = append(ids, id)
	}
	return ids
}
