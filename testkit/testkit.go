// Package testkit provides deterministic clocks, ids, fake AWS clients and
// CDK synthesis helpers for docsite tests.
package testkit

import (
	"strconv"
	"sync"
	"time"
)

// StepClock returns start on its first read and moves forward by step on
// every read after that, so a sync that reads the clock twice reports a
// duration of exactly step.
type StepClock struct {
	mu    sync.Mutex
	next  time.Time
	step  time.Duration
	reads int
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{next: start, step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	c.reads++
	return now
}

// Reads is the number of Now calls so far.
func (c *StepClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// CallerRefs hands out invalidation caller references: pinned values first,
// then <prefix>-1, <prefix>-2, ...
type CallerRefs struct {
	mu     sync.Mutex
	Prefix string
	pinned []string
	issued []string
}

func NewCallerRefs(prefix string) *CallerRefs {
	return &CallerRefs{Prefix: prefix}
}

// Pin queues refs to be returned before the generated sequence.
func (r *CallerRefs) Pin(refs ...string) *CallerRefs {
	r.mu.Lock()
	r.pinned = append(r.pinned, refs...)
	r.mu.Unlock()
	return r
}

func (r *CallerRefs) NewID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ref string
	if len(r.pinned) > 0 {
		ref, r.pinned = r.pinned[0], r.pinned[1:]
	} else {
		ref = r.Prefix + "-" + strconv.Itoa(len(r.issued)+1)
	}
	r.issued = append(r.issued, ref)
	return ref
}

// Issued returns every ref handed out, in order.
func (r *CallerRefs) Issued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.issued...)
}
