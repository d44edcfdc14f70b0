/*
 * Copyright 2025 The shmring Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shmring

import (
	"context"
	"unsafe"
)

// Consumer is the reading view over a segment. Exactly one Consumer may
// operate on a segment at a time; it is the sole writer of the head index.
// The consumer role is also the segment creator by convention, which
// pins down who initializes the header.
type Consumer[T any] struct {
	seg *Segment
}

// CreateConsumer creates a new named segment sized for capacity records
// and attaches to it as the consumer. One extra sentinel slot is allocated
// beyond the requested capacity, so the ring accepts exactly capacity
// pushes before reporting full. It fails with *CreateError if the name
// already exists, the OS denies the allocation, or the size would
// overflow.
func CreateConsumer[T any](name string, capacity int) (*Consumer[T], error) {
	var zero T
	seg, err := createSegment(name, uint64(unsafe.Sizeof(zero)), capacity)
	if err != nil {
		return nil, err
	}
	return &Consumer[T]{seg: seg}, nil
}

// Pop attempts to dequeue the oldest record. It returns the zero value and
// false when the buffer is empty. It never blocks and never retries.
//
// Algorithm: load the own head index and the peer tail index, report empty
// if they are equal, otherwise read slot head with a plain load and then
// publish the new head. The publish is the release store that hands the
// slot back to the producer for reuse.
func (c *Consumer[T]) Pop() (T, bool) {
	hdr := c.seg.header()

	head := hdr.Head() // own index
	tail := hdr.Tail() // peer index (acquire)

	if head == tail {
		var zero T
		return zero, false // empty
	}

	// Plain, non-atomic read. Safe: the producer cannot reuse slot head
	// until the new head value is published below.
	v := *(*T)(c.seg.slot(head))

	hdr.SetHead(nextIndex(head, c.seg.capacity))

	// Wake a sleeping producer only on the full -> non-full transition so
	// the steady-state data path stays free of syscalls.
	if nextIndex(tail, c.seg.capacity) == head {
		hdr.IncrementSpaceSequence()
		futexWake(&hdr.spaceSeq, 1)
	}
	return v, true
}

// PopContext dequeues one record, sleeping on the segment's data futex
// while the ring is empty. It returns ctx.Err() if the context is
// cancelled or its deadline passes first.
func (c *Consumer[T]) PopContext(ctx context.Context) (T, error) {
	hdr := c.seg.header()

	for {
		if v, ok := c.Pop(); ok {
			return v, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		default:
		}

		seq := hdr.DataSequence()
		if !hdr.IsEmpty() {
			continue
		}

		if err := waitSeq(ctx, &hdr.dataSeq, seq); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Len returns the number of records currently buffered. The value may be
// stale by the time the caller acts on it.
func (c *Consumer[T]) Len() int {
	return int(c.seg.header().Used())
}

// Cap returns the usable capacity, excluding the sentinel slot.
func (c *Consumer[T]) Cap() int {
	return int(c.seg.capacity - 1)
}

// State returns a diagnostic snapshot of the shared header.
func (c *Consumer[T]) State() State {
	return stateOf(c.seg)
}

// Close releases the consumer's process-local attachment. It does not
// remove the named segment; call Remove for that once the producer side is
// done. The Consumer must not be used after Close.
func (c *Consumer[T]) Close() error {
	return c.seg.Close()
}
