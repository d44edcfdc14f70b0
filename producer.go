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
	"errors"
	"io/fs"
	"time"
	"unsafe"
)

// Producer is the writing view over a segment. Exactly one Producer may
// operate on a segment at a time; it is the sole writer of the tail index
// and of slot contents at the tail position.
//
// The record type T must be a fixed-size value type without Go pointers:
// its bytes are copied verbatim across process boundaries.
type Producer[T any] struct {
	seg *Segment
}

// OpenProducer attaches to an existing named segment as the producer.
// It fails with *OpenError if the name does not exist, the OS denies
// attachment, or the segment was created for a different record size.
// Opening before the consumer has created the segment is a caller race;
// use OpenProducerWait when that race is possible.
func OpenProducer[T any](name string) (*Producer[T], error) {
	var zero T
	seg, err := openSegment(name, uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return &Producer[T]{seg: seg}, nil
}

// OpenProducerWait retries OpenProducer until it succeeds or timeout
// elapses. This implements the documented open-before-create pattern for
// producers racing the segment creator; the retry lives here, in the
// attach path, never inside Push.
func OpenProducerWait[T any](name string, timeout time.Duration) (*Producer[T], error) {
	deadline := time.Now().Add(timeout)
	for {
		p, err := OpenProducer[T](name)
		if err == nil {
			return p, nil
		}
		// "Name not found" means the creator has not started yet. Bad
		// magic and layout errors also cover a creator mid-initialization:
		// the name appears at OpenFile time but the header (magic last)
		// and the file size land shortly after. Anything else, a version
		// or record-size mismatch in particular, will not repair itself.
		if !errors.Is(err, fs.ErrNotExist) &&
			!errors.Is(err, ErrBadMagic) &&
			!errors.Is(err, ErrLayoutMismatch) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(openRetryInterval)
	}
}

// openRetryInterval is the delay between attach attempts in OpenProducerWait.
const openRetryInterval = 10 * time.Millisecond

// Push attempts to enqueue one record. It returns false, leaving the ring
// untouched, when the buffer is full. It never blocks and never retries.
//
// Algorithm: load the own tail index and the peer head index, reject if
// advancing tail would collide with head (the sentinel slot stays empty),
// otherwise write the record into slot tail with a plain store and then
// publish the new tail. The publish is the release store that makes the
// slot contents visible to the consumer together with the index.
func (p *Producer[T]) Push(v T) bool {
	hdr := p.seg.header()

	tail := hdr.Tail() // own index
	head := hdr.Head() // peer index (acquire)

	next := nextIndex(tail, p.seg.capacity)
	if next == head {
		return false // full
	}

	// Plain, non-atomic write. Safe: the consumer cannot read slot tail
	// until the new tail value is published below.
	*(*T)(p.seg.slot(tail)) = v

	hdr.SetTail(next)

	// Wake a sleeping consumer only on the empty -> non-empty transition
	// so the steady-state data path stays free of syscalls.
	if tail == head {
		hdr.IncrementDataSequence()
		futexWake(&hdr.dataSeq, 1)
	}
	return true
}

// PushContext enqueues one record, sleeping on the segment's space futex
// while the ring is full. It returns ctx.Err() if the context is cancelled
// or its deadline passes first. The non-blocking contract of Push is
// unchanged; this is a convenience for callers that would otherwise poll.
func (p *Producer[T]) PushContext(ctx context.Context, v T) error {
	hdr := p.seg.header()

	for {
		if p.Push(v) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Snapshot the sequence before re-checking fullness; a wake that
		// lands between the snapshot and the wait is not lost because
		// futexWaitTimeout re-checks the word before sleeping.
		seq := hdr.SpaceSequence()
		if !hdr.IsFull() {
			continue
		}

		if err := waitSeq(ctx, &hdr.spaceSeq, seq); err != nil {
			return err
		}
	}
}

// Len returns the number of records currently buffered. The value may be
// stale by the time the caller acts on it.
func (p *Producer[T]) Len() int {
	return int(p.seg.header().Used())
}

// Cap returns the usable capacity: the number of records the ring holds
// when full. The sentinel slot is excluded.
func (p *Producer[T]) Cap() int {
	return int(p.seg.capacity - 1)
}

// State returns a diagnostic snapshot of the shared header.
func (p *Producer[T]) State() State {
	return stateOf(p.seg)
}

// Close releases the producer's process-local attachment. The segment
// itself stays alive for the consumer. The Producer must not be used
// after Close.
func (p *Producer[T]) Close() error {
	return p.seg.Close()
}
