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
	"time"
)

// State is a snapshot of a segment's shared header for debugging and
// diagnostics. The fields are read one by one, so a snapshot taken while
// the peer is active may mix values from adjacent operations.
type State struct {
	Capacity   uint64 // usable slots (sentinel excluded)
	RecordSize uint64 // bytes per record
	Head       uint64 // next slot to consume
	Tail       uint64 // next slot to write
	Used       uint64 // records currently buffered
	DataSeq    uint32 // empty -> non-empty wake sequence
	SpaceSeq   uint32 // full -> non-full wake sequence
}

func stateOf(seg *Segment) State {
	hdr := seg.header()
	return State{
		Capacity:   seg.capacity - 1,
		RecordSize: seg.recordSize,
		Head:       hdr.Head(),
		Tail:       hdr.Tail(),
		Used:       hdr.Used(),
		DataSeq:    hdr.DataSequence(),
		SpaceSeq:   hdr.SpaceSequence(),
	}
}

// waitPollInterval bounds a single futex wait so that context cancellation
// without a deadline is still noticed promptly.
const waitPollInterval = 100 * time.Millisecond

// waitSeq sleeps on a futex word until it moves past seq, the context
// deadline passes, or one poll interval elapses. A timed-out wait is not
// an error: the caller loops and re-checks its condition.
func waitSeq(ctx context.Context, addr *uint32, seq uint32) error {
	timeout := waitPollInterval
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	err := futexWaitTimeout(addr, seq, timeout.Nanoseconds())
	if err != nil && !errors.Is(err, ErrFutexTimeout) {
		return err
	}
	return nil
}
