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
	"errors"
	"fmt"
)

// Sentinel errors describing why a create or open call failed. They are
// always wrapped in a *CreateError or *OpenError, so match them with
// errors.Is.
var (
	// ErrInvalidName indicates a segment name that is empty or contains
	// path separators. Names are spliced into a file path under the
	// segment directory and must not be able to escape it.
	ErrInvalidName = errors.New("shmring: invalid segment name")

	// ErrInvalidCapacity indicates a requested capacity < 1.
	ErrInvalidCapacity = errors.New("shmring: capacity must be at least 1")

	// ErrInvalidRecordSize indicates a zero-sized record type.
	ErrInvalidRecordSize = errors.New("shmring: record size must be non-zero")

	// ErrSizeOverflow indicates the computed segment size overflows the
	// address space.
	ErrSizeOverflow = errors.New("shmring: segment size overflows address space")

	// ErrBadMagic indicates the named object is not a shmring segment.
	ErrBadMagic = errors.New("shmring: bad segment magic")

	// ErrBadVersion indicates a segment written by an incompatible version.
	ErrBadVersion = errors.New("shmring: unsupported segment version")

	// ErrRecordSizeMismatch indicates the segment was created for a record
	// type of a different size.
	ErrRecordSizeMismatch = errors.New("shmring: record size mismatch")

	// ErrLayoutMismatch indicates the segment size does not match the
	// layout implied by its header.
	ErrLayoutMismatch = errors.New("shmring: segment layout mismatch")

	// ErrFutexTimeout is returned by futexWaitTimeout when the wait
	// times out.
	ErrFutexTimeout = errors.New("shmring: futex timeout")
)

// CreateError is returned by CreateConsumer when the segment cannot be
// created: the name already exists, the OS denies the allocation, or the
// requested layout is invalid. It is fatal to the call and never retried
// internally.
type CreateError struct {
	Name string // segment name passed by the caller
	Err  error  // underlying cause
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("shmring: create segment %q: %v", e.Name, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// OpenError is returned by OpenProducer when the segment cannot be
// attached: the name does not exist, the OS denies attachment, or the
// header fails validation. Callers racing the creator are expected to
// retry after a delay (see OpenProducerWait).
type OpenError struct {
	Name string // segment name passed by the caller
	Err  error  // underlying cause
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("shmring: open segment %q: %v", e.Name, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }
