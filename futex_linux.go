//go:build linux

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
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex operation constants. The futex words live in shared memory,
// so the waits and wakes must cross process boundaries: plain FUTEX_WAIT
// and FUTEX_WAKE, not the _PRIVATE forms.
const (
	FUTEX_WAIT = 0
	FUTEX_WAKE = 1
)

// futexWaitTimeout waits until the value at addr is no longer val, another
// process calls futexWake on the same address, the call is interrupted, or
// timeoutNs nanoseconds elapse (timeoutNs <= 0 waits without a timeout).
// A timed-out wait returns ErrFutexTimeout. Callers must re-check their
// logical condition after it returns: wakeups can be spurious.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	// Re-check atomically before entering the syscall. This closes the
	// lost-wake race where the peer bumps the sequence between our
	// snapshot and the futex entry.
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	var errno syscall.Errno
	if timeoutNs > 0 {
		ts := unix.NsecToTimespec(timeoutNs)
		_, _, errno = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			FUTEX_WAIT,
			uintptr(val),
			uintptr(unsafe.Pointer(&ts)),
			0,
			0,
		)
	} else {
		_, _, errno = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			FUTEX_WAIT,
			uintptr(val),
			0, // timeout: infinite
			0,
			0,
		)
	}

	if errno != 0 {
		// EAGAIN: value changed before we slept. EINTR: signal. Neither
		// is an error for the caller; it re-checks the condition anyway.
		if errno == unix.EAGAIN || errno == unix.EINTR {
			return nil
		}
		if errno == unix.ETIMEDOUT {
			return ErrFutexTimeout
		}
		return fmt.Errorf("futex wait failed: %w", errno)
	}
	return nil
}

// futexWake wakes up to n waiters on addr, returning how many were woken.
func futexWake(addr *uint32, n int) (int, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		FUTEX_WAKE,
		uintptr(n),
		0,
		0,
		0,
	)

	if errno != 0 {
		return 0, fmt.Errorf("futex wake failed: %w", errno)
	}
	return int(r1), nil
}
