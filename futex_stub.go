//go:build !linux

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
	"runtime"
	"sync/atomic"
	"time"
)

// Without futexes the blocking variants degrade to yield-and-retry polling.
// The non-blocking Push/Pop data path is unaffected.

func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	if timeoutNs > 0 {
		time.Sleep(time.Duration(min(timeoutNs, int64(time.Millisecond))))
		return nil
	}
	runtime.Gosched()
	return nil
}

func futexWake(addr *uint32, n int) (int, error) {
	return 0, nil
}
