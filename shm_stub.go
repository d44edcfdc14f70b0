//go:build !unix

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

import "errors"

// ErrPlatformUnsupported is returned on platforms without shared-memory
// segment support.
var ErrPlatformUnsupported = errors.New("shmring: shared memory segments not supported on this platform")

func createSegment(name string, recordSize uint64, requestedCapacity int) (*Segment, error) {
	return nil, &CreateError{Name: name, Err: ErrPlatformUnsupported}
}

func openSegment(name string, recordSize uint64) (*Segment, error) {
	return nil, &OpenError{Name: name, Err: ErrPlatformUnsupported}
}

func unmapMemory(data []byte) error {
	return nil
}
