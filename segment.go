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
	"math"
	"os"
	"path/filepath"
	"strings"
	"unsafe"
)

// Segment is a mapped shared-memory segment holding one ring buffer:
// a Header at offset 0 followed by capacity contiguous fixed-size slots.
//
// A Segment owns its process-local attachment only. Closing it unmaps the
// region and drops the file descriptor; the named OS object stays visible
// to other processes until removed.
type Segment struct {
	File *os.File // file descriptor backing the mapping
	Mem  []byte   // the mmapped region
	Path string   // backing file path
	Name string   // caller-supplied segment name

	// Immutable layout, cached at attach time. The header stays the
	// single source of truth for head and tail; only values that never
	// change after create are cached here.
	capacity   uint64
	recordSize uint64
}

// header returns the Header view at offset 0 of the mapping.
// No Go pointers into shared memory are stored on the Segment; addresses
// are computed on demand from the mapping.
func (s *Segment) header() *Header {
	return (*Header)(unsafe.Pointer(&s.Mem[0]))
}

// slot returns the address of slot i. Valid only for i < capacity.
// The bytes behind this pointer are shared mutable state; the index
// protocol is the only thing that keeps producer and consumer from
// touching the same slot concurrently.
func (s *Segment) slot(i uint64) unsafe.Pointer {
	return unsafe.Pointer(&s.Mem[HeaderSize+i*s.recordSize])
}

// Capacity returns the slot count including the sentinel slot.
func (s *Segment) Capacity() uint64 {
	return s.capacity
}

// Close releases the process-local attachment: it unmaps the memory and
// closes the backing file. It does not remove the named OS object and
// requires no coordination with the peer process. The Segment must not be
// used after Close.
func (s *Segment) Close() error {
	var firstErr error

	if s.Mem != nil {
		if err := unmapMemory(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
	}

	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}

	return firstErr
}

// nextIndex advances a ring index by one slot, wrapping modulo capacity.
// Both indices always stay in [0, capacity).
func nextIndex(i, capacity uint64) uint64 {
	i++
	if i == capacity {
		return 0
	}
	return i
}

// segmentSize computes the total byte size of a segment holding capacity
// slots of recordSize bytes. capacity already includes the sentinel slot.
func segmentSize(recordSize, capacity uint64) (uint64, error) {
	if recordSize == 0 {
		return 0, ErrInvalidRecordSize
	}
	if capacity > (math.MaxInt64-HeaderSize)/recordSize {
		return 0, ErrSizeOverflow
	}
	return HeaderSize + capacity*recordSize, nil
}

// validateHeader checks a freshly mapped header against the layout the
// caller expects. Opening trusts the creator-written values, so every
// mismatch fails fast here instead of silently corrupting data later.
func validateHeader(h *Header, recordSize uint64, fileSize int64) error {
	if h.Magic() != segmentMagicBytes() {
		return ErrBadMagic
	}
	if h.Version() != SegmentVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrBadVersion, h.Version(), SegmentVersion)
	}
	if h.RecordSize() != recordSize {
		return fmt.Errorf("%w: segment records are %d bytes, caller records are %d bytes",
			ErrRecordSizeMismatch, h.RecordSize(), recordSize)
	}
	// capacity includes the sentinel, so a usable ring needs at least 2.
	if h.Capacity() < 2 {
		return fmt.Errorf("%w: capacity %d", ErrLayoutMismatch, h.Capacity())
	}
	expected, err := segmentSize(h.RecordSize(), h.Capacity())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLayoutMismatch, err)
	}
	if uint64(fileSize) != expected {
		return fmt.Errorf("%w: file is %d bytes, header implies %d",
			ErrLayoutMismatch, fileSize, expected)
	}
	return nil
}

// segmentMagicBytes returns SegmentMagic as a byte array for comparison.
func segmentMagicBytes() [8]byte {
	var m [8]byte
	copy(m[:], SegmentMagic)
	return m
}

// checkName rejects segment names that would escape the segment directory
// when spliced into the backing file path.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// segmentPath returns the backing file path for a segment name.
// /dev/shm is preferred on Linux; elsewhere the temp dir is used.
func segmentPath(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", "shmring_"+name)
	}
	return filepath.Join(os.TempDir(), "shmring_"+name)
}

// Remove unlinks the backing object of a named segment. Attached processes
// keep their mappings; the name becomes available for reuse.
func Remove(name string) error {
	paths := []string{
		filepath.Join("/dev/shm", "shmring_"+name),
		filepath.Join(os.TempDir(), "shmring_"+name),
	}

	var lastErr error
	for _, path := range paths {
		if err := os.Remove(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return os.ErrNotExist
}

// Exists reports whether a named segment currently exists.
func Exists(name string) bool {
	paths := []string{
		filepath.Join("/dev/shm", "shmring_"+name),
		filepath.Join(os.TempDir(), "shmring_"+name),
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}
