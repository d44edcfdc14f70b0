//go:build unix

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
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// createSegment creates the named shared-memory object, sizes it for
// requestedCapacity+1 slots of recordSize bytes, maps it, and initializes
// the header in place. Creation is exclusive: an existing name fails.
func createSegment(name string, recordSize uint64, requestedCapacity int) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, &CreateError{Name: name, Err: err}
	}
	if requestedCapacity < 1 {
		return nil, &CreateError{Name: name, Err: ErrInvalidCapacity}
	}

	// One extra slot distinguishes full from empty without a count field.
	realCapacity := uint64(requestedCapacity) + 1

	totalSize, err := segmentSize(recordSize, realCapacity)
	if err != nil {
		return nil, &CreateError{Name: name, Err: err}
	}

	path := segmentPath(name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, &CreateError{Name: name, Err: err}
	}

	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	if err := file.Truncate(int64(totalSize)); err != nil {
		cleanup()
		return nil, &CreateError{Name: name, Err: fmt.Errorf("resize segment file: %w", err)}
	}

	mem, err := mmapFile(file, int(totalSize))
	if err != nil {
		cleanup()
		return nil, &CreateError{Name: name, Err: err}
	}

	seg := &Segment{
		File:       file,
		Mem:        mem,
		Path:       path,
		Name:       name,
		capacity:   realCapacity,
		recordSize: recordSize,
	}

	// Initialize the header in place. head and tail start equal (empty);
	// capacity and recordSize are immutable from here on. The name became
	// visible to other processes at OpenFile, so the magic goes in last:
	// until it lands, peers see the segment as not-yet-valid rather than
	// as a valid segment with garbage layout fields.
	hdr := seg.header()
	hdr.SetVersion(SegmentVersion)
	hdr.SetRecordSize(recordSize)
	hdr.SetCapacity(realCapacity)
	hdr.SetHead(0)
	hdr.SetTail(0)
	hdr.SetMagic(segmentMagicBytes())

	return seg, nil
}

// openSegment attaches to an existing named segment without specifying a
// size; the size is implied by the OS object. The creator-written header
// is validated, never re-initialized.
func openSegment(name string, recordSize uint64) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, &OpenError{Name: name, Err: err}
	}

	path := segmentPath(name)

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &OpenError{Name: name, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &OpenError{Name: name, Err: fmt.Errorf("stat segment file: %w", err)}
	}

	size := info.Size()
	if size < HeaderSize {
		file.Close()
		return nil, &OpenError{Name: name, Err: fmt.Errorf("%w: file is %d bytes", ErrLayoutMismatch, size)}
	}

	mem, err := mmapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, &OpenError{Name: name, Err: err}
	}

	hdr := (*Header)(unsafe.Pointer(&mem[0]))
	if err := validateHeader(hdr, recordSize, size); err != nil {
		unmapMemory(mem)
		file.Close()
		return nil, &OpenError{Name: name, Err: err}
	}

	return &Segment{
		File:       file,
		Mem:        mem,
		Path:       path,
		Name:       name,
		capacity:   hdr.Capacity(),
		recordSize: recordSize,
	}, nil
}

// mmapFile maps a file read-write and shared.
func mmapFile(file *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return data, nil
}

// unmapMemory unmaps a region returned by mmapFile.
func unmapMemory(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap failed: %w", err)
	}
	return nil
}
