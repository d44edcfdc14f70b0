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
	"sync/atomic"
	"unsafe"
)

// Memory layout constants
const (
	// Magic bytes identifying a shmring segment
	SegmentMagic = "SHMRING\x00"

	// Current layout version
	SegmentVersion = uint32(1)

	// Header size in bytes. The slot array starts at this offset, so the
	// offset of every slot is a multiple of the record size plus 128,
	// which satisfies natural alignment for any record type.
	HeaderSize = 128
)

// Header is the fixed-layout record at byte offset 0 of every segment.
// It is the single source of truth for occupancy; neither handle caches
// head or tail across operations.
//
// Index ownership is partitioned by role: the consumer is the only writer
// of head, the producer is the only writer of tail. Both indices are kept
// in the range [0, capacity) and advance modulo capacity. One slot is
// permanently reserved so that head == tail means empty and
// (tail+1) % capacity == head means full without a separate count field.
type Header struct {
	magic      [8]byte  // 0x00: "SHMRING\0"
	version    uint32   // 0x08: layout version
	flags      uint32   // 0x0C: reserved
	recordSize uint64   // 0x10: sizeof one record, fixed at create
	capacity   uint64   // 0x18: slot count including the sentinel slot
	head       uint64   // 0x20: next slot to consume (consumer-owned)
	tail       uint64   // 0x28: next slot to write (producer-owned)
	dataSeq    uint32   // 0x30: futex word, bumped on empty -> non-empty
	spaceSeq   uint32   // 0x34: futex word, bumped on full -> non-full
	reserved   [72]byte // 0x38-0x7F: padding to 128B
}

// The slot array starts at byte offset HeaderSize; the struct must fill
// the block exactly.
var _ [HeaderSize]byte = [unsafe.Sizeof(Header{})]byte{}

// Magic returns the magic bytes.
func (h *Header) Magic() [8]byte {
	return h.magic
}

// SetMagic sets the magic bytes.
func (h *Header) SetMagic(magic [8]byte) {
	h.magic = magic
}

// Version returns the layout version.
func (h *Header) Version() uint32 {
	return atomic.LoadUint32(&h.version)
}

// SetVersion sets the layout version.
func (h *Header) SetVersion(version uint32) {
	atomic.StoreUint32(&h.version, version)
}

// RecordSize returns the record size the segment was created for.
func (h *Header) RecordSize() uint64 {
	return atomic.LoadUint64(&h.recordSize)
}

// SetRecordSize sets the record size.
func (h *Header) SetRecordSize(size uint64) {
	atomic.StoreUint64(&h.recordSize, size)
}

// Capacity returns the slot count, including the sentinel slot.
// It is written once at create time and immutable afterwards.
func (h *Header) Capacity() uint64 {
	return atomic.LoadUint64(&h.capacity)
}

// SetCapacity sets the slot count.
func (h *Header) SetCapacity(capacity uint64) {
	atomic.StoreUint64(&h.capacity, capacity)
}

// Head returns the consumer index. When called from the producer this is
// the peer-index acquire read that makes every slot the consumer freed
// before publishing visible.
func (h *Header) Head() uint64 {
	return atomic.LoadUint64(&h.head)
}

// SetHead publishes a new consumer index. The store has release semantics:
// the slot read that preceded it is complete before the producer can
// observe the freed slot.
func (h *Header) SetHead(idx uint64) {
	atomic.StoreUint64(&h.head, idx)
}

// Tail returns the producer index. When called from the consumer this is
// the peer-index acquire read that makes every slot write the producer
// performed before publishing visible.
func (h *Header) Tail() uint64 {
	return atomic.LoadUint64(&h.tail)
}

// SetTail publishes a new producer index. The store has release semantics:
// the slot contents written before it are visible to any consumer that
// observes the new value.
func (h *Header) SetTail(idx uint64) {
	atomic.StoreUint64(&h.tail, idx)
}

// DataSequence returns the data-availability futex word.
func (h *Header) DataSequence() uint32 {
	return atomic.LoadUint32(&h.dataSeq)
}

// IncrementDataSequence bumps the data-availability futex word.
func (h *Header) IncrementDataSequence() uint32 {
	return atomic.AddUint32(&h.dataSeq, 1)
}

// SpaceSequence returns the space-availability futex word.
func (h *Header) SpaceSequence() uint32 {
	return atomic.LoadUint32(&h.spaceSeq)
}

// IncrementSpaceSequence bumps the space-availability futex word.
func (h *Header) IncrementSpaceSequence() uint32 {
	return atomic.AddUint32(&h.spaceSeq, 1)
}

// Used returns the number of occupied slots implied by the current indices.
// The value may be stale by the time the caller looks at it.
func (h *Header) Used() uint64 {
	head := atomic.LoadUint64(&h.head)
	tail := atomic.LoadUint64(&h.tail)
	capacity := atomic.LoadUint64(&h.capacity)
	if tail >= head {
		return tail - head
	}
	return capacity - head + tail
}

// IsEmpty reports whether the ring holds no records.
func (h *Header) IsEmpty() bool {
	return atomic.LoadUint64(&h.head) == atomic.LoadUint64(&h.tail)
}

// IsFull reports whether the ring cannot accept another record.
func (h *Header) IsFull() bool {
	head := atomic.LoadUint64(&h.head)
	tail := atomic.LoadUint64(&h.tail)
	capacity := atomic.LoadUint64(&h.capacity)
	return nextIndex(tail, capacity) == head
}
