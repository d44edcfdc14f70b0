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

// Package shmring implements a fixed-capacity, lock-free ring buffer of
// fixed-size records placed in a named OS shared-memory segment.
//
// One process acts as the producer and one as the consumer; once both are
// attached, records move between them without any syscalls on the data path.
// The consumer creates the segment with CreateConsumer and the producer
// attaches to it with OpenProducer. Push and Pop are non-blocking: callers
// that want to wait either poll with their own backoff or use the
// futex-backed PushContext/PopContext variants.
//
// The protocol is strictly single-producer/single-consumer. Mutation rights
// over the shared header are partitioned by role: only the producer advances
// the tail index and only the consumer advances the head index. Sharing a
// handle between concurrent writers (or concurrent readers) is a silent
// correctness violation, not a detected error.
package shmring
