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
	"strings"
	"testing"
	"time"
)

// testSegName returns a unique segment name for a test and ensures any
// stale object from a previous run is gone. Subtest names contain "/",
// which segment names reject, so separators are flattened.
func testSegName(t *testing.T) string {
	t.Helper()
	name := fmt.Sprintf("test-%s-%d", strings.ReplaceAll(t.Name(), "/", "-"), time.Now().UnixNano())
	Remove(name)
	t.Cleanup(func() { Remove(name) })
	return name
}

// createTestConsumer creates a consumer over a fresh uniquely named
// segment and registers cleanup so the segment is always removed, even
// when the test fails or panics.
func createTestConsumer(t *testing.T, capacity int) (*Consumer[uint32], string) {
	t.Helper()

	name := testSegName(t)
	consumer, err := CreateConsumer[uint32](name, capacity)
	if err != nil {
		t.Fatalf("failed to create consumer for segment %s: %v", name, err)
	}
	t.Cleanup(func() { consumer.Close() })
	return consumer, name
}

// openTestProducer attaches a producer to an existing test segment with
// cleanup registered.
func openTestProducer(t *testing.T, name string) *Producer[uint32] {
	t.Helper()

	producer, err := OpenProducer[uint32](name)
	if err != nil {
		t.Fatalf("failed to open producer for segment %s: %v", name, err)
	}
	t.Cleanup(func() { producer.Close() })
	return producer
}

// createTestPair creates a consumer and an attached producer over one
// fresh segment.
func createTestPair(t *testing.T, capacity int) (*Producer[uint32], *Consumer[uint32]) {
	t.Helper()

	consumer, name := createTestConsumer(t, capacity)
	producer := openTestProducer(t, name)
	return producer, consumer
}
