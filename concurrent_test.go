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
	"fmt"
	"runtime"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// TestConcurrentSPSC runs one producer and one consumer concurrently,
// spinning past full/empty, and checks that every value arrives exactly
// once in push order.
func TestConcurrentSPSC(t *testing.T) {
	total := 100_000
	if testing.Short() {
		total = 10_000
	}

	producer, consumer := createTestPair(t, 64)

	var g errgroup.Group

	g.Go(func() error {
		for i := 0; i < total; i++ {
			for !producer.Push(uint32(i)) {
				runtime.Gosched()
			}
		}
		return nil
	})

	g.Go(func() error {
		for i := 0; i < total; i++ {
			var v uint32
			for {
				var ok bool
				if v, ok = consumer.Pop(); ok {
					break
				}
				runtime.Gosched()
			}
			if v != uint32(i) {
				return fmt.Errorf("pop %d = %d, ordering violated", i, v)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	// Pops never outrun pushes, so the ring must be empty now.
	if _, ok := consumer.Pop(); ok {
		t.Fatal("buffer should be empty after moving all records")
	}
}

// TestConcurrentBlocking moves records through a deliberately tiny ring
// with the futex-backed variants so both sides are forced to sleep.
func TestConcurrentBlocking(t *testing.T) {
	total := 20_000
	if testing.Short() {
		total = 2_000
	}

	producer, consumer := createTestPair(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for i := 0; i < total; i++ {
			if err := producer.PushContext(ctx, uint32(i)); err != nil {
				return fmt.Errorf("push %d: %w", i, err)
			}
		}
		return nil
	})

	g.Go(func() error {
		for i := 0; i < total; i++ {
			v, err := consumer.PopContext(ctx)
			if err != nil {
				return fmt.Errorf("pop %d: %w", i, err)
			}
			if v != uint32(i) {
				return fmt.Errorf("pop %d = %d, ordering violated", i, v)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestPopContextDeadline(t *testing.T) {
	_, consumer := createTestPair(t, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := consumer.PopContext(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded on empty ring, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("returned after %v, before the deadline", elapsed)
	}
}

func TestPushContextDeadline(t *testing.T) {
	producer, _ := createTestPair(t, 2)

	for producer.Push(0) {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := producer.PushContext(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded on full ring, got %v", err)
	}
}

func TestPopContextCancel(t *testing.T) {
	_, consumer := createTestPair(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := consumer.PopContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
}

// TestBlockingWakesOnTransition checks that a consumer sleeping on an empty
// ring is woken by the producer's empty -> non-empty transition wake.
func TestBlockingWakesOnTransition(t *testing.T) {
	producer, consumer := createTestPair(t, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	var got uint32
	var popErr error

	go func() {
		defer close(done)
		got, popErr = consumer.PopContext(ctx)
	}()

	// Give the consumer time to reach its futex wait before publishing.
	time.Sleep(100 * time.Millisecond)
	if !producer.Push(77) {
		t.Fatal("push rejected")
	}

	select {
	case <-done:
		if popErr != nil {
			t.Fatalf("pop failed: %v", popErr)
		}
		if got != 77 {
			t.Fatalf("pop = %d, want 77", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer was not woken by the producer's push")
	}
}

func BenchmarkConcurrentSPSC(b *testing.B) {
	name := fmt.Sprintf("bench-spsc-%d", time.Now().UnixNano())
	Remove(name)
	defer Remove(name)

	consumer, err := CreateConsumer[uint64](name, 4096)
	if err != nil {
		b.Fatalf("create failed: %v", err)
	}
	defer consumer.Close()

	producer, err := OpenProducer[uint64](name)
	if err != nil {
		b.Fatalf("open failed: %v", err)
	}
	defer producer.Close()

	b.ResetTimer()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < b.N; i++ {
			for {
				if _, ok := consumer.Pop(); ok {
					break
				}
				runtime.Gosched()
			}
		}
	}()

	for i := 0; i < b.N; i++ {
		for !producer.Push(uint64(i)) {
			runtime.Gosched()
		}
	}
	<-done
}
