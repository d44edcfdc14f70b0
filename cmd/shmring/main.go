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

// Command shmring is a demo driver for the shared-memory ring buffer.
//
// Run "shmring -mode creator" in one terminal and "shmring -mode producer"
// in another; the producer pushes a numbered sequence that the creator
// (the consumer role) pops and prints. "shmring -mode bench" exercises a
// producer/consumer pair inside one process and reports throughput.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ipckit/shmring"
)

func main() {
	var (
		mode     = flag.String("mode", "", "creator | producer | bench")
		name     = flag.String("name", "shmring-demo", "segment name shared by both processes")
		capacity = flag.Int("capacity", 10, "ring capacity in records")
		count    = flag.Int("count", 20, "number of records to move")
	)
	flag.Parse()

	var err error
	switch *mode {
	case "creator":
		err = runCreator(*name, *capacity, *count)
	case "producer":
		err = runProducer(*name, *count)
	case "bench":
		err = runBench(*name, *capacity, *count)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}

// runCreator creates the segment (the consumer is the creator by
// convention) and polls until count records have arrived.
func runCreator(name string, capacity, count int) error {
	log.Printf("[creator] creating segment %q with capacity %d", name, capacity)
	consumer, err := shmring.CreateConsumer[uint32](name, capacity)
	if err != nil {
		return err
	}
	defer func() {
		consumer.Close()
		shmring.Remove(name)
	}()

	log.Printf("[creator] segment ready, waiting for producer")
	received := 0
	for received < count {
		v, ok := consumer.Pop()
		if !ok {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		log.Printf("[creator] popped %d", v)
		received++
	}
	log.Printf("[creator] done, received %d records", received)
	return nil
}

// runProducer attaches to the segment, retrying while the creator is still
// starting up, then pushes count numbered records.
func runProducer(name string, count int) error {
	log.Printf("[producer] opening segment %q", name)
	producer, err := shmring.OpenProducerWait[uint32](name, 5*time.Second)
	if err != nil {
		return err
	}
	defer producer.Close()

	log.Printf("[producer] attached")
	for i := 0; i < count; i++ {
		for !producer.Push(uint32(i)) {
			log.Printf("[producer] buffer full, retrying")
			time.Sleep(50 * time.Millisecond)
		}
		log.Printf("[producer] pushed %d", i)
	}
	log.Printf("[producer] done, pushed %d records", count)
	return nil
}

// runBench drives a producer/consumer pair over one segment inside this
// process, using the blocking futex variants on both sides.
func runBench(name string, capacity, count int) error {
	benchName := fmt.Sprintf("%s-bench-%d", name, time.Now().UnixNano())

	consumer, err := shmring.CreateConsumer[uint32](benchName, capacity)
	if err != nil {
		return err
	}
	defer func() {
		consumer.Close()
		shmring.Remove(benchName)
	}()

	producer, err := shmring.OpenProducer[uint32](benchName)
	if err != nil {
		return err
	}
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for i := 0; i < count; i++ {
			if err := producer.PushContext(ctx, uint32(i)); err != nil {
				return fmt.Errorf("push %d: %w", i, err)
			}
		}
		return nil
	})

	g.Go(func() error {
		for i := 0; i < count; i++ {
			v, err := consumer.PopContext(ctx)
			if err != nil {
				return fmt.Errorf("pop %d: %w", i, err)
			}
			if v != uint32(i) {
				return fmt.Errorf("pop %d: got %d", i, v)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	st := consumer.State()
	log.Printf("[bench] moved %d records in %v (%.0f records/s)",
		count, elapsed, float64(count)/elapsed.Seconds())
	log.Printf("[bench] final state: head=%d tail=%d used=%d capacity=%d",
		st.Head, st.Tail, st.Used, st.Capacity)
	return nil
}
