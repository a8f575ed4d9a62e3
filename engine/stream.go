// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"v.io/x/lib/vlog"
)

const defaultQueueSize = 1024

// Opts configure one Read operation.
type Opts struct {
	// MaxSplitBytes bounds the on-disk size of one split. Decoded records
	// occupy substantially more memory than their on-disk encoding, so this
	// is the knob that keeps one partition within a worker's memory budget.
	// Must be > 0.
	MaxSplitBytes int64

	// Parallelism is the number of workers decoding splits. 0 means
	// runtime.NumCPU().
	Parallelism int

	// QueueSize is the number of transformed records buffered between the
	// workers and the consumer. 0 means a reasonable default. The bounded
	// queue is what makes the stream lazy: workers stall once the consumer
	// stops pulling.
	QueueSize int
}

// Stream is the lazily-evaluated result of a Read: a pull-based iterator over
// the transformed records of every split. Records of one split arrive in
// split order; records of different splits interleave arbitrarily. Thread
// compatible.
type Stream struct {
	ch   chan interface{}
	done chan struct{}
	wg   sync.WaitGroup
	err  errors.Once
	cur  interface{}

	mu       sync.Mutex
	closed   bool
	deferred []func()
}

// Read plans the splits for path and starts decoding them in the background.
// Planning errors are returned immediately; errors after that surface through
// Stream.Err. fn runs once per raw record, concurrently across splits but
// sequentially within one split.
func Read(ctx context.Context, format Format, path string, opts Opts, fn Transform) (*Stream, error) {
	splits, err := format.Plan(ctx, path, opts.MaxSplitBytes)
	if err != nil {
		return nil, errors.E(err, "plan", path)
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(splits) && len(splits) > 0 {
		parallelism = len(splits)
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &Stream{
		ch:   make(chan interface{}, queueSize),
		done: make(chan struct{}),
	}
	splitCh := make(chan Split, len(splits))
	for _, split := range splits {
		splitCh <- split
	}
	close(splitCh)
	vlog.VI(1).Infof("%v: reading %d splits with %d workers", path, len(splits), parallelism)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.ch)
		if len(splits) == 0 {
			return
		}
		s.err.Set(traverse.Each(parallelism, func(_ int) error {
			for split := range splitCh {
				if s.stopped() {
					return nil
				}
				if err := s.processSplit(ctx, format, split, fn); err != nil {
					return err
				}
			}
			return nil
		}))
	}()
	return s, nil
}

func (s *Stream) processSplit(ctx context.Context, format Format, split Split, fn Transform) error {
	rr, err := format.Open(ctx, split)
	if err != nil {
		return errors.E(err, fmt.Sprintf("open split %d of %s", split.SplitIndex(), split.SplitPath()))
	}
	for rr.Scan() {
		out, ok, err := fn(rr.Record())
		if err != nil {
			rr.Close() // nolint: errcheck
			return err
		}
		if !ok {
			continue
		}
		select {
		case s.ch <- out:
		case <-s.done:
			return rr.Close()
		}
	}
	return rr.Close()
}

func (s *Stream) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Scan advances the stream to the next record, returning false once every
// split has been consumed or the operation failed. Check Err after the final
// Scan.
//
// REQUIRES: Close has not been called.
func (s *Stream) Scan() bool {
	rec, ok := <-s.ch
	if !ok {
		return false
	}
	s.cur = rec
	return true
}

// Record returns the current record. Valid only after a Scan that returned
// true.
func (s *Stream) Record() interface{} {
	return s.cur
}

// Err returns the first error encountered by any worker, or nil.
func (s *Stream) Err() error {
	return s.err.Err()
}

// Defer registers fn to run after the stream's workers have drained during
// Close. It is used to release per-operation resources such as broadcasts.
func (s *Stream) Defer(fn func()) {
	s.mu.Lock()
	s.deferred = append(s.deferred, fn)
	s.mu.Unlock()
}

// Close stops any workers that are still producing, waits for them to finish
// and returns the value of Err. A stream may be closed before it is
// exhausted; records not yet pulled are discarded.
//
// Close must be called exactly once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		vlog.Fatalf("Close called twice on stream")
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	go func() {
		for range s.ch {
		}
	}()
	s.wg.Wait()
	s.mu.Lock()
	deferred := s.deferred
	s.deferred = nil
	s.mu.Unlock()
	for _, fn := range deferred {
		fn()
	}
	return s.Err()
}
