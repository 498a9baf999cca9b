// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"sync"
	"time"

	"rpc-platform/pkg/log"
	"rpc-platform/pkg/metrics"
)

// DefaultLogBuffer 请求日志队列默认容量
const DefaultLogBuffer = 1024

// Entry is one terminal invocation as seen by the request logger.
type Entry struct {
	Name     string
	Duration time.Duration
	Status   int
	// Tag is empty on success and for untagged failures.
	Tag string
	Err error
}

// RequestLogger writes invocation entries asynchronously. Record never blocks
// the caller: when the queue is full the entry is dropped and counted.
type RequestLogger struct {
	logger  *log.Logger
	entries chan Entry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRequestLogger starts the writer goroutine. buffer <= 0 uses DefaultLogBuffer.
func NewRequestLogger(logger *log.Logger, buffer int) *RequestLogger {
	if buffer <= 0 {
		buffer = DefaultLogBuffer
	}
	r := &RequestLogger{
		logger:  logger,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record enqueues e. Entries recorded after Close are dropped.
func (r *RequestLogger) Record(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.LogDropped.Inc()
		return
	}
	select {
	case r.entries <- e:
	default:
		metrics.LogDropped.Inc()
	}
}

// Close flushes queued entries and stops the writer. Safe to call twice.
func (r *RequestLogger) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *RequestLogger) loop() {
	defer close(r.done)
	for e := range r.entries {
		r.write(e)
	}
}

func (r *RequestLogger) write(e Entry) {
	attrs := []any{
		"name", e.Name,
		"duration", e.Duration,
		"status", e.Status,
	}
	if e.Err == nil {
		r.logger.Info("rpc ok", attrs...)
		return
	}
	tag := e.Tag
	if tag == "" {
		tag = "untagged"
	}
	attrs = append(attrs, "tag", tag, "error", e.Err.Error())
	if e.Status >= 500 {
		r.logger.Error("rpc failed", attrs...)
		return
	}
	r.logger.Warn("rpc failed", attrs...)
}
