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

// Package engine runs effects: one transaction per invocation, classified
// failures, uniform response envelopes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rpc-platform/internal/runtime/txn"
	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/metrics"
	"rpc-platform/pkg/tracing"
)

// DefaultTimeout is the execution window used when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options 引擎配置
type Options struct {
	// Timeout bounds one invocation from begin to the end of the effect body.
	// The window is cooperative: it cancels ctx, and an effect that ignores
	// ctx still runs to completion before its outcome becomes TimeoutError
	// and the transaction rolls back. Negative disables the window.
	Timeout time.Duration
}

// Engine executes effects. Immutable after New; safe for concurrent use.
type Engine struct {
	db        txn.Beginner
	providers effects.Providers
	logger    *RequestLogger
	timeout   time.Duration
}

// New builds an Engine. It fails when a capability provider is missing so a
// misconfigured process never serves a request. logger may be nil.
func New(db txn.Beginner, providers effects.Providers, logger *RequestLogger, opts Options) (*Engine, error) {
	if db == nil {
		return nil, errors.New("engine: database is required")
	}
	if err := providers.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Engine{db: db, providers: providers, logger: logger, timeout: timeout}, nil
}

// Outcome is the terminal result of one invocation. Err is nil on success.
type Outcome[A any] struct {
	Value A
	Err   error
}

// OK reports whether the invocation succeeded.
func (o Outcome[A]) OK() bool { return o.Err == nil }

// Execute runs eff exactly once inside a fresh transaction. The transaction
// commits iff eff succeeds within the execution window; any failure is
// tagged and rolled back.
func Execute[A any](ctx context.Context, e *Engine, name string, eff effects.Effect[A]) Outcome[A] {
	start := time.Now()
	ctx, span := tracing.StartInvocationSpan(ctx, name)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	v, err := txn.Run(runCtx, e.db, func(ctx context.Context, tx *effects.Tx) (A, error) {
		a, err := eff(ctx, e.providers.Bind(tx))
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			var zero A
			return zero, &apperrors.TimeoutError{Cause: errors.Join(ctxErr, err)}
		}
		return a, err
	})

	elapsed := time.Since(start)
	metrics.InvocationDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	entry := Entry{Name: name, Duration: elapsed, Status: http.StatusOK}
	if err != nil {
		c := apperrors.Classify(err)
		entry.Status, entry.Tag, entry.Err = c.Status, c.Tag, err
		tag := c.Tag
		if tag == "" {
			tag = "untagged"
		}
		metrics.InvocationTotal.WithLabelValues(name, "error").Inc()
		metrics.FailureTotal.WithLabelValues(name, tag, strconv.Itoa(c.Status)).Inc()
	} else {
		metrics.InvocationTotal.WithLabelValues(name, "ok").Inc()
	}
	tracing.EndInvocationSpan(span, entry.Status, entry.Tag)
	if e.logger != nil {
		e.logger.Record(entry)
	}

	if err != nil {
		return Outcome[A]{Err: err}
	}
	return Outcome[A]{Value: v}
}
