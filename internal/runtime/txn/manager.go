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

// Package txn runs one unit of work inside one database transaction.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/metrics"
)

// FinalizeTimeout bounds commit and rollback. They run on a context detached
// from the request so an expired request still gets its rollback.
const FinalizeTimeout = 5 * time.Second

// Beginner opens transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Body is the work executed inside the transaction.
type Body[A any] func(ctx context.Context, tx *effects.Tx) (A, error)

// Run opens a transaction, runs body with a handle on it, then commits when
// body succeeds and rolls back otherwise. Every returned error is tagged:
// begin/commit/rollback failures, untagged body errors and recovered panics
// come back as *errors.TransactionError.
//
// A *effects.HarnessViolation panic is re-raised after rollback.
func Run[A any](ctx context.Context, db Beginner, body Body[A]) (A, error) {
	var zero A
	pgtx, err := db.Begin(ctx)
	if err != nil {
		metrics.TxTotal.WithLabelValues("begin_failed").Inc()
		return zero, &apperrors.TransactionError{Cause: fmt.Errorf("begin: %w", err)}
	}
	handle := effects.NewTx(pgtx)

	var violation *effects.HarnessViolation
	v, bodyErr := invoke(ctx, handle, body, &violation)
	handle.Invalidate()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FinalizeTimeout)
	defer cancel()

	if violation != nil {
		_ = pgtx.Rollback(fctx)
		metrics.TxTotal.WithLabelValues("rolled_back").Inc()
		panic(violation)
	}

	if bodyErr != nil {
		if rbErr := pgtx.Rollback(fctx); rbErr != nil {
			metrics.TxTotal.WithLabelValues("rollback_failed").Inc()
			return zero, &apperrors.TransactionError{Cause: errors.Join(bodyErr, fmt.Errorf("rollback: %w", rbErr))}
		}
		metrics.TxTotal.WithLabelValues("rolled_back").Inc()
		return zero, apperrors.EnsureTagged(bodyErr)
	}

	if err := pgtx.Commit(fctx); err != nil {
		metrics.TxTotal.WithLabelValues("commit_failed").Inc()
		return zero, &apperrors.TransactionError{Cause: fmt.Errorf("commit: %w", err)}
	}
	metrics.TxTotal.WithLabelValues("committed").Inc()
	return v, nil
}

func invoke[A any](ctx context.Context, tx *effects.Tx, body Body[A], violation **effects.HarnessViolation) (v A, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if hv, ok := r.(*effects.HarnessViolation); ok {
			*violation = hv
			return
		}
		if e, ok := r.(error); ok {
			err = &apperrors.TransactionError{Cause: fmt.Errorf("panic: %w", e)}
		} else {
			err = &apperrors.TransactionError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	return body(ctx, tx)
}
