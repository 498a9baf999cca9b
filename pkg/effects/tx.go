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

package effects

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTxClosed is returned when a transaction handle is used after its
// transaction was committed or rolled back.
var ErrTxClosed = errors.New("effects: transaction handle used after commit or rollback")

// Tx is the invocation's handle on its open transaction. Effects can issue
// statements through it but cannot end the transaction; that belongs to the
// transaction manager.
type Tx struct {
	tx     pgx.Tx
	closed atomic.Bool
}

// NewTx wraps an open pgx transaction.
func NewTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

// Invalidate marks the handle unusable. Called by the transaction manager
// right before commit or rollback.
func (t *Tx) Invalidate() {
	t.closed.Store(true)
}

// Valid reports whether the handle can still be used.
func (t *Tx) Valid() bool {
	return t != nil && !t.closed.Load()
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !t.Valid() {
		return pgconn.CommandTag{}, ErrTxClosed
	}
	return t.tx.Exec(ctx, sql, args...)
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if !t.Valid() {
		return nil, ErrTxClosed
	}
	return t.tx.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if !t.Valid() {
		return errRow{err: ErrTxClosed}
	}
	return t.tx.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
