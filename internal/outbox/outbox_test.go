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

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpc-platform/internal/runtime/txn"
	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/log"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func bindEnv(t *testing.T, mock pgxmock.PgxPoolIface) *effects.Env {
	t.Helper()
	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	p := effects.Providers{Clock: effects.FixedClock(fixedNow), IDs: effects.NewSequenceIDs()}
	return p.Bind(effects.NewTx(tx))
}

func discardLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestNewMessage(t *testing.T) {
	m, err := NewMessage("UserRegistered", "user", "u-1", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "user", m.AggregateType)
	assert.JSONEq(t, `{"email":"a@b.com"}`, string(m.Payload))

	_, err = NewMessage("", "user", "u-1", nil)
	assert.Error(t, err)
}

func TestPublish_InsertsWithClockTime(t *testing.T) {
	mock := newMock(t)
	env := bindEnv(t, mock)
	m, err := NewMessage("UserRegistered", "user", "u-1", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("UserRegistered", "user", "u-1", json.RawMessage(`{"email":"a@b.com"}`), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, Publish(context.Background(), env, m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_DriverFailureIsDatabaseError(t *testing.T) {
	mock := newMock(t)
	env := bindEnv(t, mock)
	mock.ExpectExec("INSERT INTO messages").WillReturnError(errors.New("relation \"messages\" does not exist"))

	err := Publish(context.Background(), env, Message{Type: "T", AggregateType: "a", AggregateID: "x"})
	var dbErr *apperrors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

type recordingPublisher struct {
	streams []string
	ids     []string
	failOn  string
}

func (p *recordingPublisher) Publish(_ context.Context, stream string, m Message) error {
	if m.ID == p.failOn {
		return errors.New("redis unavailable")
	}
	p.streams = append(p.streams, stream)
	p.ids = append(p.ids, m.ID)
	return nil
}

func pendingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "type", "aggregate_type", "aggregate_id", "payload", "created_at"}).
		AddRow("m-1", "UserRegistered", "user", "u-1", []byte(`{}`), fixedNow).
		AddRow("m-2", "OrderPlaced", "order", "o-1", []byte(`{}`), fixedNow)
}

func TestRelay_RunOnceDeliversAndMarks(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id::text").WillReturnRows(pendingRows())
	mock.ExpectExec("UPDATE messages SET processed_at").
		WithArgs(fixedNow, []string{"m-1", "m-2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	pub := &recordingPublisher{}
	r := NewRelay(mock, pub, effects.FixedClock(fixedNow), RelayConfig{BatchSize: 10}, discardLogger())
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"outbox:user", "outbox:order"}, pub.streams)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelay_PublishFailureKeepsRemainderPending(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id::text").WillReturnRows(pendingRows())
	mock.ExpectExec("UPDATE messages SET processed_at").
		WithArgs(fixedNow, []string{"m-1"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	pub := &recordingPublisher{failOn: "m-2"}
	r := NewRelay(mock, pub, effects.FixedClock(fixedNow), RelayConfig{BatchSize: 10}, discardLogger())
	n, err := r.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"m-1"}, pub.ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelay_FetchFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id::text").WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	r := NewRelay(mock, &recordingPublisher{}, effects.FixedClock(fixedNow), RelayConfig{}, discardLogger())
	_, err := r.RunOnce(context.Background())
	var dbErr *apperrors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id::text").
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "aggregate_type", "aggregate_id", "payload", "created_at"}))
	mock.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	db := &countingBeginner{Beginner: mock}
	r := NewRelay(db, &recordingPublisher{}, effects.FixedClock(fixedNow), RelayConfig{Interval: time.Hour}, discardLogger())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return db.begins.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingBeginner struct {
	txn.Beginner
	begins atomic.Int32
}

func (b *countingBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	b.begins.Add(1)
	return b.Beginner.Begin(ctx)
}
