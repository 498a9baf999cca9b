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

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpc-platform/internal/runtime/engine"
	"rpc-platform/pkg/effects"
)

type signupInput struct {
	Email string `json:"email"`
}

func (in signupInput) Validate() error {
	if !strings.Contains(in.Email, "@") {
		return errors.New("email is invalid")
	}
	return nil
}

type signup struct {
	Email string `json:"email"`
}

func signupHandler(in signupInput) effects.Effect[signup] {
	return func(ctx context.Context, env *effects.Env) (signup, error) {
		if _, err := effects.Exec(ctx, env, "INSERT INTO signups (email) VALUES ($1)", in.Email); err != nil {
			return signup{}, err
		}
		return signup{Email: in.Email}, nil
	}
}

func setup(t *testing.T) (pgxmock.PgxPoolIface, *Registry, *server.Hertz) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	p := effects.Providers{
		Clock: effects.FixedClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		IDs:   effects.NewSequenceIDs(),
	}
	e, err := engine.New(mock, p, nil, engine.Options{})
	require.NoError(t, err)

	r := NewRegistry(e)
	Register(r, "signup", signupHandler)
	h := server.New(server.WithHostPorts(":0"))
	r.Mount(h)
	return mock, r, h
}

func post(h *server.Hertz, path, body string) (int, []byte, string) {
	w := ut.PerformRequest(h.Engine, "POST", path, &ut.Body{Body: bytes.NewReader([]byte(body)), Len: len(body)})
	resp := w.Result()
	return resp.StatusCode(), resp.Body(), string(resp.Header.ContentType())
}

func TestRegister_DecodesAndExecutes(t *testing.T) {
	mock, _, h := setup(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO signups").WithArgs("a@b.com").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	status, body, ct := post(h, "/signup", `{"email":"a@b.com"}`)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"ok":true,"data":{"email":"a@b.com"}}`, string(body))
	assert.Contains(t, ct, "application/json")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_MalformedBodyOpensNoTransaction(t *testing.T) {
	mock, _, h := setup(t)

	status, body, _ := post(h, "/signup", `{"email":`)
	assert.Equal(t, 400, status)
	var env map[string]any
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, false, env["ok"])
	assert.Equal(t, "RequestValidationError", env["error"].(map[string]any)["_tag"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_ValidateFailure(t *testing.T) {
	mock, _, h := setup(t)

	status, body, _ := post(h, "/signup", `{"email":"nope"}`)
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"ok":false,"error":{"_tag":"RequestValidationError","message":"email is invalid"}}`, string(body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_EmptyBodyIsEmptyObject(t *testing.T) {
	_, _, h := setup(t)

	status, body, _ := post(h, "/signup", "")
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), "email is invalid")
}

func TestRegister_UnknownRouteIs404(t *testing.T) {
	_, _, h := setup(t)
	status, _, _ := post(h, "/nope", `{}`)
	assert.Equal(t, 404, status)
}

func TestRegisterNoInput_IgnoresBody(t *testing.T) {
	mock, r, _ := setup(t)
	RegisterNoInput(r, "ping", func() effects.Effect[string] { return effects.Succeed("pong") })
	h := server.New(server.WithHostPorts(":0"))
	r.Mount(h)

	mock.ExpectBegin()
	mock.ExpectCommit()
	status, body, _ := post(h, "/ping", `not json at all`)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"ok":true,"data":"pong"}`, string(body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_NamesAndDuplicates(t *testing.T) {
	_, r, _ := setup(t)
	RegisterNoInput(r, "alpha", func() effects.Effect[int] { return effects.Succeed(1) })
	assert.Equal(t, []string{"alpha", "signup"}, r.Names())

	assert.Panics(t, func() { Register(r, "signup", signupHandler) })
	assert.Panics(t, func() { RegisterNoInput(r, "", func() effects.Effect[int] { return effects.Succeed(1) }) })
}

type pointerInput struct {
	N int `json:"n"`
}

func (p *pointerInput) Validate() error {
	if p.N <= 0 {
		return errors.New("n must be positive")
	}
	return nil
}

func bodyContext(body string) *app.RequestContext {
	c := app.NewContext(0)
	c.Request.SetBody([]byte(body))
	return c
}

func TestDecode_PointerReceiverValidate(t *testing.T) {
	var in pointerInput
	assert.EqualError(t, decode(bodyContext(`{"n":0}`), &in), "n must be positive")

	var ptr *pointerInput
	assert.EqualError(t, decode(bodyContext(`{"n":-1}`), &ptr), "n must be positive")
	require.NoError(t, decode(bodyContext(`{"n":2}`), &ptr))
	assert.Equal(t, 2, ptr.N)
}

func TestDecode_EmptyBodyIsEmptyObject(t *testing.T) {
	var ptr *pointerInput
	assert.EqualError(t, decode(bodyContext("  "), &ptr), "n must be positive")
	require.NotNil(t, ptr)

	var in pointerInput
	err := decode(bodyContext(`{"n":`), &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed body")
}
