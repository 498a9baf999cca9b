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
	"context"
	"encoding/json"
	"net/http"

	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
)

// Response is the uniform envelope: {"ok":true,"data":…} or
// {"ok":false,"error":…}.
type Response struct {
	OK    bool
	Data  any
	Error map[string]any
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(struct {
			OK   bool `json:"ok"`
			Data any  `json:"data"`
		}{true, r.Data})
	}
	return json.Marshal(struct {
		OK    bool           `json:"ok"`
		Error map[string]any `json:"error"`
	}{false, r.Error})
}

// Success wraps a value in the success envelope.
func Success(data any) Response {
	return Response{OK: true, Data: data}
}

// Failure classifies err and builds the failure envelope with its status.
func Failure(err error) (int, Response) {
	c, payload := apperrors.Envelope(err)
	return c.Status, Response{Error: payload}
}

// InternalFailure is the opaque 500 envelope, used when no classification is
// possible (e.g. a panic outside any invocation).
func InternalFailure() (int, Response) {
	return http.StatusInternalServerError, Response{Error: map[string]any{"_tag": apperrors.TagInternal}}
}

// Respond executes eff and renders its outcome.
func Respond[A any](ctx context.Context, e *Engine, name string, eff effects.Effect[A]) (int, Response) {
	out := Execute(ctx, e, name, eff)
	if out.Err != nil {
		return Failure(out.Err)
	}
	return http.StatusOK, Success(out.Value)
}
