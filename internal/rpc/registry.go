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

// Package rpc maps RPC names to input shapes and effect handlers, and mounts
// them as POST routes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route"

	"rpc-platform/internal/runtime/engine"
	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Validator is implemented by inputs that check themselves after decoding.
type Validator interface {
	Validate() error
}

// Router is the part of a hertz router the registry mounts on.
type Router interface {
	POST(relativePath string, handlers ...app.HandlerFunc) route.IRoutes
}

// Registry RPC 名称到处理函数的映射
type Registry struct {
	engine *engine.Engine
	routes map[string]app.HandlerFunc
}

// NewRegistry creates an empty registry executing through e.
func NewRegistry(e *engine.Engine) *Registry {
	return &Registry{engine: e, routes: make(map[string]app.HandlerFunc)}
}

// Register adds an RPC whose JSON body decodes into I. It panics on a
// duplicate or empty name.
func Register[I, O any](r *Registry, name string, handler func(I) effects.Effect[O]) {
	r.add(name, func(ctx context.Context, c *app.RequestContext) {
		var in I
		if err := decode(c, &in); err != nil {
			writeFailure(c, &apperrors.RequestValidationError{Message: err.Error(), Cause: err})
			return
		}
		status, resp := engine.Respond(ctx, r.engine, name, handler(in))
		write(c, status, resp)
	})
}

// RegisterNoInput adds an RPC that takes no input; the body is ignored.
func RegisterNoInput[O any](r *Registry, name string, handler func() effects.Effect[O]) {
	r.add(name, func(ctx context.Context, c *app.RequestContext) {
		status, resp := engine.Respond(ctx, r.engine, name, handler())
		write(c, status, resp)
	})
}

func (r *Registry) add(name string, h app.HandlerFunc) {
	if name == "" {
		panic("rpc: empty name")
	}
	if _, dup := r.routes[name]; dup {
		panic(fmt.Sprintf("rpc: %q registered twice", name))
	}
	r.routes[name] = h
}

// Names returns the registered RPC names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mount registers POST /<name> for every RPC.
func (r *Registry) Mount(router Router) {
	for _, name := range r.Names() {
		router.POST("/"+name, r.routes[name])
	}
}

// decode binds the JSON body into in and runs its Validate method, if any.
// An empty body decodes as {}.
func decode[I any](c *app.RequestContext, in *I) error {
	if len(bytes.TrimSpace(c.Request.Body())) == 0 {
		c.Request.SetBody([]byte("{}"))
	}
	if err := c.BindJSON(in); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	if v, ok := any(in).(Validator); ok {
		return v.Validate()
	}
	// I itself may be a pointer type with a Validate method.
	if v, ok := any(*in).(Validator); ok && !isNil(*in) {
		return v.Validate()
	}
	return nil
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func writeFailure(c *app.RequestContext, err error) {
	status, resp := engine.Failure(err)
	write(c, status, resp)
}

func write(c *app.RequestContext, status int, resp engine.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		status, resp = engine.InternalFailure()
		b, _ = json.Marshal(resp)
	}
	c.Data(status, contentTypeJSON, b)
}
