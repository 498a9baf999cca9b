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

// Package effects defines request-scoped effects and the capabilities they run
// against. An Effect is inert: nothing happens until the execution engine
// invokes it with an Env bound to one open transaction.
//
// Every effect receives the full *Env. Clocked, Identified and Transactional
// narrow the parameters of helpers such as Now, NewID and Exec; they do not
// restrict what an effect itself can reach.
package effects

import (
	"context"
	"time"
)

// Effect is a deferred computation producing an A. It must only touch the
// outside world through the capabilities in env.
type Effect[A any] func(ctx context.Context, env *Env) (A, error)

// Clocked is required by effects that read the current time.
type Clocked interface {
	Clock() Clock
}

// Identified is required by effects that mint identifiers.
type Identified interface {
	IDs() IDGenerator
}

// Transactional is required by effects that read or write the database.
type Transactional interface {
	Tx() *Tx
}

// Env is the capability set handed to an effect for one invocation.
type Env struct {
	clock Clock
	ids   IDGenerator
	tx    *Tx
}

var (
	_ Clocked       = (*Env)(nil)
	_ Identified    = (*Env)(nil)
	_ Transactional = (*Env)(nil)
)

func (e *Env) Clock() Clock     { return e.clock }
func (e *Env) IDs() IDGenerator { return e.ids }
func (e *Env) Tx() *Tx          { return e.tx }

// Succeed returns an effect that yields v without touching any capability.
func Succeed[A any](v A) Effect[A] {
	return func(context.Context, *Env) (A, error) { return v, nil }
}

// Fail returns an effect that fails with err.
func Fail[A any](err error) Effect[A] {
	return func(context.Context, *Env) (A, error) {
		var zero A
		return zero, err
	}
}

// Map transforms the result of eff.
func Map[A, B any](eff Effect[A], f func(A) B) Effect[B] {
	return func(ctx context.Context, env *Env) (B, error) {
		a, err := eff(ctx, env)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	}
}

// FlatMap sequences eff with the effect produced from its result.
func FlatMap[A, B any](eff Effect[A], f func(A) Effect[B]) Effect[B] {
	return func(ctx context.Context, env *Env) (B, error) {
		a, err := eff(ctx, env)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)(ctx, env)
	}
}

// Now reads the invocation clock.
func Now(env Clocked) time.Time {
	return env.Clock().Now()
}

// NewID mints an identifier from the invocation generator.
func NewID(env Identified) string {
	return env.IDs().NewID()
}
