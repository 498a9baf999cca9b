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

import "errors"

// ErrMissingCapability is returned by Validate when a provider is not set.
var ErrMissingCapability = errors.New("effects: missing capability provider")

// Providers holds the process-wide capability providers. Built once at
// startup and passed to the engine; tests build their own.
type Providers struct {
	Clock Clock
	IDs   IDGenerator
}

// LiveProviders returns the production providers.
func LiveProviders() Providers {
	return Providers{Clock: SystemClock{}, IDs: UUIDGenerator{}}
}

// Validate checks that every capability can be resolved.
func (p Providers) Validate() error {
	var errs []error
	if p.Clock == nil {
		errs = append(errs, errors.New("clock"))
	}
	if p.IDs == nil {
		errs = append(errs, errors.New("id generator"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(ErrMissingCapability, errors.Join(errs...))
}

// Bind builds the Env for one invocation around its transaction handle.
func (p Providers) Bind(tx *Tx) *Env {
	return &Env{clock: p.Clock, ids: p.IDs, tx: tx}
}
