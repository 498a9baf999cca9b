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

// Package health provides the healthCheck RPC: a round trip through the
// execution engine and the database.
package health

import (
	"context"
	"time"

	"rpc-platform/internal/rpc"
	"rpc-platform/pkg/effects"
)

// Name RPC 名称
const Name = "healthCheck"

// Status healthCheck 返回值
type Status struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Check runs SELECT 1 in the invocation transaction.
func Check() effects.Effect[Status] {
	return func(ctx context.Context, env *effects.Env) (Status, error) {
		_, err := effects.Query(ctx, env, func(ctx context.Context, tx *effects.Tx) (int, error) {
			var one int
			err := tx.QueryRow(ctx, "SELECT 1").Scan(&one)
			return one, err
		})
		if err != nil {
			return Status{}, err
		}
		return Status{Status: "ok", CheckedAt: effects.Now(env)}, nil
	}
}

// Register adds healthCheck to r.
func Register(r *rpc.Registry) {
	rpc.RegisterNoInput(r, Name, Check)
}
