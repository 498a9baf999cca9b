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

	apperrors "rpc-platform/pkg/errors"
)

// Query runs fn against the invocation transaction. Untagged failures coming
// back from fn are driver failures and are wrapped as DatabaseError; tagged
// ones (e.g. a unique violation fn already translated) pass through.
func Query[T any](ctx context.Context, env Transactional, fn func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	v, err := fn(ctx, env.Tx())
	if err == nil {
		return v, nil
	}
	var zero T
	if _, ok := apperrors.TagOf(err); ok {
		return zero, err
	}
	return zero, &apperrors.DatabaseError{Cause: err}
}

// Exec runs one statement in the invocation transaction and returns the
// number of affected rows.
func Exec(ctx context.Context, env Transactional, sql string, args ...any) (int64, error) {
	return Query(ctx, env, func(ctx context.Context, tx *Tx) (int64, error) {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	})
}
