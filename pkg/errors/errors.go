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

// Package errors 提供统一错误辅助与 RPC 失败分类（tag 体系、状态码映射、对外序列化），不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Tagged is a failure identified by a discriminant tag. Domain errors
// implement it; the tag drives status mapping and is the "_tag" field of the
// serialized envelope.
type Tagged interface {
	error
	Tag() string
}

// InternalMarker is implemented by failures that must never be shown to
// callers. Internal() == true forces the opaque envelope and status 500.
type InternalMarker interface {
	Internal() bool
}

// Reserved tags.
const (
	TagDatabase          = "DatabaseError"
	TagTransaction       = "TransactionError"
	TagTimeout           = "TimeoutError"
	TagInternal          = "InternalError"
	TagRequestValidation = "RequestValidationError"
)

// DatabaseError wraps a driver-level failure.
type DatabaseError struct {
	Cause error `json:"-"`
}

func (e *DatabaseError) Error() string {
	if e.Cause == nil {
		return "database error"
	}
	return "database error: " + e.Cause.Error()
}

func (e *DatabaseError) Tag() string    { return TagDatabase }
func (e *DatabaseError) Internal() bool { return true }
func (e *DatabaseError) Unwrap() error  { return e.Cause }

// TransactionError wraps a commit/rollback failure, a recovered panic, or any
// error that reached the transaction boundary without a tag.
type TransactionError struct {
	Cause error `json:"-"`
}

func (e *TransactionError) Error() string {
	if e.Cause == nil {
		return "transaction error"
	}
	return "transaction error: " + e.Cause.Error()
}

func (e *TransactionError) Tag() string    { return TagTransaction }
func (e *TransactionError) Internal() bool { return true }
func (e *TransactionError) Unwrap() error  { return e.Cause }

// TimeoutError reports that an invocation outlived its execution window.
type TimeoutError struct {
	Cause error `json:"-"`
}

func (e *TimeoutError) Error() string {
	if e.Cause == nil {
		return "execution window exceeded"
	}
	return "execution window exceeded: " + e.Cause.Error()
}

func (e *TimeoutError) Tag() string    { return TagTimeout }
func (e *TimeoutError) Internal() bool { return true }
func (e *TimeoutError) Unwrap() error  { return e.Cause }

// RequestValidationError is raised by the transport before an effect is
// built, when the body cannot be decoded or fails its own validation.
type RequestValidationError struct {
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *RequestValidationError) Error() string { return "invalid request: " + e.Message }
func (e *RequestValidationError) Tag() string   { return TagRequestValidation }
func (e *RequestValidationError) Unwrap() error { return e.Cause }

// TagOf returns the first tag found in err's chain.
func TagOf(err error) (string, bool) {
	var t Tagged
	if err == nil || !errors.As(err, &t) {
		return "", false
	}
	return t.Tag(), true
}

// EnsureTagged returns err unchanged when its chain carries a tag, otherwise
// wraps it as a TransactionError. nil stays nil.
func EnsureTagged(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := TagOf(err); ok {
		return err
	}
	return &TransactionError{Cause: err}
}
