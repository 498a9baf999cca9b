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

package middleware

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"rpc-platform/internal/runtime/engine"
)

// Middleware 中间件管理器
type Middleware struct {
	allowOrigins []string
}

// NewMiddleware 创建新的中间件管理器；allowOrigins 为空时允许任意来源
func NewMiddleware(allowOrigins ...string) *Middleware {
	return &Middleware{allowOrigins: allowOrigins}
}

// CORS CORS 中间件
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		origin := m.origin(string(c.GetHeader("Origin")))
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Max-Age", "86400")
		if origin != "*" {
			c.Header("Vary", "Origin")
		}

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

func (m *Middleware) origin(requested string) string {
	if len(m.allowOrigins) == 0 {
		return "*"
	}
	for _, o := range m.allowOrigins {
		if o == "*" {
			return "*"
		}
		if requested != "" && strings.EqualFold(o, requested) {
			return requested
		}
	}
	return m.allowOrigins[0]
}

// RateLimit 速率限制中间件（令牌桶，进程内全局）
func (m *Middleware) RateLimit(rps, burst int) app.HandlerFunc {
	if burst < rps {
		burst = rps
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	body, _ := json.Marshal(map[string]any{
		"ok":    false,
		"error": map[string]any{"_tag": "RateLimitExceeded"},
	})
	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.Data(consts.StatusTooManyRequests, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// Recovery 兜底：handler panic 时返回 500 与 InternalError 信封，不暴露 panic 内容
func (m *Middleware) Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				hlog.CtxErrorf(ctx, "[Recovery] panic recovered: %v\n%s", r, debug.Stack())
				status, resp := engine.InternalFailure()
				b, _ := json.Marshal(resp)
				c.Data(status, "application/json; charset=utf-8", b)
				c.Abort()
			}
		}()
		c.Next(ctx)
	}
}
