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

package http

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"rpc-platform/internal/api/http/middleware"
	"rpc-platform/internal/rpc"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	registry   *rpc.Registry
	extra      []app.HandlerFunc

	cors           bool
	metrics        bool
	rateLimitRPS   int
	rateLimitBurst int
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, middleware *middleware.Middleware, registry *rpc.Registry) *Router {
	return &Router{handler: handler, middleware: middleware, registry: registry, metrics: true}
}

// Use 追加全局中间件（在 Recovery 之后执行），须在 Build 之前调用
func (r *Router) Use(handlers ...app.HandlerFunc) {
	r.extra = append(r.extra, handlers...)
}

// SetCORS 是否启用 CORS 中间件
func (r *Router) SetCORS(enable bool) { r.cors = enable }

// SetMetrics 是否暴露 GET /metrics
func (r *Router) SetMetrics(enable bool) { r.metrics = enable }

// SetRateLimit 对 RPC 路由启用限流；rps <= 0 关闭
func (r *Router) SetRateLimit(rps, burst int) {
	r.rateLimitRPS, r.rateLimitBurst = rps, burst
}

// Build 创建 Hertz 实例并注册全部路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.New(opts...)

	h.Use(r.middleware.Recovery())
	if len(r.extra) > 0 {
		h.Use(r.extra...)
	}
	if r.cors {
		h.Use(r.middleware.CORS())
		// 预检请求由 CORS 中间件直接以 204 结束
		h.OPTIONS("/*path", func(context.Context, *app.RequestContext) {})
	}

	h.GET("/", r.handler.Banner)
	h.GET("/health", r.handler.HealthCheck)
	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}

	rpcGroup := h.Group("/")
	if r.rateLimitRPS > 0 {
		rpcGroup.Use(r.middleware.RateLimit(r.rateLimitRPS, r.rateLimitBurst))
	}
	if r.registry != nil {
		r.registry.Mount(rpcGroup)
	}
	return h
}
