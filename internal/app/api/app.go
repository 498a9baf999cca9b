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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"rpc-platform/internal/api/http"
	"rpc-platform/internal/api/http/middleware"
	"rpc-platform/internal/app"
	"rpc-platform/internal/procedures/health"
	"rpc-platform/internal/rpc"
	"rpc-platform/internal/runtime/engine"
	"rpc-platform/pkg/log"
	"rpc-platform/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配执行引擎、RPC 注册表、HTTP Router）
type App struct {
	config       *app.Bootstrap
	engine       *engine.Engine
	requestLog   *engine.RequestLogger
	registry     *rpc.Registry
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用并注册全部 RPC
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	requestLog := engine.NewRequestLogger(bootstrap.Logger, cfg.RPC.LogBuffer)
	eng, err := engine.New(bootstrap.Pool, bootstrap.Providers, requestLog, engine.Options{Timeout: cfg.RPC.Timeout})
	if err != nil {
		requestLog.Close()
		return nil, fmt.Errorf("创建执行引擎失败: %w", err)
	}

	registry := rpc.NewRegistry(eng)
	health.Register(registry)

	mw := middleware.NewMiddleware(cfg.API.CORS.AllowOrigins...)
	router := http.NewRouter(http.NewHandler(cfg.Service.Name, cfg.Service.Version), mw, registry)
	router.SetCORS(cfg.API.CORS.Enable)
	router.SetMetrics(cfg.Monitoring.Prometheus.Enable)
	if cfg.API.Middleware.RateLimit {
		router.SetRateLimit(cfg.API.Middleware.RateLimitRPS, cfg.API.Middleware.RateLimitBurst)
	}

	bootstrap.Logger.Info("RPC 已注册", "names", registry.Names())
	return &App{
		config:     bootstrap,
		engine:     eng,
		requestLog: requestLog,
		registry:   registry,
		router:     router,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":6701"
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)
	cfg := a.config.Config

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	)
	hlog.SetLogger(hertzLogger)

	// 可选：启用链路追踪（OpenTelemetry）
	var opts []config.Option
	if cfg.Monitoring.Tracing.Enable {
		serviceName := utils.Coalesce(cfg.Monitoring.Tracing.ServiceName, cfg.Service.Name)
		exportEndpoint := utils.Coalesce(cfg.Monitoring.Tracing.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		if exportEndpoint != "" {
			popts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				popts = append(popts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(popts...)
			tracerOpt, tcfg := hertztracing.NewServerTracer()
			opts = append(opts, tracerOpt)
			a.router.Use(hertztracing.ServerMiddleware(tcfg))
			a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		}
	}
	a.hertz = a.router.Build(addr, opts...)
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.hertz != nil {
		err = a.hertz.Shutdown(ctx)
	}
	// HTTP 停止后再刷新请求日志，避免丢失最后一批
	a.requestLog.Close()
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	a.config.Close()
	return err
}
