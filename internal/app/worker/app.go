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

package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rpc-platform/internal/app"
	"rpc-platform/internal/outbox"
	"rpc-platform/pkg/tracing"
	"rpc-platform/pkg/utils"
)

// App Worker 应用：outbox relay，将已提交的 messages 投递到 Redis Streams
type App struct {
	config *app.Bootstrap
	redis  *redis.Client
	relay  *outbox.Relay
	tp     *sdktrace.TracerProvider

	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp 创建 Worker 应用
func NewApp(ctx context.Context, bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	appObj := &App{config: bootstrap, redis: client}
	endpoint := utils.Coalesce(cfg.Monitoring.Tracing.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if cfg.Monitoring.Tracing.Enable && endpoint != "" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    utils.Coalesce(cfg.Monitoring.Tracing.ServiceName, cfg.Service.Name) + "-worker",
			ExportEndpoint: endpoint,
			Insecure:       cfg.Monitoring.Tracing.Insecure,
		})
		if err != nil {
			bootstrap.Logger.Warn("链路追踪初始化失败", "error", err)
		} else {
			appObj.tp = tp
		}
	}

	appObj.relay = outbox.NewRelay(
		bootstrap.Pool,
		outbox.NewRedisPublisher(client),
		bootstrap.Providers.Clock,
		outbox.RelayConfig{
			Interval:     cfg.Outbox.Relay.Interval,
			BatchSize:    cfg.Outbox.Relay.BatchSize,
			StreamPrefix: cfg.Outbox.Relay.StreamPrefix,
		},
		bootstrap.Logger,
	)
	return appObj, nil
}

// Start 在后台启动 relay
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		_ = a.relay.Run(ctx)
	}()
	a.config.Logger.Info("outbox relay 已启动",
		"interval", a.config.Config.Outbox.Relay.Interval,
		"batch_size", a.config.Config.Outbox.Relay.BatchSize)
	return nil
}

// Shutdown 停止 relay 并释放资源
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if a.tp != nil {
		_ = a.tp.Shutdown(ctx)
	}
	_ = a.redis.Close()
	a.config.Close()
	return nil
}
