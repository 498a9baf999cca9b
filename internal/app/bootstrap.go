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

package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"rpc-platform/internal/storage/postgres"
	"rpc-platform/pkg/config"
	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/log"
)

// Bootstrap 统一初始化：供 api 与 worker 复用（日志、连接池、能力提供者）
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Pool      *pgxpool.Pool
	Providers effects.Providers
}

// NewBootstrap 根据配置创建 Bootstrap；能力提供者缺失或数据库不可用时直接失败
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, errors.New("配置为空")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "配置校验失败")
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "初始化日志失败")
	}

	providers := effects.LiveProviders()
	if err := providers.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "初始化能力提供者失败")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, apperrors.Wrapf(err, "连接数据库失败 (max_conns=%d)", cfg.Database.MaxConns)
	}
	if cfg.Database.EnsureSchema {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Providers: providers,
	}, nil
}

// Close 释放连接池
func (b *Bootstrap) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}
