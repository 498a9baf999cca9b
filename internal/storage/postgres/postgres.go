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

// Package postgres 提供连接池构建与 outbox 表结构初始化
package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"rpc-platform/pkg/config"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/log"
)

//go:embed schema.sql
var schemaSQL string

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPool 创建并 Ping 连接池；DebugSQL 时通过 slog 输出每条 SQL
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, "解析 database.url 失败")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.DebugSQL && logger != nil {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   sqlLogger(logger),
			LogLevel: tracelog.LogLevelDebug,
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// sqlLogger 将 pgx tracelog 输出转到 slog
func sqlLogger(logger *log.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		attrs := make([]any, 0, len(data)*2)
		for k, v := range data {
			attrs = append(attrs, k, v)
		}
		switch level {
		case tracelog.LogLevelError:
			logger.ErrorContext(ctx, "sql: "+msg, attrs...)
		case tracelog.LogLevelWarn:
			logger.WarnContext(ctx, "sql: "+msg, attrs...)
		case tracelog.LogLevelInfo:
			logger.InfoContext(ctx, "sql: "+msg, attrs...)
		default:
			logger.DebugContext(ctx, "sql: "+msg, attrs...)
		}
	})
}

// EnsureSchema 创建 messages 表（幂等）
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return apperrors.Wrap(err, "初始化 messages 表失败")
	}
	return nil
}
