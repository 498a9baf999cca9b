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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIConfigPath API 默认配置文件路径；不存在时仅使用环境变量与默认值
const DefaultAPIConfigPath = "configs/api.yaml"

// Config 应用配置结构体
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	Service    ServiceConfig    `mapstructure:"service"`
	API        APIConfig        `mapstructure:"api"`
	RPC        RPCConfig        `mapstructure:"rpc"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServiceConfig 服务标识，GET / 返回
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// Addr 监听地址 host:port
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit      bool `mapstructure:"rate_limit"`
	RateLimitRPS   int  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int  `mapstructure:"rate_limit_burst"`
}

// RPCConfig 执行引擎配置
type RPCConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`    // 单次调用执行窗口
	LogBuffer int           `mapstructure:"log_buffer"` // 请求日志异步队列容量
}

// DatabaseConfig PostgreSQL 配置
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxConns     int32  `mapstructure:"max_conns"`
	DebugSQL     bool   `mapstructure:"debug_sql"`
	EnsureSchema bool   `mapstructure:"ensure_schema"` // 启动时创建 messages 表
}

// RedisConfig Redis 配置（outbox relay 投递目标）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// OutboxConfig outbox 配置
type OutboxConfig struct {
	Relay OutboxRelayConfig `mapstructure:"relay"`
}

// OutboxRelayConfig relay 轮询配置
type OutboxRelayConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	StreamPrefix string        `mapstructure:"stream_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// envBindings 约定的环境变量名（与 AutomaticEnv 的 a.b -> A_B 规则并存）
var envBindings = map[string]string{
	"database.url":       "DATABASE_URL",
	"database.debug_sql": "DEBUG_SQL",
	"api.port":           "API_PORT",
	"debug":              "DEBUG",
	"redis.addr":         "REDIS_ADDR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "rpc-platform")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 6701)
	v.SetDefault("api.cors.enable", true)
	v.SetDefault("api.cors.allow_origins", []string{"*"})
	v.SetDefault("api.middleware.rate_limit", false)
	v.SetDefault("api.middleware.rate_limit_rps", 100)
	v.SetDefault("api.middleware.rate_limit_burst", 200)
	v.SetDefault("rpc.timeout", "30s")
	v.SetDefault("rpc.log_buffer", 1024)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("outbox.relay.interval", "1s")
	v.SetDefault("outbox.relay.batch_size", 100)
	v.SetDefault("outbox.relay.stream_prefix", "outbox:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.enable", true)
	v.SetDefault("monitoring.tracing.service_name", "rpc-platform")
}

// LoadConfig 加载配置；configPath 为空时只读取环境变量与默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("无法绑定环境变量 %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}
	if config.Debug && config.Log.Level != "debug" {
		config.Log.Level = "debug"
	}
	return &config, nil
}

// Validate 启动前校验必填项
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) 未设置"))
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port 非法: %d", c.API.Port))
	}
	if c.RPC.Timeout < 0 {
		errs = append(errs, fmt.Errorf("rpc.timeout 不能为负: %s", c.RPC.Timeout))
	}
	return errors.Join(errs...)
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml 存在时读取）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig(optionalPath(DefaultAPIConfigPath))
}

// LoadWorkerConfig 加载 Worker 配置；与 API 共用同一文件
func LoadWorkerConfig() (*Config, error) {
	return LoadConfig(optionalPath(DefaultAPIConfigPath))
}

func optionalPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
