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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
rpc:
  timeout: "5s"
log:
  level: "warn"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
	if cfg.RPC.Timeout != 5*time.Second {
		t.Errorf("RPC.Timeout: got %s", cfg.RPC.Timeout)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 6701, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, time.Second, cfg.Outbox.Relay.Interval)
	assert.Equal(t, 100, cfg.Outbox.Relay.BatchSize)
	assert.Equal(t, "outbox:", cfg.Outbox.Relay.StreamPrefix)
	assert.Equal(t, "1.0.0", cfg.Service.Version)
	assert.Equal(t, "0.0.0.0:6701", cfg.API.Addr())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")
	t.Setenv("API_PORT", "7000")
	t.Setenv("DEBUG", "true")
	t.Setenv("DEBUG_SQL", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RPC_TIMEOUT", "2s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.URL)
	assert.Equal(t, 7000, cfg.API.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Database.DebugSQL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.RPC.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Database.URL = ""
	cfg.API.Port = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "api.port")
}
