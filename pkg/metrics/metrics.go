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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Worker 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		InvocationDuration, InvocationTotal, FailureTotal,
		TxTotal, LogDropped,
		OutboxPublished, OutboxRelayed,
	)
}

// InvocationDuration RPC 调用耗时（秒）
var InvocationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rpc_invocation_duration_seconds",
		Help:    "RPC 调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"rpc"},
)

// InvocationTotal RPC 调用总数（按结果）
var InvocationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rpc_invocation_total",
		Help: "RPC 调用总数（按结果）",
	},
	[]string{"rpc", "outcome"}, // ok | error
)

// FailureTotal 失败调用按 tag 与状态码统计
var FailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rpc_failure_total",
		Help: "失败调用总数（按 tag 与状态码）",
	},
	[]string{"rpc", "tag", "status"},
)

// TxTotal 事务结束方式统计
var TxTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rpc_transaction_total",
		Help: "事务总数（按结束方式）",
	},
	[]string{"result"}, // committed | rolled_back | begin_failed | commit_failed | rollback_failed
)

// LogDropped 请求日志队列满时丢弃的条数
var LogDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rpc_request_log_dropped_total",
		Help: "请求日志队列满时丢弃的条数",
	},
)

// OutboxPublished 事务内写入 outbox 的消息数（提交前计数）
var OutboxPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "写入 outbox 的消息数",
	},
	[]string{"aggregate_type"},
)

// OutboxRelayed 由 relay 投递并标记 processed 的消息数
var OutboxRelayed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_relayed_total",
		Help: "relay 投递的消息数（按结果）",
	},
	[]string{"result"}, // delivered | failed
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	families, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
