// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rpc-platform"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	// 创建 OTLP exporter
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartInvocationSpan 开始一次 RPC 调用的 span
func StartInvocationSpan(ctx context.Context, rpcName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "rpc.invoke",
		trace.WithAttributes(attribute.String("rpc.name", rpcName)),
	)
}

// EndInvocationSpan 记录调用结果并结束 span；tag 为空表示成功
func EndInvocationSpan(span trace.Span, status int, tag string) {
	span.SetAttributes(attribute.Int("rpc.status", status))
	if tag != "" {
		span.SetAttributes(attribute.String("rpc.error_tag", tag))
		span.SetStatus(codes.Error, tag)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartRelaySpan 开始一次 outbox relay 批次的 span
func StartRelaySpan(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "outbox.relay",
		trace.WithAttributes(attribute.Int("outbox.batch_size", batchSize)),
	)
}
