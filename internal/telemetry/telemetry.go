// Package telemetry включает трассировку OpenTelemetry.
// Трассировка опциональна: без OTEL_ENABLED глобальный провайдер остаётся no-op,
// и спаны в сервисах ничего не стоят.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"darkframe.ru/clanwar/internal/config"
)

// ServiceName — имя сервиса в трассах.
const ServiceName = "darkframe-clanwar"

// Setup настраивает экспорт спанов по OTLP/HTTP. Возвращает функцию,
// которая сбрасывает накопленные спаны; её нужно вызвать при остановке.
func Setup(ctx context.Context, cfg *config.Core) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.OtelEnabled || cfg.OtelEndpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OtelEndpoint))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.DeploymentEnvironment(cfg.AppEnv),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Tracer возвращает трейсер пакета. Глобальный провайдер делегирует тому,
// что настроит Setup позже, поэтому трейсер можно получить при инициализации пакета.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer("darkframe.ru/clanwar/" + pkg)
}

// End завершает спан и помечает его ошибкой, если она есть.
// Вызывается через defer с указателем на именованный результат.
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}
